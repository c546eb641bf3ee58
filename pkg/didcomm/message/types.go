/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package message

import (
	"github.com/scoir/credex/pkg/schema"
)

type Invitation struct {
	Header
	Label           string   `json:"label,omitempty"`
	RecipientKeys   []string `json:"recipientKeys,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint,omitempty"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	DID             string   `json:"did,omitempty"`
}

// ConnectionInfo describes how to reach the sender of a request or response.
type ConnectionInfo struct {
	DID      string `json:"DID"`
	Verkey   string `json:"verkey"`
	Endpoint string `json:"endpoint,omitempty"`
}

type ConnectionRequest struct {
	Header
	Label      string          `json:"label,omitempty"`
	Connection *ConnectionInfo `json:"connection"`
}

// SignatureDecorator is a field signed by Signer. SigData is base64url encoded.
type SignatureDecorator struct {
	Type      string `json:"@type"`
	Signature string `json:"signature"`
	SigData   string `json:"sig_data"`
	Signer    string `json:"signer"`
}

type ConnectionResponse struct {
	Header
	ConnectionSig *SignatureDecorator `json:"connection~sig"`
}

type Ack struct {
	Header
	Status string `json:"status"`
}

type Description struct {
	Code string `json:"code"`
	En   string `json:"en,omitempty"`
}

type ProblemReport struct {
	Header
	Description Description `json:"description"`
}

type Preview struct {
	Type       string        `json:"@type"`
	Attributes []schema.Attr `json:"attributes"`
}

// NewPreview lists attrs in name order.
func NewPreview(attrs map[string]string) *Preview {
	return &Preview{Type: CredentialPreviewType, Attributes: schema.AttrsFromMap(attrs)}
}

func (r *Preview) Map() map[string]string {
	if r == nil {
		return map[string]string{}
	}

	return schema.AttrsToMap(r.Attributes)
}

type ProposeCredential struct {
	Header
	Comment            string   `json:"comment,omitempty"`
	SchemaID           string   `json:"schema_id"`
	CredDefID          string   `json:"cred_def_id,omitempty"`
	CredentialProposal *Preview `json:"credential_proposal,omitempty"`
}

type OfferCredential struct {
	Header
	Comment           string                  `json:"comment,omitempty"`
	CredentialPreview *Preview                `json:"credential_preview"`
	Offer             *schema.CredentialOffer `json:"offer"`
}

type RequestCredential struct {
	Header
	Comment string                    `json:"comment,omitempty"`
	Request *schema.CredentialRequest `json:"request"`
}

type IssueCredential struct {
	Header
	Comment    string                   `json:"comment,omitempty"`
	Credential *schema.SignedCredential `json:"credential"`
}

type RequestPresentation struct {
	Header
	Comment      string               `json:"comment,omitempty"`
	ProofRequest *schema.ProofRequest `json:"proof_request"`
}

type Presentation struct {
	Header
	Comment      string               `json:"comment,omitempty"`
	Presentation *schema.Presentation `json:"presentation"`
}

// RevocationNotification tells a holder the credential issued on ThreadID was revoked.
type RevocationNotification struct {
	Header
	ThreadID string `json:"thread_id"`
	Comment  string `json:"comment,omitempty"`
}
