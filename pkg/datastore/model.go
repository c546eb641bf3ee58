/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package datastore

import (
	"encoding/json"
	"time"

	"github.com/scoir/credex/pkg/schema"
)

// Connection states.
const (
	ConnectionInvited   = "invited"
	ConnectionRequested = "requested"
	ConnectionResponded = "responded"
	ConnectionComplete  = "complete"
)

// Credential exchange states.
const (
	CredentialProposed  = "proposed"
	CredentialOffered   = "offered"
	CredentialRequested = "requested"
	CredentialIssued    = "issued"
	CredentialStored    = "stored"
)

// Presentation exchange states.
const (
	PresentationRequested = "requested"
	PresentationPresented = "presented"
	PresentationVerified  = "verified"
	PresentationRejected  = "rejected"
)

// StateError is shared by every exchange kind.
const StateError = "error"

// Roles.
const (
	RoleInviter  = "inviter"
	RoleInvitee  = "invitee"
	RoleIssuer   = "issuer"
	RoleHolder   = "holder"
	RoleVerifier = "verifier"
	RoleProver   = "prover"
)

type Connection struct {
	ConnectionID  string          `json:"connection_id" bson:"connection_id"`
	Role          string          `json:"role" bson:"role"`
	Alias         string          `json:"alias,omitempty" bson:"alias"`
	MyDID         string          `json:"my_did" bson:"my_did"`
	MyVerkey      string          `json:"my_verkey" bson:"my_verkey"`
	TheirDID      string          `json:"their_did,omitempty" bson:"their_did"`
	TheirVerkey   string          `json:"their_verkey,omitempty" bson:"their_verkey"`
	TheirLabel    string          `json:"their_label,omitempty" bson:"their_label"`
	TheirEndpoint string          `json:"their_endpoint,omitempty" bson:"their_endpoint"`
	InvitationID  string          `json:"invitation_id" bson:"invitation_id"`
	InvitationKey string          `json:"invitation_key" bson:"invitation_key"`
	Invitation    json.RawMessage `json:"invitation,omitempty" bson:"invitation"`
	ThreadID      string          `json:"thread_id,omitempty" bson:"thread_id"`
	MultiUse      bool            `json:"multi_use,omitempty" bson:"multi_use"`
	Archived      bool            `json:"archived,omitempty" bson:"archived"`
	Status        `bson:",inline"`
}

type ConnectionCriteria struct {
	State           string
	Role            string
	Alias           string
	IncludeArchived bool
	Start, PageSize int
}

type ConnectionList struct {
	Count       int           `json:"count"`
	Connections []*Connection `json:"connections"`
}

type CredentialExchange struct {
	ExchangeID       string                    `json:"exchange_id" bson:"exchange_id"`
	ConnectionID     string                    `json:"connection_id" bson:"connection_id"`
	ThreadID         string                    `json:"thread_id" bson:"thread_id"`
	Role             string                    `json:"role" bson:"role"`
	SchemaID         string                    `json:"schema_id,omitempty" bson:"schema_id"`
	CredDefID        string                    `json:"cred_def_id,omitempty" bson:"cred_def_id"`
	Comment          string                    `json:"comment,omitempty" bson:"comment"`
	AttributesHint   map[string]string         `json:"attributes_hint,omitempty" bson:"attributes_hint"`
	Attributes       map[string]string         `json:"attributes,omitempty" bson:"attributes"`
	Frozen           bool                      `json:"frozen,omitempty" bson:"frozen"`
	Offer            *schema.CredentialOffer   `json:"offer,omitempty" bson:"offer"`
	Request          *schema.CredentialRequest `json:"request,omitempty" bson:"request"`
	Credential       *schema.SignedCredential  `json:"credential,omitempty" bson:"credential"`
	CredentialID     string                    `json:"credential_id,omitempty" bson:"credential_id"`
	RevocationRegID  string                    `json:"revocation_registry_id,omitempty" bson:"revocation_registry_id"`
	RevocationIndex  *int64                    `json:"revocation_index,omitempty" bson:"revocation_index"`
	Revoked          bool                      `json:"revoked" bson:"revoked"`
	RevokedAt        *time.Time                `json:"revoked_at,omitempty" bson:"revoked_at"`
	RevocationReason string                    `json:"revocation_reason,omitempty" bson:"revocation_reason"`
	Status           `bson:",inline"`
}

type ExchangeCriteria struct {
	ConnectionID    string
	State           string
	Role            string
	Start, PageSize int
}

type CredentialExchangeList struct {
	Count     int                   `json:"count"`
	Exchanges []*CredentialExchange `json:"exchanges"`
}

type VerificationCheck struct {
	Check  string `json:"check" bson:"check"`
	Passed bool   `json:"passed" bson:"passed"`
	Error  string `json:"error,omitempty" bson:"error"`
}

type PresentationExchange struct {
	ExchangeID   string               `json:"exchange_id" bson:"exchange_id"`
	ConnectionID string               `json:"connection_id" bson:"connection_id"`
	ThreadID     string               `json:"thread_id" bson:"thread_id"`
	Role         string               `json:"role" bson:"role"`
	ProofRequest *schema.ProofRequest `json:"proof_request" bson:"proof_request"`
	Presentation *schema.Presentation `json:"presentation,omitempty" bson:"presentation"`
	Verified     *bool                `json:"verified,omitempty" bson:"verified"`
	Checks       []VerificationCheck  `json:"checks,omitempty" bson:"checks"`
	Status       `bson:",inline"`
}

type PresentationExchangeList struct {
	Count     int                     `json:"count"`
	Exchanges []*PresentationExchange `json:"exchanges"`
}

// HeldCredential is a credential in the holder's wallet.
type HeldCredential struct {
	CredentialID    string                   `json:"credential_id" bson:"credential_id"`
	ExchangeID      string                   `json:"exchange_id" bson:"exchange_id"`
	ConnectionID    string                   `json:"connection_id" bson:"connection_id"`
	SchemaID        string                   `json:"schema_id" bson:"schema_id"`
	CredDefID       string                   `json:"cred_def_id" bson:"cred_def_id"`
	IssuerDID       string                   `json:"issuer_did" bson:"issuer_did"`
	Attributes      map[string]string        `json:"attributes" bson:"attributes"`
	Credential      *schema.SignedCredential `json:"credential" bson:"credential"`
	RevocationRegID string                   `json:"revocation_registry_id,omitempty" bson:"revocation_registry_id"`
	RevocationIndex int64                    `json:"revocation_index,omitempty" bson:"revocation_index"`
	Revoked         bool                     `json:"revoked" bson:"revoked"`
	RevokedAt       *time.Time               `json:"revoked_at,omitempty" bson:"revoked_at"`
	CreatedAt       time.Time                `json:"created_at" bson:"created_at"`
	Version         int64                    `json:"version" bson:"version"`
}

type CredentialCriteria struct {
	CredDefID       string
	SchemaID        string
	IncludeRevoked  bool
	Start, PageSize int
}

type CredentialList struct {
	Count       int               `json:"count"`
	Credentials []*HeldCredential `json:"credentials"`
}

// KeyPair holds base58 encoded key material.
type KeyPair struct {
	ID         string    `json:"id" bson:"id"`
	PublicKey  string    `json:"public_key" bson:"public_key"`
	PrivateKey string    `json:"private_key" bson:"private_key"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

type Webhook struct {
	Type string `json:"type" bson:"type"`
	URL  string `json:"url" bson:"url"`
}
