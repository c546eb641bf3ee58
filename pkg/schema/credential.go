/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
)

type CredentialOffer struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
	Nonce     string `json:"nonce"`
}

type CredentialRequest struct {
	ProverDID string `json:"prover_did"`
	CredDefID string `json:"cred_def_id"`
	BlindedMS string `json:"blinded_ms"`
	Nonce     string `json:"nonce"`
}

type AttributeValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded"`
}

type CredentialValues map[string]*AttributeValue

// NewValues encodes every raw attribute.
func NewValues(attrs map[string]string) CredentialValues {
	out := CredentialValues{}
	for name, raw := range attrs {
		out[name] = &AttributeValue{
			Raw:     raw,
			Encoded: EncodeValue(raw),
		}
	}

	return out
}

// Raw returns the raw value of every attribute.
func (r CredentialValues) Raw() map[string]string {
	out := make(map[string]string, len(r))
	for name, v := range r {
		out[name] = v.Raw
	}

	return out
}

// SignedCredential is what an issuer hands to a holder. Signature is opaque outside the crypto engine.
type SignedCredential struct {
	ID        string           `json:"id"`
	SchemaID  string           `json:"schema_id"`
	CredDefID string           `json:"cred_def_id"`
	RevRegID  string           `json:"rev_reg_id,omitempty"`
	CredRevID int64            `json:"cred_rev_id,omitempty"`
	Values    CredentialValues `json:"values"`
	Signature json.RawMessage  `json:"signature"`
}

// RevocationInfo places an issued credential in a revocation registry.
type RevocationInfo struct {
	RegistryID string `json:"rev_reg_id"`
	Index      int64  `json:"cred_rev_id"`
}
