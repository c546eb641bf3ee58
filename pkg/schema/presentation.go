/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
)

type Presentation struct {
	Proof          json.RawMessage `json:"proof"`
	RequestedProof *RequestedProof `json:"requested_proof"`
	Identifiers    []*Identifier   `json:"identifiers"`
}

type RequestedProof struct {
	RevealedAttrs      map[string]*RevealedAttributeInfo      `json:"revealed_attrs"`
	RevealedAttrGroups map[string]*RevealedAttributeGroupInfo `json:"revealed_attr_groups,omitempty"`
	UnrevealedAttrs    map[string]*SubProofReferent           `json:"unrevealed_attrs"`
	Predicates         map[string]*SubProofReferent           `json:"predicates"`
}

type Identifier struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
	RevRegID  string `json:"rev_reg_id,omitempty"`
	CredRevID int64  `json:"cred_rev_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type SubProofReferent struct {
	SubProofIndex int `json:"sub_proof_index"`
}

type RevealedAttributeInfo struct {
	SubProofIndex int    `json:"sub_proof_index"`
	Raw           string `json:"raw"`
	Encoded       string `json:"encoded"`
}

type RevealedAttributeGroupInfo struct {
	SubProofIndex int                        `json:"sub_proof_index"`
	Values        map[string]*AttributeValue `json:"values"`
}

// SubProofIndex finds the sub proof that answers referent, whichever section it is in.
func (r *RequestedProof) SubProofIndex(referent string) (int, bool) {
	if r == nil {
		return 0, false
	}

	if v, ok := r.RevealedAttrs[referent]; ok && v != nil {
		return v.SubProofIndex, true
	}
	if v, ok := r.RevealedAttrGroups[referent]; ok && v != nil {
		return v.SubProofIndex, true
	}
	if v, ok := r.UnrevealedAttrs[referent]; ok && v != nil {
		return v.SubProofIndex, true
	}
	if v, ok := r.Predicates[referent]; ok && v != nil {
		return v.SubProofIndex, true
	}

	return 0, false
}

type RequestedAttribute struct {
	CredID   string `json:"cred_id"`
	Revealed bool   `json:"revealed"`
}

type RequestedPredicate struct {
	CredID string `json:"cred_id"`
}

// RequestedCredentials tells the crypto engine which credential answers each referent.
type RequestedCredentials struct {
	RequestedAttributes map[string]*RequestedAttribute `json:"requested_attributes"`
	RequestedPredicates map[string]*RequestedPredicate `json:"requested_predicates"`
}
