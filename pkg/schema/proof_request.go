/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Supported predicate comparators.
const (
	PredicateGE = ">="
	PredicateGT = ">"
	PredicateLE = "<="
	PredicateLT = "<"
)

type ProofRequest struct {
	Name                string                       `json:"name"`
	Version             string                       `json:"version"`
	Nonce               string                       `json:"nonce"`
	RequestedAttributes map[string]*AttributeRequest `json:"requested_attributes"`
	RequestedPredicates map[string]*PredicateRequest `json:"requested_predicates"`
	NonRevoked          *NonRevokedInterval          `json:"non_revoked,omitempty"`
}

type AttributeRequest struct {
	Name         string              `json:"name,omitempty"`
	Names        []string            `json:"names,omitempty"`
	Restrictions []Restriction       `json:"restrictions,omitempty"`
	NonRevoked   *NonRevokedInterval `json:"non_revoked,omitempty"`
}

type PredicateRequest struct {
	Name         string              `json:"name"`
	PType        string              `json:"p_type"`
	PValue       json.Number         `json:"p_value"`
	Restrictions []Restriction       `json:"restrictions,omitempty"`
	NonRevoked   *NonRevokedInterval `json:"non_revoked,omitempty"`
}

// NonRevokedInterval is a pair of unix timestamps. A zero To means "now".
type NonRevokedInterval struct {
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

// Restriction fields are ANDed; a list of restrictions is ORed; an empty list matches anything.
type Restriction struct {
	SchemaID        string `json:"schema_id,omitempty"`
	SchemaIssuerDID string `json:"schema_issuer_did,omitempty"`
	SchemaName      string `json:"schema_name,omitempty"`
	SchemaVersion   string `json:"schema_version,omitempty"`
	IssuerDID       string `json:"issuer_did,omitempty"`
	CredDefID       string `json:"cred_def_id,omitempty"`
}

// CredentialIdentity is the provenance of a credential as established from the ledger.
type CredentialIdentity struct {
	SchemaID        string
	SchemaIssuerDID string
	SchemaName      string
	SchemaVersion   string
	IssuerDID       string
	CredDefID       string
}

func (r Restriction) Matches(id CredentialIdentity) bool {
	return match(r.SchemaID, id.SchemaID) &&
		match(r.SchemaIssuerDID, id.SchemaIssuerDID) &&
		match(r.SchemaName, id.SchemaName) &&
		match(r.SchemaVersion, id.SchemaVersion) &&
		match(r.IssuerDID, id.IssuerDID) &&
		match(r.CredDefID, id.CredDefID)
}

func match(want, got string) bool {
	return want == "" || want == got
}

// SatisfiesRestrictions reports whether id meets at least one of restrictions.
func SatisfiesRestrictions(restrictions []Restriction, id CredentialIdentity) bool {
	if len(restrictions) == 0 {
		return true
	}

	for _, r := range restrictions {
		if r.Matches(id) {
			return true
		}
	}

	return false
}

// AttrNames returns the attribute names a referent asks for.
func (r *AttributeRequest) AttrNames() []string {
	if r.Name != "" {
		return []string{r.Name}
	}

	return r.Names
}

// Threshold parses p_value.
func (r *PredicateRequest) Threshold() (int64, error) {
	v, err := strconv.ParseInt(r.PValue.String(), 10, 32)
	if err != nil {
		return 0, errors.Errorf("p_value %q is not an integer", r.PValue.String())
	}

	return v, nil
}

// Holds evaluates the predicate against value.
func (r *PredicateRequest) Holds(value int64) bool {
	t, err := r.Threshold()
	if err != nil {
		return false
	}

	switch r.PType {
	case PredicateGE:
		return value >= t
	case PredicateGT:
		return value > t
	case PredicateLE:
		return value <= t
	case PredicateLT:
		return value < t
	}

	return false
}

// AttributeInterval returns the non-revocation interval for an attribute referent, falling back to
// the request wide interval.
func (r *ProofRequest) AttributeInterval(referent string) *NonRevokedInterval {
	if a, ok := r.RequestedAttributes[referent]; ok && a.NonRevoked != nil {
		return a.NonRevoked
	}

	return r.NonRevoked
}

// PredicateInterval is AttributeInterval for predicate referents.
func (r *ProofRequest) PredicateInterval(referent string) *NonRevokedInterval {
	if p, ok := r.RequestedPredicates[referent]; ok && p.NonRevoked != nil {
		return p.NonRevoked
	}

	return r.NonRevoked
}

// Validate checks the request is well formed.
func (r *ProofRequest) Validate() error {
	if len(r.RequestedAttributes)+len(r.RequestedPredicates) == 0 {
		return errors.New("proof request asks for nothing")
	}

	for referent, attr := range r.RequestedAttributes {
		if attr == nil {
			return errors.Errorf("attribute %s is empty", referent)
		}

		if (attr.Name == "") == (len(attr.Names) == 0) {
			return errors.Errorf("attribute %s must have exactly one of name or names", referent)
		}

		if _, dup := r.RequestedPredicates[referent]; dup {
			return errors.Errorf("referent %s is used by an attribute and a predicate", referent)
		}

		if err := attr.NonRevoked.validate(); err != nil {
			return errors.Wrapf(err, "attribute %s", referent)
		}
	}

	for referent, pred := range r.RequestedPredicates {
		if pred == nil {
			return errors.Errorf("predicate %s is empty", referent)
		}

		if pred.Name == "" {
			return errors.Errorf("predicate %s has no name", referent)
		}

		switch pred.PType {
		case PredicateGE, PredicateGT, PredicateLE, PredicateLT:
		default:
			return errors.Errorf("predicate %s has unsupported comparator %q", referent, pred.PType)
		}

		if _, err := pred.Threshold(); err != nil {
			return errors.Wrapf(err, "predicate %s", referent)
		}

		if err := pred.NonRevoked.validate(); err != nil {
			return errors.Wrapf(err, "predicate %s", referent)
		}
	}

	return r.NonRevoked.validate()
}

func (r *NonRevokedInterval) validate() error {
	if r == nil {
		return nil
	}

	if r.From < 0 || r.To < 0 || (r.To != 0 && r.From > r.To) {
		return errors.Errorf("invalid non_revoked interval [%d, %d]", r.From, r.To)
	}

	return nil
}
