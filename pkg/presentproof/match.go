/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/schema"
)

// identity establishes where a credential comes from using the ledger only.
func (r *Supervisor) identity(ctx context.Context, schemaID, credDefID string) (schema.CredentialIdentity, error) {
	lctx, cancel := r.timeouts.LedgerContext(ctx)
	defer cancel()

	cd, err := r.ledger.ReadCredDef(lctx, credDefID)
	if err != nil {
		return schema.CredentialIdentity{}, errors.Wrapf(err, "unable to read credential definition %s", credDefID)
	}

	if cd.SchemaID != schemaID {
		return schema.CredentialIdentity{}, errors.Errorf("credential definition %s is not for schema %s", credDefID, schemaID)
	}

	s, err := r.ledger.ReadSchema(lctx, schemaID)
	if err != nil {
		return schema.CredentialIdentity{}, errors.Wrapf(err, "unable to read schema %s", schemaID)
	}

	return schema.CredentialIdentity{
		SchemaID:        s.ID,
		SchemaIssuerDID: s.IssuerDID,
		SchemaName:      s.Name,
		SchemaVersion:   s.Version,
		IssuerDID:       cd.IssuerDID,
		CredDefID:       cd.ID,
	}, nil
}

// candidate is a wallet credential with its provenance resolved.
type candidate struct {
	held *datastore.HeldCredential
	id   schema.CredentialIdentity
}

func (r *Supervisor) candidates(ctx context.Context, held []*datastore.HeldCredential) ([]*candidate, error) {
	out := make([]*candidate, 0, len(held))
	for _, h := range held {
		if h.Revoked {
			continue
		}

		id, err := r.identity(ctx, h.SchemaID, h.CredDefID)
		if err != nil {
			return nil, exchange.Dependency(err, "unable to resolve credential %s", h.CredentialID)
		}

		out = append(out, &candidate{held: h, id: id})
	}

	return out, nil
}

func (c *candidate) hasAttributes(names ...string) bool {
	for _, n := range names {
		if _, ok := c.held.Attributes[n]; !ok {
			return false
		}
	}
	return true
}

func (c *candidate) answersAttribute(a *schema.AttributeRequest) bool {
	return c.hasAttributes(a.AttrNames()...) && schema.SatisfiesRestrictions(a.Restrictions, c.id)
}

func (c *candidate) answersPredicate(p *schema.PredicateRequest) bool {
	if !c.hasAttributes(p.Name) || !schema.SatisfiesRestrictions(p.Restrictions, c.id) {
		return false
	}

	v, err := strconv.ParseInt(c.held.Attributes[p.Name], 10, 64)
	if err != nil {
		return false
	}

	return p.Holds(v)
}

// Matches lists, per referent, the credentials that can answer it.
type Matches struct {
	Attributes map[string][]*datastore.HeldCredential `json:"attributes"`
	Predicates map[string][]*datastore.HeldCredential `json:"predicates"`
}

func match(pr *schema.ProofRequest, pool []*candidate) *Matches {
	out := &Matches{
		Attributes: map[string][]*datastore.HeldCredential{},
		Predicates: map[string][]*datastore.HeldCredential{},
	}

	for referent, a := range pr.RequestedAttributes {
		out.Attributes[referent] = []*datastore.HeldCredential{}
		for _, c := range pool {
			if c.answersAttribute(a) {
				out.Attributes[referent] = append(out.Attributes[referent], c.held)
			}
		}
	}

	for referent, p := range pr.RequestedPredicates {
		out.Predicates[referent] = []*datastore.HeldCredential{}
		for _, c := range pool {
			if c.answersPredicate(p) {
				out.Predicates[referent] = append(out.Predicates[referent], c.held)
			}
		}
	}

	return out
}

// choose picks the first matching credential for every referent. Unrevealed attribute referents are
// proven without disclosing their value.
func choose(pr *schema.ProofRequest, m *Matches, unrevealed map[string]bool) (*schema.RequestedCredentials, map[string]*schema.SignedCredential, error) {
	requested := &schema.RequestedCredentials{
		RequestedAttributes: map[string]*schema.RequestedAttribute{},
		RequestedPredicates: map[string]*schema.RequestedPredicate{},
	}
	creds := map[string]*schema.SignedCredential{}

	for _, referent := range sortedKeys(m.Attributes) {
		found := m.Attributes[referent]
		if len(found) == 0 {
			return nil, nil, exchange.Protocol(exchange.ErrNoMatchingCredential, "attribute %s", referent)
		}

		// a group of names is always disclosed
		revealed := !unrevealed[referent] || pr.RequestedAttributes[referent].Name == ""
		requested.RequestedAttributes[referent] = &schema.RequestedAttribute{CredID: found[0].CredentialID, Revealed: revealed}
		creds[found[0].CredentialID] = found[0].Credential
	}

	for _, referent := range sortedKeys(m.Predicates) {
		found := m.Predicates[referent]
		if len(found) == 0 {
			return nil, nil, exchange.Protocol(exchange.ErrNoMatchingCredential, "predicate %s", referent)
		}

		requested.RequestedPredicates[referent] = &schema.RequestedPredicate{CredID: found[0].CredentialID}
		creds[found[0].CredentialID] = found[0].Credential
	}

	return requested, creds, nil
}

func sortedKeys(m map[string][]*datastore.HeldCredential) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
