/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commitment

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/schema"
)

type predicateProof struct {
	Attr    string `json:"attr"`
	PType   string `json:"p_type"`
	PValue  string `json:"p_value"`
	Witness string `json:"witness"`
}

type subProof struct {
	Content    signedContent              `json:"content"`
	Sig        string                     `json:"sig"`
	Openings   map[string]string          `json:"openings,omitempty"`
	Predicates map[string]*predicateProof `json:"predicates,omitempty"`
}

type proof struct {
	Nonce     string      `json:"nonce"`
	SubProofs []*subProof `json:"sub_proofs"`
}

// geBound and leBound turn a comparator into an inclusive bound inside [0, MaxRangeValue].
func geBound(ptype string, t int64) int64 {
	if ptype == schema.PredicateGT {
		t++
	}
	if t < 0 {
		t = 0
	}
	return t
}

func leBound(ptype string, t int64) int64 {
	if ptype == schema.PredicateLT {
		t--
	}
	if t > MaxRangeValue {
		t = MaxRangeValue
	}
	return t
}

func isGE(ptype string) bool {
	return ptype == schema.PredicateGE || ptype == schema.PredicateGT
}

type heldCredential struct {
	cred  *schema.SignedCredential
	sig   *credentialSignature
	index int
}

func (r *Engine) CreateProof(ctx context.Context, pr *schema.ProofRequest, requested *schema.RequestedCredentials,
	creds map[string]*schema.SignedCredential, masterSecretID string) (*schema.Presentation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if pr == nil || requested == nil {
		return nil, errors.New("proof request and requested credentials are required")
	}

	ms, err := r.masterSecret(masterSecretID, false)
	if err != nil {
		return nil, err
	}

	// one sub proof per distinct credential, in a stable order
	var ids []string
	seen := map[string]bool{}
	for _, a := range requested.RequestedAttributes {
		if a != nil && !seen[a.CredID] {
			seen[a.CredID] = true
			ids = append(ids, a.CredID)
		}
	}
	for _, p := range requested.RequestedPredicates {
		if p != nil && !seen[p.CredID] {
			seen[p.CredID] = true
			ids = append(ids, p.CredID)
		}
	}
	sort.Strings(ids)

	held := map[string]*heldCredential{}
	out := &proof{Nonce: pr.Nonce}
	pres := &schema.Presentation{
		RequestedProof: &schema.RequestedProof{
			RevealedAttrs:      map[string]*schema.RevealedAttributeInfo{},
			RevealedAttrGroups: map[string]*schema.RevealedAttributeGroupInfo{},
			UnrevealedAttrs:    map[string]*schema.SubProofReferent{},
			Predicates:         map[string]*schema.SubProofReferent{},
		},
	}

	now := time.Now().Unix()
	for i, id := range ids {
		cred, ok := creds[id]
		if !ok {
			return nil, errors.Errorf("credential %s was not provided", id)
		}

		sig := &credentialSignature{}
		if err := json.Unmarshal(cred.Signature, sig); err != nil {
			return nil, errors.Wrapf(err, "malformed signature on credential %s", id)
		}

		if sig.Content.Binding != blind(ms, sig.Content.BindingNonce) {
			return nil, errors.Errorf("credential %s is not bound to master secret %s", id, masterSecretID)
		}

		held[id] = &heldCredential{cred: cred, sig: sig, index: i}
		out.SubProofs = append(out.SubProofs, &subProof{
			Content:    sig.Content,
			Sig:        sig.Sig,
			Openings:   map[string]string{},
			Predicates: map[string]*predicateProof{},
		})

		ident := &schema.Identifier{
			SchemaID:  cred.SchemaID,
			CredDefID: cred.CredDefID,
			RevRegID:  cred.RevRegID,
			CredRevID: cred.CredRevID,
		}
		if cred.RevRegID != "" {
			ident.Timestamp = now
		}
		pres.Identifiers = append(pres.Identifiers, ident)
	}

	for referent, attr := range pr.RequestedAttributes {
		ra, ok := requested.RequestedAttributes[referent]
		if !ok || ra == nil {
			return nil, errors.Errorf("no credential selected for attribute %s", referent)
		}

		h := held[ra.CredID]
		sp := out.SubProofs[h.index]

		if attr.Name == "" {
			group := &schema.RevealedAttributeGroupInfo{SubProofIndex: h.index, Values: map[string]*schema.AttributeValue{}}
			for _, name := range attr.Names {
				v, ok := h.cred.Values[name]
				if !ok {
					return nil, errors.Errorf("credential %s has no attribute %s", ra.CredID, name)
				}
				group.Values[name] = &schema.AttributeValue{Raw: v.Raw, Encoded: v.Encoded}
				sp.Openings[name] = h.sig.Salts[name]
			}
			pres.RequestedProof.RevealedAttrGroups[referent] = group
			continue
		}

		v, ok := h.cred.Values[attr.Name]
		if !ok {
			return nil, errors.Errorf("credential %s has no attribute %s", ra.CredID, attr.Name)
		}

		if !ra.Revealed {
			pres.RequestedProof.UnrevealedAttrs[referent] = &schema.SubProofReferent{SubProofIndex: h.index}
			continue
		}

		pres.RequestedProof.RevealedAttrs[referent] = &schema.RevealedAttributeInfo{
			SubProofIndex: h.index,
			Raw:           v.Raw,
			Encoded:       v.Encoded,
		}
		sp.Openings[attr.Name] = h.sig.Salts[attr.Name]
	}

	for referent, pred := range pr.RequestedPredicates {
		rp, ok := requested.RequestedPredicates[referent]
		if !ok || rp == nil {
			return nil, errors.Errorf("no credential selected for predicate %s", referent)
		}

		h := held[rp.CredID]
		v, ok := h.cred.Values[pred.Name]
		if !ok {
			return nil, errors.Errorf("credential %s has no attribute %s", rp.CredID, pred.Name)
		}

		n, ok := rangeValue(v.Encoded)
		if !ok {
			return nil, errors.Errorf("attribute %s is not a provable number", pred.Name)
		}

		t, err := pred.Threshold()
		if err != nil {
			return nil, err
		}

		seeds := h.sig.Seeds[pred.Name]
		if seeds == nil {
			return nil, errors.Errorf("credential %s has no range commitment for %s", rp.CredID, pred.Name)
		}

		var witness string
		if isGE(pred.PType) {
			b := geBound(pred.PType, t)
			if n < b {
				return nil, errors.Errorf("predicate %s does not hold", referent)
			}
			witness = chain(seeds.GE, n-b)
		} else {
			b := leBound(pred.PType, t)
			if n > b {
				return nil, errors.Errorf("predicate %s does not hold", referent)
			}
			witness = chain(seeds.LE, b-n)
		}

		out.SubProofs[h.index].Predicates[referent] = &predicateProof{
			Attr:    pred.Name,
			PType:   pred.PType,
			PValue:  pred.PValue.String(),
			Witness: witness,
		}
		pres.RequestedProof.Predicates[referent] = &schema.SubProofReferent{SubProofIndex: h.index}
	}

	d, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal proof")
	}
	pres.Proof = d

	return pres, nil
}

func (r *Engine) VerifyProof(ctx context.Context, pres *schema.Presentation, pr *schema.ProofRequest) (bool, error) {
	if pres == nil || pr == nil || pres.RequestedProof == nil {
		return false, nil
	}

	p := &proof{}
	if err := json.Unmarshal(pres.Proof, p); err != nil {
		return false, nil
	}

	if p.Nonce != pr.Nonce || len(p.SubProofs) != len(pres.Identifiers) {
		return false, nil
	}

	for i, sp := range p.SubProofs {
		ident := pres.Identifiers[i]
		if sp == nil || ident == nil {
			return false, nil
		}
		c := sp.Content
		if c.SchemaID != ident.SchemaID || c.CredDefID != ident.CredDefID ||
			c.RevRegID != ident.RevRegID || c.CredRevID != ident.CredRevID {
			return false, nil
		}

		err := r.verifySignature(ctx, &sp.Content, sp.Sig)
		if errors.Is(err, crypto.ErrInvalidCredential) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}

	rp := pres.RequestedProof
	opened := func(idx int, name, encoded string) bool {
		if idx < 0 || idx >= len(p.SubProofs) {
			return false
		}
		sp := p.SubProofs[idx]
		if sp == nil {
			return false
		}
		salt, ok := sp.Openings[name]
		return ok && commit(salt, encoded) == sp.Content.Commitments[name]
	}

	for referent, attr := range pr.RequestedAttributes {
		if attr.Name == "" {
			group, ok := rp.RevealedAttrGroups[referent]
			if !ok || group == nil || len(group.Values) != len(attr.Names) {
				return false, nil
			}
			for _, name := range attr.Names {
				v, ok := group.Values[name]
				if !ok || v == nil || v.Encoded != schema.EncodeValue(v.Raw) || !opened(group.SubProofIndex, name, v.Encoded) {
					return false, nil
				}
			}
			continue
		}

		if v, ok := rp.RevealedAttrs[referent]; ok {
			if v == nil || v.Encoded != schema.EncodeValue(v.Raw) || !opened(v.SubProofIndex, attr.Name, v.Encoded) {
				return false, nil
			}
			continue
		}

		u, ok := rp.UnrevealedAttrs[referent]
		if !ok || u == nil || u.SubProofIndex < 0 || u.SubProofIndex >= len(p.SubProofs) {
			return false, nil
		}
		if _, ok := p.SubProofs[u.SubProofIndex].Content.Commitments[attr.Name]; !ok {
			return false, nil
		}
	}

	for referent, pred := range pr.RequestedPredicates {
		ref, ok := rp.Predicates[referent]
		if !ok || ref == nil || ref.SubProofIndex < 0 || ref.SubProofIndex >= len(p.SubProofs) {
			return false, nil
		}

		sp := p.SubProofs[ref.SubProofIndex]
		pp, ok := sp.Predicates[referent]
		if !ok || pp == nil || pp.Attr != pred.Name || pp.PType != pred.PType || pp.PValue != pred.PValue.String() {
			return false, nil
		}

		t, err := pred.Threshold()
		if err != nil {
			return false, nil
		}

		if isGE(pred.PType) {
			b := geBound(pred.PType, t)
			want := sp.Content.GE[pred.Name]
			if want == "" || b > MaxRangeValue || chain(pp.Witness, b) != want {
				return false, nil
			}
		} else {
			b := leBound(pred.PType, t)
			want := sp.Content.LE[pred.Name]
			if want == "" || b < 0 || chain(pp.Witness, MaxRangeValue-b) != want {
				return false, nil
			}
		}
	}

	return true, nil
}
