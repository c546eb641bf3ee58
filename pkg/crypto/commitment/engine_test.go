/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commitment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/datastore"
	dsmem "github.com/scoir/credex/pkg/datastore/mem"
	"github.com/scoir/credex/pkg/ledger"
	lmem "github.com/scoir/credex/pkg/ledger/mem"
	"github.com/scoir/credex/pkg/schema"
)

const issuerDID = "Th7MpTaRZVRYnPiabds81Y"

type suite struct {
	ledger    *lmem.Ledger
	issuer    *Engine
	holder    *Engine
	verifier  *Engine
	schemaID  string
	credDefID string
}

func openStore(t *testing.T) datastore.Store {
	s, err := dsmem.NewProvider().OpenStore("keys")
	require.NoError(t, err)
	return s
}

func setup(t *testing.T) *suite {
	ctx := context.Background()
	l := lmem.New()

	s := &suite{
		ledger:   l,
		issuer:   New(openStore(t), l),
		holder:   New(openStore(t), l),
		verifier: New(openStore(t), l),
	}

	var err error
	s.schemaID, err = l.WriteSchema(ctx, &ledger.Schema{IssuerDID: issuerDID, Name: "degree", Version: "1.0",
		AttrNames: []string{"name", "degree", "age"}})
	require.NoError(t, err)

	s.credDefID = ledger.CredDefID(issuerDID, s.schemaID, "default")
	pub, err := s.issuer.CreateCredentialDefinition(ctx, s.credDefID)
	require.NoError(t, err)

	_, err = l.WriteCredDef(ctx, &ledger.CredentialDefinition{ID: s.credDefID, SchemaID: s.schemaID,
		IssuerDID: issuerDID, Tag: "default", PublicKey: pub})
	require.NoError(t, err)

	return s
}

func (s *suite) issue(t *testing.T, attrs map[string]string, ms string) *schema.SignedCredential {
	ctx := context.Background()

	offer, err := s.issuer.CreateCredentialOffer(ctx, s.schemaID, s.credDefID)
	require.NoError(t, err)

	req, err := s.holder.CreateCredentialRequest(ctx, "holder-did", offer, ms)
	require.NoError(t, err)

	cred, err := s.issuer.SignCredential(ctx, s.credDefID, attrs, offer, req, nil)
	require.NoError(t, err)

	require.NoError(t, s.holder.VerifyCredential(ctx, cred, req))
	return cred
}

func alice() map[string]string {
	return map[string]string{"name": "Alice", "degree": "BSc", "age": "34"}
}

func proofRequest(nonce string) *schema.ProofRequest {
	return &schema.ProofRequest{
		Name:    "degree check",
		Version: "1.0",
		Nonce:   nonce,
		RequestedAttributes: map[string]*schema.AttributeRequest{
			"degree": {Name: "degree"},
		},
		RequestedPredicates: map[string]*schema.PredicateRequest{
			"adult": {Name: "age", PType: schema.PredicateGE, PValue: json.Number("18")},
		},
	}
}

func selectAll(credID string, pr *schema.ProofRequest) *schema.RequestedCredentials {
	out := &schema.RequestedCredentials{
		RequestedAttributes: map[string]*schema.RequestedAttribute{},
		RequestedPredicates: map[string]*schema.RequestedPredicate{},
	}
	for ref := range pr.RequestedAttributes {
		out.RequestedAttributes[ref] = &schema.RequestedAttribute{CredID: credID, Revealed: true}
	}
	for ref := range pr.RequestedPredicates {
		out.RequestedPredicates[ref] = &schema.RequestedPredicate{CredID: credID}
	}
	return out
}

// leaves collects every scalar in a JSON document.
func leaves(t *testing.T, v interface{}) []string {
	d, err := json.Marshal(v)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader(d))
	dec.UseNumber()
	var doc interface{}
	require.NoError(t, dec.Decode(&doc))

	var out []string
	var walk func(interface{})
	walk = func(n interface{}) {
		switch x := n.(type) {
		case map[string]interface{}:
			for _, c := range x {
				walk(c)
			}
		case []interface{}:
			for _, c := range x {
				walk(c)
			}
		case nil:
		default:
			out = append(out, fmt.Sprint(x))
		}
	}
	walk(doc)
	return out
}

func TestNonce(t *testing.T) {
	e := New(nil, nil)
	a, err := e.NewNonce()
	require.NoError(t, err)
	b, err := e.NewNonce()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Regexp(t, `^[0-9]+$`, a)
}

func TestCredential(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	t.Run("offer requires signing key", func(t *testing.T) {
		_, err := s.holder.CreateCredentialOffer(ctx, s.schemaID, s.credDefID)
		require.Error(t, err)
	})

	t.Run("issued credential verifies", func(t *testing.T) {
		cred := s.issue(t, alice(), "ms1")
		require.Equal(t, "BSc", cred.Values["degree"].Raw)
		require.Equal(t, "34", cred.Values["age"].Encoded)
	})

	t.Run("tampered value is rejected", func(t *testing.T) {
		offer, err := s.issuer.CreateCredentialOffer(ctx, s.schemaID, s.credDefID)
		require.NoError(t, err)
		req, err := s.holder.CreateCredentialRequest(ctx, "holder-did", offer, "ms1")
		require.NoError(t, err)
		cred, err := s.issuer.SignCredential(ctx, s.credDefID, alice(), offer, req, nil)
		require.NoError(t, err)

		cred.Values["degree"] = &schema.AttributeValue{Raw: "PhD", Encoded: schema.EncodeValue("PhD")}
		err = s.holder.VerifyCredential(ctx, cred, req)
		require.True(t, errors.Is(err, crypto.ErrInvalidCredential))
	})

	t.Run("request for another cred def is refused", func(t *testing.T) {
		offer, err := s.issuer.CreateCredentialOffer(ctx, s.schemaID, s.credDefID)
		require.NoError(t, err)
		req, err := s.holder.CreateCredentialRequest(ctx, "holder-did", offer, "ms1")
		require.NoError(t, err)
		req.CredDefID = "other"

		_, err = s.issuer.SignCredential(ctx, s.credDefID, alice(), offer, req, nil)
		require.Error(t, err)
	})

	t.Run("wrong master secret binding", func(t *testing.T) {
		offer, err := s.issuer.CreateCredentialOffer(ctx, s.schemaID, s.credDefID)
		require.NoError(t, err)
		req, err := s.holder.CreateCredentialRequest(ctx, "holder-did", offer, "ms1")
		require.NoError(t, err)
		other, err := s.holder.CreateCredentialRequest(ctx, "holder-did", offer, "ms2")
		require.NoError(t, err)

		cred, err := s.issuer.SignCredential(ctx, s.credDefID, alice(), offer, req, nil)
		require.NoError(t, err)
		require.True(t, errors.Is(s.holder.VerifyCredential(ctx, cred, other), crypto.ErrInvalidCredential))
	})

	t.Run("revocation info is signed", func(t *testing.T) {
		offer, err := s.issuer.CreateCredentialOffer(ctx, s.schemaID, s.credDefID)
		require.NoError(t, err)
		req, err := s.holder.CreateCredentialRequest(ctx, "holder-did", offer, "ms1")
		require.NoError(t, err)
		cred, err := s.issuer.SignCredential(ctx, s.credDefID, alice(), offer, req,
			&schema.RevocationInfo{RegistryID: "reg1", Index: 7})
		require.NoError(t, err)
		require.EqualValues(t, 7, cred.CredRevID)
		require.NoError(t, s.holder.VerifyCredential(ctx, cred, req))

		cred.CredRevID = 8
		require.Error(t, s.holder.VerifyCredential(ctx, cred, req))
	})
}

func TestProof(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	cred := s.issue(t, alice(), "ms1")
	creds := map[string]*schema.SignedCredential{"C1": cred}

	nonce, err := s.verifier.NewNonce()
	require.NoError(t, err)
	pr := proofRequest(nonce)

	pres, err := s.holder.CreateProof(ctx, pr, selectAll("C1", pr), creds, "ms1")
	require.NoError(t, err)

	t.Run("verifies", func(t *testing.T) {
		ok, err := s.verifier.VerifyProof(ctx, pres, pr)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "BSc", pres.RequestedProof.RevealedAttrs["degree"].Raw)
	})

	t.Run("predicate value is not disclosed", func(t *testing.T) {
		for _, leaf := range leaves(t, pres) {
			require.NotEqual(t, "34", leaf)
		}
	})

	t.Run("unrequested attributes are absent", func(t *testing.T) {
		for _, leaf := range leaves(t, pres) {
			require.NotEqual(t, "Alice", leaf)
			require.NotEqual(t, schema.EncodeValue("Alice"), leaf)
		}
	})

	t.Run("nonce must match", func(t *testing.T) {
		other := proofRequest("1")
		ok, err := s.verifier.VerifyProof(ctx, pres, other)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("raising the threshold fails", func(t *testing.T) {
		harder := proofRequest(nonce)
		harder.RequestedPredicates["adult"].PValue = json.Number("30")
		ok, err := s.verifier.VerifyProof(ctx, pres, harder)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("tampered revealed value fails", func(t *testing.T) {
		var forged schema.Presentation
		d, _ := json.Marshal(pres)
		require.NoError(t, json.Unmarshal(d, &forged))
		forged.RequestedProof.RevealedAttrs["degree"].Raw = "PhD"
		forged.RequestedProof.RevealedAttrs["degree"].Encoded = schema.EncodeValue("PhD")

		ok, err := s.verifier.VerifyProof(ctx, &forged, pr)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("forged witness fails", func(t *testing.T) {
		var forged schema.Presentation
		d, _ := json.Marshal(pres)
		require.NoError(t, json.Unmarshal(d, &forged))
		forged.Proof = json.RawMessage(strings.Replace(string(forged.Proof), `"witness":"`, `"witness":"00`, 1))

		ok, err := s.verifier.VerifyProof(ctx, &forged, pr)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unsatisfied predicate cannot be proven", func(t *testing.T) {
		old := proofRequest(nonce)
		old.RequestedPredicates["adult"].PValue = json.Number("35")
		_, err := s.holder.CreateProof(ctx, old, selectAll("C1", old), creds, "ms1")
		require.Error(t, err)
	})

	t.Run("strict and upper bounds", func(t *testing.T) {
		bounds := map[string]*schema.PredicateRequest{
			"gt": {Name: "age", PType: schema.PredicateGT, PValue: json.Number("33")},
			"le": {Name: "age", PType: schema.PredicateLE, PValue: json.Number("34")},
			"lt": {Name: "age", PType: schema.PredicateLT, PValue: json.Number("65")},
			"lo": {Name: "age", PType: schema.PredicateGE, PValue: json.Number("-5")},
		}
		req := &schema.ProofRequest{Name: "bounds", Version: "1.0", Nonce: nonce, RequestedPredicates: bounds}

		p, err := s.holder.CreateProof(ctx, req, selectAll("C1", req), creds, "ms1")
		require.NoError(t, err)

		ok, err := s.verifier.VerifyProof(ctx, p, req)
		require.NoError(t, err)
		require.True(t, ok)

		strict := &schema.ProofRequest{Name: "bounds", Version: "1.0", Nonce: nonce,
			RequestedPredicates: map[string]*schema.PredicateRequest{
				"lt": {Name: "age", PType: schema.PredicateLT, PValue: json.Number("34")},
			}}
		_, err = s.holder.CreateProof(ctx, strict, selectAll("C1", strict), creds, "ms1")
		require.Error(t, err)
	})

	t.Run("unrevealed and grouped attributes", func(t *testing.T) {
		req := &schema.ProofRequest{Name: "groups", Version: "1.0", Nonce: nonce,
			RequestedAttributes: map[string]*schema.AttributeRequest{
				"name":  {Name: "name"},
				"group": {Names: []string{"degree", "age"}},
			}}
		sel := selectAll("C1", req)
		sel.RequestedAttributes["name"].Revealed = false

		p, err := s.holder.CreateProof(ctx, req, sel, creds, "ms1")
		require.NoError(t, err)
		require.Contains(t, p.RequestedProof.UnrevealedAttrs, "name")
		require.Equal(t, "34", p.RequestedProof.RevealedAttrGroups["group"].Values["age"].Raw)

		for _, leaf := range leaves(t, p) {
			require.NotEqual(t, "Alice", leaf)
		}

		ok, err := s.verifier.VerifyProof(ctx, p, req)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("credential of another holder", func(t *testing.T) {
		_, err := s.holder.CreateCredentialRequest(ctx, "holder-did",
			&schema.CredentialOffer{CredDefID: s.credDefID, Nonce: "1"}, "ms2")
		require.NoError(t, err)

		_, err = s.holder.CreateProof(ctx, pr, selectAll("C1", pr), creds, "ms2")
		require.Error(t, err)
	})

	t.Run("null entries are rejected", func(t *testing.T) {
		d, err := json.Marshal(pres)
		require.NoError(t, err)

		edits := map[string]func(m map[string]interface{}){
			"sub proof": func(m map[string]interface{}) {
				m["proof"].(map[string]interface{})["sub_proofs"].([]interface{})[0] = nil
			},
			"revealed attr": func(m map[string]interface{}) {
				rp := m["requested_proof"].(map[string]interface{})
				rp["revealed_attrs"].(map[string]interface{})["degree"] = nil
			},
			"predicate referent": func(m map[string]interface{}) {
				rp := m["requested_proof"].(map[string]interface{})
				rp["predicates"].(map[string]interface{})["adult"] = nil
			},
			"predicate proof": func(m map[string]interface{}) {
				sp := m["proof"].(map[string]interface{})["sub_proofs"].([]interface{})[0].(map[string]interface{})
				sp["predicates"].(map[string]interface{})["adult"] = nil
			},
		}

		for name, edit := range edits {
			t.Run(name, func(t *testing.T) {
				m := map[string]interface{}{}
				require.NoError(t, json.Unmarshal(d, &m))
				edit(m)
				nd, err := json.Marshal(m)
				require.NoError(t, err)

				var forged schema.Presentation
				require.NoError(t, json.Unmarshal(nd, &forged))

				var ok bool
				require.NotPanics(t, func() {
					ok, err = s.verifier.VerifyProof(ctx, &forged, pr)
				})
				require.NoError(t, err)
				require.False(t, ok)
			})
		}
	})

	t.Run("null group and unrevealed entries are rejected", func(t *testing.T) {
		req := &schema.ProofRequest{Name: "groups", Version: "1.0", Nonce: nonce,
			RequestedAttributes: map[string]*schema.AttributeRequest{
				"name":  {Name: "name"},
				"group": {Names: []string{"degree", "age"}},
			}}
		sel := selectAll("C1", req)
		sel.RequestedAttributes["name"].Revealed = false

		p, err := s.holder.CreateProof(ctx, req, sel, creds, "ms1")
		require.NoError(t, err)

		forge := func(edit func(rp *schema.RequestedProof)) *schema.Presentation {
			var forged schema.Presentation
			d, _ := json.Marshal(p)
			require.NoError(t, json.Unmarshal(d, &forged))
			edit(forged.RequestedProof)
			return &forged
		}

		for name, forged := range map[string]*schema.Presentation{
			"group":      forge(func(rp *schema.RequestedProof) { rp.RevealedAttrGroups["group"] = nil }),
			"value":      forge(func(rp *schema.RequestedProof) { rp.RevealedAttrGroups["group"].Values["age"] = nil }),
			"unrevealed": forge(func(rp *schema.RequestedProof) { rp.UnrevealedAttrs["name"] = nil }),
		} {
			var ok bool
			require.NotPanics(t, func() {
				ok, err = s.verifier.VerifyProof(ctx, forged, req)
			}, name)
			require.NoError(t, err, name)
			require.False(t, ok, name)
		}
	})

	t.Run("bare presentation with null sub proof", func(t *testing.T) {
		var bare schema.Presentation
		require.NoError(t, json.Unmarshal([]byte(`{"proof":{"nonce":"1","sub_proofs":[null]},"requested_proof":{},
			"identifiers":[{"schema_id":"x"}]}`), &bare))

		req := proofRequest("1")
		var ok bool
		require.NotPanics(t, func() {
			ok, err = s.verifier.VerifyProof(ctx, &bare, req)
		})
		require.NoError(t, err)
		require.False(t, ok)

		var nulls schema.Presentation
		require.NoError(t, json.Unmarshal([]byte(`{"requested_proof":{"revealed_attrs":{"a":null}}}`), &nulls))
		require.NotPanics(t, func() {
			ok, err = s.verifier.VerifyProof(ctx, &nulls, req)
		})
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown cred def is a dependency failure", func(t *testing.T) {
		empty := New(openStore(t), lmem.New())
		_, err := empty.VerifyProof(ctx, pres, pr)
		require.Error(t, err)
		require.True(t, errors.Is(err, ledger.ErrNotFound))
	})
}
