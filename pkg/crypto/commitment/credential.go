/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commitment

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/did"
	"github.com/scoir/credex/pkg/schema"
)

// signedContent is what the issuer signs. Maps marshal with sorted keys so the encoding is stable.
type signedContent struct {
	SchemaID     string            `json:"schema_id"`
	CredDefID    string            `json:"cred_def_id"`
	RevRegID     string            `json:"rev_reg_id,omitempty"`
	CredRevID    int64             `json:"cred_rev_id,omitempty"`
	Commitments  map[string]string `json:"commitments"`
	GE           map[string]string `json:"ge,omitempty"`
	LE           map[string]string `json:"le,omitempty"`
	Binding      string            `json:"binding"`
	BindingNonce string            `json:"binding_nonce"`
}

func (r *signedContent) bytes() []byte {
	d, _ := json.Marshal(r)
	return d
}

type rangeSeeds struct {
	GE string `json:"ge"`
	LE string `json:"le"`
}

// credentialSignature is the holder's private copy: the signed content plus every opening.
type credentialSignature struct {
	Content signedContent          `json:"content"`
	Sig     string                 `json:"sig"`
	Salts   map[string]string      `json:"salts"`
	Seeds   map[string]*rangeSeeds `json:"range_seeds,omitempty"`
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(crypto.ErrInvalidCredential, format, args...)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "unable to read random bytes")
	}
	return hex.EncodeToString(b), nil
}

func commit(salt, encoded string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(encoded))
	return hex.EncodeToString(h.Sum(nil))
}

// chain applies sha256 n times to the hex encoded seed.
func chain(seed string, n int64) string {
	b, err := hex.DecodeString(seed)
	if err != nil {
		return ""
	}

	for i := int64(0); i < n; i++ {
		s := sha256.Sum256(b)
		b = s[:]
	}

	return hex.EncodeToString(b)
}

func rangeValue(encoded string) (int64, bool) {
	v, ok := schema.EncodedInt(encoded)
	if !ok || v < 0 || v > MaxRangeValue {
		return 0, false
	}
	return v, true
}

func (r *Engine) SignCredential(ctx context.Context, credDefID string, attrs map[string]string,
	offer *schema.CredentialOffer, request *schema.CredentialRequest, rev *schema.RevocationInfo) (*schema.SignedCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if offer == nil || request == nil {
		return nil, errors.New("offer and request are required")
	}
	if offer.CredDefID != credDefID || request.CredDefID != credDefID {
		return nil, errors.Errorf("request is not for credential definition %s", credDefID)
	}
	if request.BlindedMS == "" {
		return nil, errors.New("request is not bound to a master secret")
	}

	kp, err := r.signingKey(credDefID)
	if err != nil {
		return nil, err
	}

	values := schema.NewValues(attrs)
	sig := &credentialSignature{
		Content: signedContent{
			SchemaID:     offer.SchemaID,
			CredDefID:    credDefID,
			Commitments:  map[string]string{},
			GE:           map[string]string{},
			LE:           map[string]string{},
			Binding:      request.BlindedMS,
			BindingNonce: offer.Nonce,
		},
		Salts: map[string]string{},
		Seeds: map[string]*rangeSeeds{},
	}

	if rev != nil {
		sig.Content.RevRegID = rev.RegistryID
		sig.Content.CredRevID = rev.Index
	}

	for name, v := range values {
		salt, err := randomHex(16)
		if err != nil {
			return nil, err
		}
		sig.Salts[name] = salt
		sig.Content.Commitments[name] = commit(salt, v.Encoded)

		n, ok := rangeValue(v.Encoded)
		if !ok {
			continue
		}

		seeds := &rangeSeeds{}
		if seeds.GE, err = randomHex(32); err != nil {
			return nil, err
		}
		if seeds.LE, err = randomHex(32); err != nil {
			return nil, err
		}
		sig.Seeds[name] = seeds
		sig.Content.GE[name] = chain(seeds.GE, n)
		sig.Content.LE[name] = chain(seeds.LE, MaxRangeValue-n)
	}

	signature, err := kp.Sign(sig.Content.bytes())
	if err != nil {
		return nil, errors.Wrap(err, "unable to sign credential")
	}
	sig.Sig = base58.Encode(signature)

	d, err := json.Marshal(sig)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal credential signature")
	}

	return &schema.SignedCredential{
		ID:        uuid.New().String(),
		SchemaID:  sig.Content.SchemaID,
		CredDefID: credDefID,
		RevRegID:  sig.Content.RevRegID,
		CredRevID: sig.Content.CredRevID,
		Values:    values,
		Signature: d,
	}, nil
}

func (r *Engine) verifySignature(ctx context.Context, content *signedContent, sig string) error {
	cd, err := r.ledger.ReadCredDef(ctx, content.CredDefID)
	if err != nil {
		return errors.Wrapf(err, "unable to read credential definition %s", content.CredDefID)
	}

	raw, err := base58.Decode(sig)
	if err != nil {
		return invalid("malformed signature")
	}

	if err := did.Verify(cd.PublicKey, content.bytes(), raw); err != nil {
		return invalid("%s", err)
	}

	return nil
}

func (r *Engine) VerifyCredential(ctx context.Context, cred *schema.SignedCredential, request *schema.CredentialRequest) error {
	if cred == nil {
		return invalid("credential is required")
	}

	sig := &credentialSignature{}
	if err := json.Unmarshal(cred.Signature, sig); err != nil {
		return invalid("malformed credential signature: %s", err)
	}

	c := &sig.Content
	if c.CredDefID != cred.CredDefID || c.SchemaID != cred.SchemaID || c.RevRegID != cred.RevRegID ||
		c.CredRevID != cred.CredRevID {
		return invalid("credential identifiers do not match the signature")
	}

	if request != nil && c.Binding != request.BlindedMS {
		return invalid("credential is not bound to the request's master secret")
	}

	if len(c.Commitments) != len(cred.Values) {
		return invalid("credential attributes do not match the signature")
	}

	for name, v := range cred.Values {
		if v.Encoded != schema.EncodeValue(v.Raw) {
			return invalid("attribute %s is not correctly encoded", name)
		}
		if commit(sig.Salts[name], v.Encoded) != c.Commitments[name] {
			return invalid("attribute %s does not match its commitment", name)
		}

		n, ok := rangeValue(v.Encoded)
		if !ok {
			continue
		}
		seeds := sig.Seeds[name]
		if seeds == nil || chain(seeds.GE, n) != c.GE[name] || chain(seeds.LE, MaxRangeValue-n) != c.LE[name] {
			return invalid("attribute %s does not match its range commitment", name)
		}
	}

	if err := r.verifySignature(ctx, c, sig.Sig); err != nil {
		return err
	}

	return nil
}
