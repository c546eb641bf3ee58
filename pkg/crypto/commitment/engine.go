/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package commitment is a development signature engine. Credentials are ed25519 signatures over salted
// per-attribute hash commitments; predicates are proven with hash chains so the compared value is never
// disclosed. It is not an anonymous credential scheme: the same credential is linkable across proofs.
package commitment

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/did"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/schema"
)

// MaxRangeValue is the largest attribute value that predicates can be proven over.
const MaxRangeValue = 1 << 16

const (
	credDefKeyPrefix      = "creddef:"
	masterSecretKeyPrefix = "ms:"
)

var nonceMax = new(big.Int).Lsh(big.NewInt(1), 80)

// KeyStore persists private key material.
type KeyStore interface {
	InsertKey(k *datastore.KeyPair) error
	GetKey(id string) (*datastore.KeyPair, error)
}

type Engine struct {
	keys   KeyStore
	ledger ledger.Reader
}

// New returns an engine storing keys in keys and reading published public keys from lr.
func New(keys KeyStore, lr ledger.Reader) *Engine {
	return &Engine{keys: keys, ledger: lr}
}

func (r *Engine) NewNonce() (string, error) {
	n, err := rand.Int(rand.Reader, nonceMax)
	if err != nil {
		return "", errors.Wrap(err, "unable to generate nonce")
	}

	return n.String(), nil
}

func (r *Engine) CreateCredentialDefinition(ctx context.Context, credDefID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, kp, err := did.CreateMyDid(&did.MyDIDInfo{})
	if err != nil {
		return "", errors.Wrap(err, "unable to create credential definition keys")
	}

	rec := kp.Record()
	rec.ID = credDefKeyPrefix + credDefID
	if err := r.keys.InsertKey(rec); err != nil {
		return "", errors.Wrapf(err, "unable to store keys for %s", credDefID)
	}

	return kp.Verkey(), nil
}

func (r *Engine) signingKey(credDefID string) (*did.KeyPair, error) {
	rec, err := r.keys.GetKey(credDefKeyPrefix + credDefID)
	if err != nil {
		return nil, errors.Wrapf(err, "no signing key for %s", credDefID)
	}

	return did.FromRecord(rec), nil
}

func (r *Engine) CreateCredentialOffer(ctx context.Context, schemaID, credDefID string) (*schema.CredentialOffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := r.signingKey(credDefID); err != nil {
		return nil, err
	}

	nonce, err := r.NewNonce()
	if err != nil {
		return nil, err
	}

	return &schema.CredentialOffer{
		SchemaID:  schemaID,
		CredDefID: credDefID,
		Nonce:     nonce,
	}, nil
}

func (r *Engine) masterSecret(id string, create bool) ([]byte, error) {
	rec, err := r.keys.GetKey(masterSecretKeyPrefix + id)
	if err == nil {
		return hex.DecodeString(rec.PrivateKey)
	}

	if !create || !errors.Is(err, datastore.ErrNotFound) {
		return nil, errors.Wrapf(err, "unable to load master secret %s", id)
	}

	ms := make([]byte, 32)
	if _, err := rand.Read(ms); err != nil {
		return nil, errors.Wrap(err, "unable to generate master secret")
	}

	err = r.keys.InsertKey(&datastore.KeyPair{ID: masterSecretKeyPrefix + id, PrivateKey: hex.EncodeToString(ms)})
	if errors.Is(err, datastore.ErrDuplicate) {
		return r.masterSecret(id, false)
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to store master secret")
	}

	return ms, nil
}

func blind(ms []byte, nonce string) string {
	h := sha256.New()
	h.Write(ms)
	h.Write([]byte(nonce))
	return hex.EncodeToString(h.Sum(nil))
}

func (r *Engine) CreateCredentialRequest(ctx context.Context, proverDID string, offer *schema.CredentialOffer,
	masterSecretID string) (*schema.CredentialRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if offer == nil || offer.Nonce == "" {
		return nil, errors.New("credential offer has no nonce")
	}

	ms, err := r.masterSecret(masterSecretID, true)
	if err != nil {
		return nil, err
	}

	nonce, err := r.NewNonce()
	if err != nil {
		return nil, err
	}

	return &schema.CredentialRequest{
		ProverDID: proverDID,
		CredDefID: offer.CredDefID,
		BlindedMS: blind(ms, offer.Nonce),
		Nonce:     nonce,
	}, nil
}
