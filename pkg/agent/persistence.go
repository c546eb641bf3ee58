/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/did"
)

// SelfKeyID is the id the agent's public DID key pair is stored under, next to its copy keyed by verkey.
const SelfKeyID = "self"

const didMethod = "sov"

// loadIdentity returns the agent's public DID, creating and saving it from seed when none is stored.
func loadIdentity(store datastore.Store, seed string) (*did.DID, *did.KeyPair, error) {
	rec, err := store.GetKey(SelfKeyID)
	if err == nil {
		return restoreIdentity(rec)
	}
	if !errors.Is(err, datastore.ErrNotFound) {
		return nil, nil, errors.Wrap(err, "unable to load agent identity")
	}

	d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Seed: seed, Cid: true, MethodName: didMethod})
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to create agent DID")
	}

	err = saveIdentity(store, kp)
	if err != nil {
		return nil, nil, err
	}

	return d, kp, nil
}

func saveIdentity(store datastore.Store, kp *did.KeyPair) error {
	now := time.Now().UTC().Truncate(time.Millisecond)

	byVerkey := kp.Record()
	byVerkey.CreatedAt = now
	err := store.InsertKey(byVerkey)
	if err != nil && !errors.Is(err, datastore.ErrDuplicate) {
		return errors.Wrap(err, "unable to save agent key")
	}

	self := kp.Record()
	self.ID = SelfKeyID
	self.CreatedAt = now
	err = store.InsertKey(self)
	if err != nil {
		return errors.Wrap(err, "unable to save agent identity")
	}

	return nil
}

// restoreIdentity derives the DID again from the stored private key.
func restoreIdentity(rec *datastore.KeyPair) (*did.DID, *did.KeyPair, error) {
	kp := did.FromRecord(rec)
	priv := kp.Priv()
	if len(priv) != ed25519.PrivateKeySize {
		return nil, nil, errors.New("stored agent identity has no private key")
	}

	d, restored, err := did.CreateMyDid(&did.MyDIDInfo{Seed: string(priv.Seed()), Cid: true, MethodName: didMethod})
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to restore agent DID")
	}

	if restored.Verkey() != rec.PublicKey {
		return nil, nil, errors.Errorf("stored agent identity %s does not match its private key", rec.PublicKey)
	}

	return d, restored, nil
}
