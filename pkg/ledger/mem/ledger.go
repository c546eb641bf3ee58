/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem is an in-process ledger used for development agents and tests.
package mem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/ledger"
)

type Ledger struct {
	mu          sync.RWMutex
	dids        map[string]*ledger.ServiceEndpoint
	schemas     map[string]*ledger.Schema
	credDefs    map[string]*ledger.CredentialDefinition
	registries  map[string]*ledger.RevocationRegistry
	revocations map[string]map[int64]int64
	now         func() time.Time
}

type Option func(l *Ledger)

// WithClock overrides the clock used to timestamp revocations.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		dids:        map[string]*ledger.ServiceEndpoint{},
		schemas:     map[string]*ledger.Schema{},
		credDefs:    map[string]*ledger.CredentialDefinition{},
		registries:  map[string]*ledger.RevocationRegistry{},
		revocations: map[string]map[int64]int64{},
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (r *Ledger) ResolveDID(_ context.Context, did string) (*ledger.ServiceEndpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.dids[unqualify(did)]
	if !ok {
		return nil, errors.Wrap(ledger.ErrUnresolvableDID, did)
	}

	out := *ep
	return &out, nil
}

func (r *Ledger) ReadSchema(_ context.Context, id string) (*ledger.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[id]
	if !ok {
		return nil, errors.Wrapf(ledger.ErrNotFound, "schema %s", id)
	}

	out := *s
	out.AttrNames = append([]string{}, s.AttrNames...)
	return &out, nil
}

func (r *Ledger) ReadCredDef(_ context.Context, id string) (*ledger.CredentialDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cd, ok := r.credDefs[id]
	if !ok {
		return nil, errors.Wrapf(ledger.ErrNotFound, "credential definition %s", id)
	}

	out := *cd
	return &out, nil
}

func (r *Ledger) ReadRevocationDelta(_ context.Context, registryID string, index, from, to int64) (*ledger.RevocationStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.registries[registryID]; !ok {
		return nil, errors.Wrapf(ledger.ErrNotFound, "revocation registry %s", registryID)
	}

	if to == 0 {
		to = r.now().Unix()
	}
	if from > to {
		return nil, errors.Errorf("invalid interval [%d, %d]", from, to)
	}

	revokedAt, ok := r.revocations[registryID][index]

	return &ledger.RevocationStatus{
		Revoked:   ok && revokedAt <= to,
		Timestamp: to,
	}, nil
}

func (r *Ledger) WriteDID(_ context.Context, ep *ledger.ServiceEndpoint) error {
	if ep == nil || ep.DID == "" {
		return errors.New("DID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := *ep
	r.dids[unqualify(ep.DID)] = &out
	return nil
}

func (r *Ledger) WriteSchema(_ context.Context, s *ledger.Schema) (string, error) {
	if s.Name == "" || s.Version == "" || len(s.AttrNames) == 0 {
		return "", errors.New("schema requires a name, version and attributes")
	}

	id := s.ID
	if id == "" {
		id = ledger.SchemaID(s.IssuerDID, s.Name, s.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schemas[id]; ok {
		return "", errors.Errorf("schema %s already exists", id)
	}

	out := *s
	out.ID = id
	out.AttrNames = append([]string{}, s.AttrNames...)
	r.schemas[id] = &out

	return id, nil
}

func (r *Ledger) WriteCredDef(_ context.Context, cd *ledger.CredentialDefinition) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schemas[cd.SchemaID]; !ok {
		return "", errors.Wrapf(ledger.ErrNotFound, "schema %s", cd.SchemaID)
	}

	id := cd.ID
	if id == "" {
		id = ledger.CredDefID(cd.IssuerDID, cd.SchemaID, cd.Tag)
	}

	if _, ok := r.credDefs[id]; ok {
		return "", errors.Errorf("credential definition %s already exists", id)
	}

	out := *cd
	out.ID = id
	r.credDefs[id] = &out

	return id, nil
}

func (r *Ledger) WriteRevocationRegistry(_ context.Context, reg *ledger.RevocationRegistry) (string, error) {
	if reg.MaxCredNum <= 0 {
		return "", errors.New("max_cred_num must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cd, ok := r.credDefs[reg.CredDefID]
	if !ok {
		return "", errors.Wrapf(ledger.ErrNotFound, "credential definition %s", reg.CredDefID)
	}

	id := reg.ID
	if id == "" {
		id = ledger.RevocationRegistryID(reg.IssuerDID, reg.CredDefID, reg.Tag)
	}

	out := *reg
	out.ID = id
	r.registries[id] = &out
	r.revocations[id] = map[int64]int64{}
	cd.RevocationRegistryID = id

	return id, nil
}

func (r *Ledger) WriteRevocation(_ context.Context, registryID string, indexes ...int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.registries[registryID]
	if !ok {
		return errors.Wrapf(ledger.ErrNotFound, "revocation registry %s", registryID)
	}

	now := r.now().Unix()
	for _, idx := range indexes {
		if idx < 1 || idx > reg.MaxCredNum {
			return errors.Errorf("index %d out of range for registry %s", idx, registryID)
		}

		if _, done := r.revocations[registryID][idx]; !done {
			r.revocations[registryID][idx] = now
		}
	}

	return nil
}

func unqualify(did string) string {
	if strings.HasPrefix(did, "did:") {
		parts := strings.SplitN(did, ":", 3)
		if len(parts) == 3 {
			return parts[2]
		}
	}

	return did
}
