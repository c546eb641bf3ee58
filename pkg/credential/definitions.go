/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
)

const (
	defaultTag         = "default"
	revocationRegistry = "1"
)

// CreateSchema publishes a schema under the agent's public DID.
func (r *Supervisor) CreateSchema(ctx context.Context, name, version string, attrs []string) (*ledger.Schema, error) {
	if name == "" || version == "" {
		return nil, exchange.Protocol(exchange.ErrInvalidAttributes, "schema name and version are required")
	}

	if len(attrs) == 0 {
		return nil, exchange.Protocol(exchange.ErrInvalidAttributes, "schema %s declares no attributes", name)
	}

	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if a == "" || seen[a] {
			return nil, exchange.Protocol(exchange.ErrInvalidAttributes, "schema attribute %q is empty or repeated", a)
		}
		seen[a] = true
	}

	s := &ledger.Schema{
		IssuerDID: r.publicDID,
		Name:      name,
		Version:   version,
		AttrNames: attrs,
	}

	lctx, cancel := r.timeouts.LedgerContext(ctx)
	defer cancel()

	id, err := r.ledger.WriteSchema(lctx, s)
	if err != nil {
		return nil, exchange.Dependency(err, "unable to write schema %s", name)
	}
	s.ID = id

	r.log.Info("schema published", zap.String("schemaID", id))
	return s, nil
}

type definitionOpts struct {
	tag        string
	maxCredNum int64
}

type DefinitionOption func(*definitionOpts)

func WithTag(tag string) DefinitionOption {
	return func(o *definitionOpts) {
		o.tag = tag
	}
}

// WithRevocation makes credentials issued under the definition revocable, with room for maxCredNum of them.
func WithRevocation(maxCredNum int64) DefinitionOption {
	return func(o *definitionOpts) {
		o.maxCredNum = maxCredNum
	}
}

// CreateCredentialDefinition creates signing keys for schemaID and publishes the definition, plus its
// revocation registry when requested.
func (r *Supervisor) CreateCredentialDefinition(ctx context.Context, schemaID string, opts ...DefinitionOption) (*ledger.CredentialDefinition, error) {
	o := &definitionOpts{tag: defaultTag}
	for _, opt := range opts {
		opt(o)
	}

	if o.maxCredNum < 0 {
		return nil, errors.Errorf("max_cred_num must be positive, got %d", o.maxCredNum)
	}

	lctx, cancel := r.timeouts.LedgerContext(ctx)
	defer cancel()

	s, err := r.ledger.ReadSchema(lctx, schemaID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, errors.Wrapf(err, "schema %s", schemaID)
		}
		return nil, exchange.Dependency(err, "unable to read schema %s", schemaID)
	}

	cd := &ledger.CredentialDefinition{
		ID:        ledger.CredDefID(r.publicDID, s.ID, o.tag),
		SchemaID:  s.ID,
		IssuerDID: r.publicDID,
		Tag:       o.tag,
	}

	cctx, ccancel := r.timeouts.CryptoContext(ctx)
	defer ccancel()

	cd.PublicKey, err = r.crypto.CreateCredentialDefinition(cctx, cd.ID)
	if err != nil {
		return nil, exchange.Dependency(err, "unable to create keys for %s", cd.ID)
	}

	cd.ID, err = r.ledger.WriteCredDef(lctx, cd)
	if err != nil {
		return nil, exchange.Dependency(err, "unable to write credential definition for %s", schemaID)
	}

	// The registry is written before anything reads the definition back; cached reads would
	// otherwise miss it.
	if o.maxCredNum > 0 {
		cd.RevocationRegistryID, err = r.ledger.WriteRevocationRegistry(lctx, &ledger.RevocationRegistry{
			CredDefID:  cd.ID,
			IssuerDID:  r.publicDID,
			Tag:        revocationRegistry,
			MaxCredNum: o.maxCredNum,
		})
		if err != nil {
			return nil, exchange.Dependency(err, "unable to write revocation registry for %s", cd.ID)
		}
	}

	r.log.Info("credential definition published", zap.String("credDefID", cd.ID),
		zap.Bool("revocable", cd.SupportsRevocation()))
	return cd, nil
}
