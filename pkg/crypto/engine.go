/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package crypto defines the signature engine the exchange coordinators rely on. The engine owns all
// key material; callers only ever see identifiers and opaque signatures.
package crypto

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/schema"
)

// ErrInvalidCredential is returned when a credential fails verification, as opposed to verification
// being unable to run.
var ErrInvalidCredential = errors.New("invalid credential")

// DefaultMasterSecret names the master secret an agent binds all of its credentials to.
const DefaultMasterSecret = "default"

//go:generate mockery -name=Engine
type Engine interface {
	// CreateCredentialDefinition creates signing keys for credDefID and returns the public key to publish.
	CreateCredentialDefinition(ctx context.Context, credDefID string) (string, error)
	CreateCredentialOffer(ctx context.Context, schemaID, credDefID string) (*schema.CredentialOffer, error)
	// CreateCredentialRequest binds the offer to the holder's master secret, creating it on first use.
	CreateCredentialRequest(ctx context.Context, proverDID string, offer *schema.CredentialOffer,
		masterSecretID string) (*schema.CredentialRequest, error)
	SignCredential(ctx context.Context, credDefID string, attrs map[string]string, offer *schema.CredentialOffer,
		request *schema.CredentialRequest, rev *schema.RevocationInfo) (*schema.SignedCredential, error)
	// VerifyCredential checks a received credential before the holder stores it.
	VerifyCredential(ctx context.Context, cred *schema.SignedCredential, request *schema.CredentialRequest) error
	CreateProof(ctx context.Context, pr *schema.ProofRequest, requested *schema.RequestedCredentials,
		creds map[string]*schema.SignedCredential, masterSecretID string) (*schema.Presentation, error)
	// VerifyProof returns false for a proof that does not verify. An error means verification could not run.
	VerifyProof(ctx context.Context, pres *schema.Presentation, pr *schema.ProofRequest) (bool, error)
	NewNonce() (string, error)
}
