/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/exchange"
)

// HandleRequest records a proof request from a verifier.
func (r *Supervisor) HandleRequest(ctx context.Context, connectionID string, msg *message.RequestPresentation) (*datastore.PresentationExchange, error) {
	if msg.ProofRequest == nil {
		return nil, exchange.Protocol(exchange.ErrInvalidProofRequest, "request %s carries no proof request", msg.ID)
	}

	if err := msg.ProofRequest.Validate(); err != nil {
		return nil, exchange.Protocol(exchange.ErrInvalidProofRequest, "%s", err)
	}

	unlock, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ex, err := r.store.GetPresentationExchangeByThread(connectionID, msg.ThreadID())
	if err == nil {
		return ex, nil
	}
	if !errors.Is(err, datastore.ErrNotFound) {
		return nil, errors.Wrap(err, "unable to look up presentation exchange")
	}

	now := r.now()
	ex = &datastore.PresentationExchange{
		ExchangeID:   uuid.New().String(),
		ConnectionID: connectionID,
		ThreadID:     msg.ThreadID(),
		Role:         datastore.RoleProver,
		ProofRequest: msg.ProofRequest,
	}
	ex.ThreadTime = msg.SentAt()
	ex.CreatedAt = now
	ex.Record(msg.ID)
	ex.Transition(datastore.PresentationRequested, now)

	err = r.store.InsertPresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("proof requested", zap.String("exchangeID", ex.ExchangeID), zap.String("name", ex.ProofRequest.Name))
	r.notify(ex)

	return ex, nil
}

// CredentialsForRequest lists the wallet credentials that can answer each referent of the request.
func (r *Supervisor) CredentialsForRequest(ctx context.Context, exchangeID string) (*Matches, error) {
	ex, err := r.store.GetPresentationExchange(exchangeID)
	if err != nil {
		return nil, err
	}

	if ex.Role != datastore.RoleProver {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	pool, err := r.pool(ctx, nil)
	if err != nil {
		return nil, err
	}

	return match(ex.ProofRequest, pool), nil
}

// pool resolves the selected wallet credentials, or the whole wallet when none are selected.
func (r *Supervisor) pool(ctx context.Context, selected []string) ([]*candidate, error) {
	var held []*datastore.HeldCredential
	if len(selected) == 0 {
		list, err := r.store.ListCredentials(&datastore.CredentialCriteria{})
		if err != nil {
			return nil, errors.Wrap(err, "unable to list credentials")
		}
		held = list.Credentials
	}

	for _, id := range selected {
		h, err := r.store.GetCredential(id)
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, exchange.Protocol(exchange.ErrNoMatchingCredential, "credential %s is not in the wallet", id)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "unable to load credential %s", id)
		}
		held = append(held, h)
	}

	return r.candidates(ctx, held)
}

type presentOpts struct {
	unrevealed map[string]bool
}

type PresentOption func(*presentOpts)

// WithUnrevealed proves the named attribute referents without disclosing their values.
func WithUnrevealed(referents ...string) PresentOption {
	return func(o *presentOpts) {
		for _, ref := range referents {
			o.unrevealed[ref] = true
		}
	}
}

// SelectAndPresent answers the request with one presentation built from the selected credentials,
// or from the whole wallet when none are selected.
func (r *Supervisor) SelectAndPresent(ctx context.Context, exchangeID string, selected []string, opts ...PresentOption) (*datastore.PresentationExchange, error) {
	o := &presentOpts{unrevealed: map[string]bool{}}
	for _, opt := range opts {
		opt(o)
	}

	ctx, done := r.inflight.Begin(ctx, exchangeID)
	defer done()

	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Role != datastore.RoleProver || !ex.Ready(datastore.PresentationRequested) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	pool, err := r.pool(ctx, selected)
	if err != nil {
		if exchange.IsDependencyError(err) {
			return ex, r.fail(ex, err)
		}
		return nil, err
	}

	requested, creds, err := choose(ex.ProofRequest, match(ex.ProofRequest, pool), o.unrevealed)
	if err != nil {
		return nil, err
	}

	cctx, cancel := r.timeouts.CryptoContext(ctx)
	pres, err := r.crypto.CreateProof(cctx, ex.ProofRequest, requested, creds, crypto.DefaultMasterSecret)
	cancel()
	if err != nil {
		return ex, r.fail(ex, exchange.Dependency(err, "unable to create proof"))
	}

	prev := ex.Effective()
	ex.Presentation = pres
	ex.Transition(datastore.PresentationPresented, r.now())

	err = r.store.UpdatePresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("proof presented", zap.String("exchangeID", ex.ExchangeID), zap.Int("credentials", len(creds)))

	msg := &message.Presentation{
		Header:       message.Reply(message.PresentationType, ex.ThreadID),
		Presentation: pres,
	}

	err = r.send(ctx, ex, msg, prev, "")
	r.notify(ex)
	return ex, err
}

// Decline refuses the request. Both sides end up rejected.
func (r *Supervisor) Decline(ctx context.Context, exchangeID, reason string) (*datastore.PresentationExchange, error) {
	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Role != datastore.RoleProver || !ex.Ready(datastore.PresentationRequested) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	ex.Transition(datastore.PresentationRejected, r.now())
	ex.Error = reason

	err = r.store.UpdatePresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("proof request declined", zap.String("exchangeID", ex.ExchangeID))
	r.report(ctx, ex, message.CodeRequestNotAccepted, reason)
	r.notify(ex)

	return ex, nil
}

// HandleAck records that the verifier accepted the presentation.
func (r *Supervisor) HandleAck(ctx context.Context, connectionID string, ack *message.Ack) (*datastore.PresentationExchange, error) {
	ex, unlock, err := r.lockThread(ctx, connectionID, ack.ThreadID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Seen(ack.ID) {
		return ex, nil
	}

	ok, err := advance(ex, datastore.RoleProver, datastore.PresentationPresented, datastore.PresentationVerified)
	if err != nil || !ok {
		return ex, err
	}

	verified := true
	ex.Verified = &verified
	ex.Record(ack.ID)
	ex.Transition(datastore.PresentationVerified, r.now())

	err = r.store.UpdatePresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("presentation accepted by verifier", zap.String("exchangeID", ex.ExchangeID))
	r.notify(ex)

	return ex, nil
}
