/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/schema"
)

const (
	defaultName    = "proof-request"
	defaultVersion = "1.0"
)

// Names of the checks Verify records.
const (
	CheckProof         = "proof"
	CheckNonRevocation = "non_revocation"
	CheckRestrictions  = "restrictions"
)

// SendRequest asks the counterparty on connectionID for a proof. Name, version and nonce are filled
// in when missing.
func (r *Supervisor) SendRequest(ctx context.Context, connectionID string, pr *schema.ProofRequest, comment string) (*datastore.PresentationExchange, error) {
	if pr == nil {
		return nil, exchange.Protocol(exchange.ErrInvalidProofRequest, "proof request is required")
	}

	if err := pr.Validate(); err != nil {
		return nil, exchange.Protocol(exchange.ErrInvalidProofRequest, "%s", err)
	}

	conn, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load connection %s", connectionID)
	}
	if conn.State != datastore.ConnectionComplete {
		return nil, exchange.InvalidTransition("connection", conn.ConnectionID, conn.State)
	}

	req := *pr
	if req.Name == "" {
		req.Name = defaultName
	}
	if req.Version == "" {
		req.Version = defaultVersion
	}
	if req.Nonce == "" {
		req.Nonce, err = r.crypto.NewNonce()
		if err != nil {
			return nil, exchange.Dependency(err, "unable to create nonce")
		}
	}

	msg := &message.RequestPresentation{
		Header:       message.NewHeader(message.RequestPresentationType),
		Comment:      comment,
		ProofRequest: &req,
	}

	now := r.now()
	ex := &datastore.PresentationExchange{
		ExchangeID:   uuid.New().String(),
		ConnectionID: connectionID,
		ThreadID:     msg.ID,
		Role:         datastore.RoleVerifier,
		ProofRequest: &req,
	}
	ex.ThreadTime = msg.SentAt()
	ex.CreatedAt = now
	ex.Transition(datastore.PresentationRequested, now)

	unlock, err := r.store.Lock(ctx, ex.ExchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = r.store.InsertPresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("proof requested", zap.String("exchangeID", ex.ExchangeID), zap.String("connectionID", connectionID))

	err = r.send(ctx, ex, msg, "", "")
	r.notify(ex)
	return ex, err
}

// HandlePresentation records the prover's presentation. Once a verdict is reached no other
// presentation is accepted on the exchange.
func (r *Supervisor) HandlePresentation(ctx context.Context, connectionID string, msg *message.Presentation) (*datastore.PresentationExchange, error) {
	ex, unlock, err := r.lockThread(ctx, connectionID, msg.ThreadID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Seen(msg.ID) {
		return ex, nil
	}

	ok, err := advance(ex, datastore.RoleVerifier, datastore.PresentationRequested, datastore.PresentationPresented)
	if err != nil || !ok {
		return ex, err
	}

	ex.Presentation = msg.Presentation
	ex.Record(msg.ID)
	ex.Transition(datastore.PresentationPresented, r.now())

	err = r.store.UpdatePresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("presentation received", zap.String("exchangeID", ex.ExchangeID))
	r.notify(ex)

	return ex, nil
}

// Verify checks the presentation cryptographically, against the revocation registries over the
// requested interval and against the request's restrictions as established from the ledger. The
// verdict is final either way.
func (r *Supervisor) Verify(ctx context.Context, exchangeID string) (*datastore.PresentationExchange, error) {
	ctx, done := r.inflight.Begin(ctx, exchangeID)
	defer done()

	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Role != datastore.RoleVerifier || !ex.Ready(datastore.PresentationPresented) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	checks := make([]datastore.VerificationCheck, 0, 3)
	for _, check := range []struct {
		name string
		run  func(context.Context, *datastore.PresentationExchange) error
	}{
		{CheckProof, r.checkProof},
		{CheckNonRevocation, r.checkRevocation},
		{CheckRestrictions, r.checkRestrictions},
	} {
		err := check.run(ctx, ex)
		if exchange.IsDependencyError(err) {
			return ex, r.fail(ex, err)
		}

		vc := datastore.VerificationCheck{Check: check.name, Passed: err == nil}
		if err != nil {
			vc.Error = err.Error()
		}
		checks = append(checks, vc)
	}

	verified := true
	var failed *datastore.VerificationCheck
	for i := range checks {
		if !checks[i].Passed {
			verified = false
			failed = &checks[i]
			break
		}
	}

	ex.Checks = checks
	ex.Verified = &verified
	ex.Transition(datastore.PresentationVerified, r.now())
	if failed != nil {
		ex.Error = fmt.Sprintf("%s check failed: %s", failed.Check, failed.Error)
		ex.ErrorCode = exchange.CodeVerificationFailed
		if failed.Check == CheckNonRevocation {
			ex.ErrorCode = exchange.CodeRevokedCredential
		}
	}

	err = r.store.UpdatePresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("presentation verified", zap.String("exchangeID", ex.ExchangeID), zap.Bool("verified", verified),
		zap.String("error", ex.Error))

	if verified {
		conn, err := r.store.GetConnection(ex.ConnectionID)
		if err == nil {
			err = r.messenger.Send(ctx, conn, &message.Ack{
				Header: message.Reply(message.PresentationAckType, ex.ThreadID),
				Status: "OK",
			})
		}
		if err != nil {
			r.log.Warn("unable to acknowledge presentation", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
		}
	} else {
		r.report(ctx, ex, message.CodePresentationNotVerified, ex.Error)
	}

	r.notify(ex)
	return ex, nil
}

func (r *Supervisor) checkProof(ctx context.Context, ex *datastore.PresentationExchange) error {
	cctx, cancel := r.timeouts.CryptoContext(ctx)
	defer cancel()

	ok, err := r.crypto.VerifyProof(cctx, ex.Presentation, ex.ProofRequest)
	if err != nil {
		return exchange.Dependency(err, "unable to verify proof")
	}
	if !ok {
		return errors.New("proof does not verify")
	}

	return nil
}

// referents pairs every referent of the request with the interval it must be unrevoked over.
func referents(pr *schema.ProofRequest) map[string]*schema.NonRevokedInterval {
	out := make(map[string]*schema.NonRevokedInterval, len(pr.RequestedAttributes)+len(pr.RequestedPredicates))
	for ref := range pr.RequestedAttributes {
		out[ref] = pr.AttributeInterval(ref)
	}
	for ref := range pr.RequestedPredicates {
		out[ref] = pr.PredicateInterval(ref)
	}
	return out
}

// identifier finds the credential a referent was answered from.
func identifier(pres *schema.Presentation, referent string) (*schema.Identifier, error) {
	idx, ok := pres.RequestedProof.SubProofIndex(referent)
	if !ok || idx < 0 || idx >= len(pres.Identifiers) || pres.Identifiers[idx] == nil {
		return nil, errors.Errorf("referent %s is not answered", referent)
	}

	return pres.Identifiers[idx], nil
}

// checkRevocation skips referents the request asked no interval for.
func (r *Supervisor) checkRevocation(ctx context.Context, ex *datastore.PresentationExchange) error {
	for ref, interval := range referents(ex.ProofRequest) {
		if interval == nil {
			continue
		}

		ident, err := identifier(ex.Presentation, ref)
		if err != nil {
			return err
		}
		if ident.RevRegID == "" {
			continue
		}

		lctx, cancel := r.timeouts.LedgerContext(ctx)
		revoked, err := r.revocations.Revoked(lctx, ident.RevRegID, ident.CredRevID, interval)
		cancel()
		if err != nil {
			return exchange.Dependency(err, "unable to check revocation of %s", ref)
		}
		if revoked {
			return errors.Wrapf(exchange.ErrRevokedCredential, "credential for %s", ref)
		}
	}

	return nil
}

func (r *Supervisor) checkRestrictions(ctx context.Context, ex *datastore.PresentationExchange) error {
	pr := ex.ProofRequest
	restrictions := make(map[string][]schema.Restriction, len(pr.RequestedAttributes)+len(pr.RequestedPredicates))
	for ref, a := range pr.RequestedAttributes {
		restrictions[ref] = a.Restrictions
	}
	for ref, p := range pr.RequestedPredicates {
		restrictions[ref] = p.Restrictions
	}

	for ref, rs := range restrictions {
		ident, err := identifier(ex.Presentation, ref)
		if err != nil {
			return err
		}
		if len(rs) == 0 {
			continue
		}

		id, err := r.identity(ctx, ident.SchemaID, ident.CredDefID)
		if err != nil {
			return exchange.Dependency(err, "unable to resolve credential for %s", ref)
		}

		if !schema.SatisfiesRestrictions(rs, id) {
			return errors.Errorf("credential for %s does not satisfy its restrictions", ref)
		}
	}

	return nil
}

// RevealedAttributes returns the attribute values disclosed by a verified presentation.
func (r *Supervisor) RevealedAttributes(exchangeID string) (map[string]string, error) {
	ex, err := r.store.GetPresentationExchange(exchangeID)
	if err != nil {
		return nil, err
	}

	if ex.State != datastore.PresentationVerified || ex.Verified == nil || !*ex.Verified || ex.Presentation == nil {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	out := map[string]string{}
	rp := ex.Presentation.RequestedProof
	for ref, a := range ex.ProofRequest.RequestedAttributes {
		if v, ok := rp.RevealedAttrs[ref]; ok && a.Name != "" {
			out[a.Name] = v.Raw
		}
		if g, ok := rp.RevealedAttrGroups[ref]; ok {
			for name, v := range g.Values {
				out[name] = v.Raw
			}
		}
	}

	return out, nil
}
