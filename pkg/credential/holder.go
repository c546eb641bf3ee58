/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/notifier"
)

type proposeOpts struct {
	credDefID string
	comment   string
}

type ProposeOption func(*proposeOpts)

// WithCredDef asks for a credential under a specific credential definition.
func WithCredDef(credDefID string) ProposeOption {
	return func(o *proposeOpts) {
		o.credDefID = credDefID
	}
}

func WithComment(comment string) ProposeOption {
	return func(o *proposeOpts) {
		o.comment = comment
	}
}

// Propose starts an exchange as holder by asking for a credential of schemaID.
func (r *Supervisor) Propose(ctx context.Context, connectionID, schemaID string, hint map[string]string, opts ...ProposeOption) (*datastore.CredentialExchange, error) {
	o := &proposeOpts{}
	for _, opt := range opts {
		opt(o)
	}

	if _, err := r.connection(connectionID); err != nil {
		return nil, err
	}

	lctx, cancel := r.timeouts.LedgerContext(ctx)
	s, err := r.ledger.ReadSchema(lctx, schemaID)
	cancel()
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, errors.Wrapf(err, "schema %s", schemaID)
		}
		return nil, exchange.Dependency(err, "unable to read schema %s", schemaID)
	}

	if err := s.HasAttributes(names(hint)...); err != nil {
		return nil, exchange.Protocol(exchange.ErrInvalidAttributes, "%s", err)
	}

	unlockConn, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlockConn()

	msg := &message.ProposeCredential{
		Header:             message.NewHeader(message.ProposeCredentialType),
		Comment:            o.comment,
		SchemaID:           schemaID,
		CredDefID:          o.credDefID,
		CredentialProposal: message.NewPreview(hint),
	}

	now := r.now()
	ex := &datastore.CredentialExchange{
		ExchangeID:     uuid.New().String(),
		ConnectionID:   connectionID,
		ThreadID:       msg.ID,
		Role:           datastore.RoleHolder,
		SchemaID:       schemaID,
		CredDefID:      o.credDefID,
		Comment:        o.comment,
		AttributesHint: hint,
	}
	ex.ThreadTime = msg.SentAt()
	ex.CreatedAt = now
	ex.Transition(datastore.CredentialProposed, now)

	unlock, err := r.store.Lock(ctx, ex.ExchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = r.store.InsertCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential proposed", zap.String("exchangeID", ex.ExchangeID), zap.String("schemaID", schemaID))

	err = r.send(ctx, ex, msg, "", "")
	r.notify(ex)
	return ex, err
}

// HandleOffer records an offer, either answering a proposal on its thread or opening a new
// exchange. An offer crossing a proposal this agent already sent for the same schema is settled
// by which was sent first.
func (r *Supervisor) HandleOffer(ctx context.Context, connectionID string, msg *message.OfferCredential) (*datastore.CredentialExchange, error) {
	if msg.Offer == nil || msg.Offer.CredDefID == "" {
		return nil, exchange.Protocol(exchange.ErrMalformedMessage, "offer %s carries no credential offer", msg.ID)
	}

	thid := msg.ThreadID()
	ex, err := r.store.GetCredentialExchangeByThread(connectionID, thid)
	switch {
	case err == nil:
		return r.continueOffer(ctx, ex.ExchangeID, msg)
	case !errors.Is(err, datastore.ErrNotFound):
		return nil, errors.Wrap(err, "unable to look up credential exchange")
	}

	unlockConn, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlockConn()

	if ex, err := r.store.GetCredentialExchangeByThread(connectionID, thid); err == nil {
		return ex, nil
	}

	proposal, err := r.pending(connectionID, datastore.RoleHolder, datastore.CredentialProposed, msg.Offer.SchemaID, true)
	if err != nil {
		return nil, err
	}

	if proposal != nil {
		ex, unlock, err := r.lock(ctx, proposal.ExchangeID)
		if err != nil {
			return nil, err
		}
		defer unlock()

		answered := ex.State != datastore.CredentialProposed || len(ex.Processed) > 0
		if answered || !message.Before(&msg.Header, opening(ex)) {
			r.log.Debug("offer crossed an earlier proposal", zap.String("exchangeID", ex.ExchangeID))
			r.ack(ctx, connectionID, thid)
			return ex, nil
		}

		r.log.Info("proposal moved to crossing offer", zap.String("exchangeID", ex.ExchangeID), zap.String("threadID", thid))
		ex.ThreadID = thid
		ex.ThreadTime = msg.SentAt()
		return r.applyOffer(ex, msg, false)
	}

	now := r.now()
	ex = &datastore.CredentialExchange{
		ExchangeID:   uuid.New().String(),
		ConnectionID: connectionID,
		ThreadID:     thid,
		Role:         datastore.RoleHolder,
	}
	ex.ThreadTime = msg.SentAt()
	ex.CreatedAt = now

	return r.applyOffer(ex, msg, true)
}

func (r *Supervisor) continueOffer(ctx context.Context, exchangeID string, msg *message.OfferCredential) (*datastore.CredentialExchange, error) {
	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Seen(msg.ID) {
		return ex, nil
	}

	ok, err := advance(ex, datastore.RoleHolder, datastore.CredentialProposed, datastore.CredentialOffered)
	if err != nil || !ok {
		return ex, err
	}

	return r.applyOffer(ex, msg, false)
}

func (r *Supervisor) applyOffer(ex *datastore.CredentialExchange, msg *message.OfferCredential, insert bool) (*datastore.CredentialExchange, error) {
	ex.SchemaID = msg.Offer.SchemaID
	ex.CredDefID = msg.Offer.CredDefID
	ex.Offer = msg.Offer
	ex.Attributes = msg.CredentialPreview.Map()
	if msg.Comment != "" {
		ex.Comment = msg.Comment
	}
	ex.Record(msg.ID)
	ex.Transition(datastore.CredentialOffered, r.now())

	var err error
	if insert {
		err = r.store.InsertCredentialExchange(ex)
	} else {
		err = r.store.UpdateCredentialExchange(ex)
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential offer received", zap.String("exchangeID", ex.ExchangeID), zap.String("credDefID", ex.CredDefID))
	r.notify(ex)

	return ex, nil
}

// AcceptOffer requests the offered credential, bound to this agent's master secret.
func (r *Supervisor) AcceptOffer(ctx context.Context, exchangeID string) (*datastore.CredentialExchange, error) {
	ctx, done := r.inflight.Begin(ctx, exchangeID)
	defer done()

	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Role != datastore.RoleHolder || !ex.Ready(datastore.CredentialOffered) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	conn, err := r.store.GetConnection(ex.ConnectionID)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load connection %s", ex.ConnectionID)
	}

	cctx, cancel := r.timeouts.CryptoContext(ctx)
	req, err := r.crypto.CreateCredentialRequest(cctx, conn.MyDID, ex.Offer, crypto.DefaultMasterSecret)
	cancel()
	if err != nil {
		return ex, r.fail(ex, exchange.Dependency(err, "unable to create credential request"))
	}

	prev := ex.Effective()
	ex.Request = req
	ex.Transition(datastore.CredentialRequested, r.now())

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential requested", zap.String("exchangeID", ex.ExchangeID))

	msg := &message.RequestCredential{
		Header:  message.Reply(message.RequestCredentialType, ex.ThreadID),
		Request: req,
	}

	err = r.send(ctx, ex, msg, prev, "")
	r.notify(ex)
	return ex, err
}

// HandleCredential records the issued credential. It is verified when stored.
func (r *Supervisor) HandleCredential(ctx context.Context, connectionID string, msg *message.IssueCredential) (*datastore.CredentialExchange, error) {
	if msg.Credential == nil {
		return nil, exchange.Protocol(exchange.ErrMalformedMessage, "message %s carries no credential", msg.ID)
	}

	ex, unlock, err := r.lockThread(ctx, connectionID, msg.ThreadID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Seen(msg.ID) {
		return ex, nil
	}

	ok, err := advance(ex, datastore.RoleHolder, datastore.CredentialRequested, datastore.CredentialIssued)
	if err != nil || !ok {
		return ex, err
	}

	ex.Credential = msg.Credential
	ex.CredentialID = msg.Credential.ID
	ex.Record(msg.ID)
	ex.Transition(datastore.CredentialIssued, r.now())

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential received", zap.String("exchangeID", ex.ExchangeID), zap.String("credentialID", ex.CredentialID))
	r.notify(ex)

	return ex, nil
}

type storeOpts struct {
	credentialID string
}

type StoreOption func(*storeOpts)

// WithCredentialID stores the credential under id instead of the id the issuer gave it.
func WithCredentialID(id string) StoreOption {
	return func(o *storeOpts) {
		o.credentialID = id
	}
}

// Store verifies the issued credential, puts it in the wallet and acknowledges it to the issuer. A
// credential that fails verification ends the exchange.
func (r *Supervisor) Store(ctx context.Context, exchangeID string, opts ...StoreOption) (*datastore.CredentialExchange, error) {
	o := &storeOpts{}
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

	if ex.Role != datastore.RoleHolder || !ex.Ready(datastore.CredentialIssued) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	cred := ex.Credential
	cctx, cancel := r.timeouts.CryptoContext(ctx)
	err = r.crypto.VerifyCredential(cctx, cred, ex.Request)
	cancel()
	if err == nil && !sameValues(cred.Values.Raw(), ex.Attributes) {
		err = errors.Wrap(crypto.ErrInvalidCredential, "credential values differ from the offer")
	}
	if errors.Is(err, crypto.ErrInvalidCredential) {
		return ex, r.reject(ctx, ex, err)
	}
	if err != nil {
		return ex, r.fail(ex, exchange.Dependency(err, "unable to verify credential"))
	}

	lctx, lcancel := r.timeouts.LedgerContext(ctx)
	cd, err := r.ledger.ReadCredDef(lctx, cred.CredDefID)
	lcancel()
	if err != nil {
		return ex, r.fail(ex, exchange.Dependency(err, "unable to read credential definition %s", cred.CredDefID))
	}

	id := o.credentialID
	if id == "" {
		id = cred.ID
	}

	now := r.now()
	err = r.store.InsertCredential(&datastore.HeldCredential{
		CredentialID:    id,
		ExchangeID:      ex.ExchangeID,
		ConnectionID:    ex.ConnectionID,
		SchemaID:        cred.SchemaID,
		CredDefID:       cred.CredDefID,
		IssuerDID:       cd.IssuerDID,
		Attributes:      cred.Values.Raw(),
		Credential:      cred,
		RevocationRegID: cred.RevRegID,
		RevocationIndex: cred.CredRevID,
		CreatedAt:       now,
	})
	if errors.Is(err, datastore.ErrDuplicate) {
		err = r.storedBy(id, ex.ExchangeID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to store credential %s", id)
	}

	ex.CredentialID = id
	ex.Transition(datastore.CredentialStored, now)

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential stored", zap.String("exchangeID", ex.ExchangeID), zap.String("credentialID", id))

	conn, err := r.store.GetConnection(ex.ConnectionID)
	if err == nil {
		err = r.messenger.Send(ctx, conn, &message.Ack{
			Header: message.Reply(message.CredentialAckType, ex.ThreadID),
			Status: "OK",
		})
	}
	if err != nil {
		r.log.Warn("unable to acknowledge credential", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
	}

	r.notify(ex)
	return ex, nil
}

// reject ends an exchange whose credential failed verification and tells the issuer.
func (r *Supervisor) reject(ctx context.Context, ex *datastore.CredentialExchange, cause error) error {
	ex.Fail(exchange.CodeVerificationFailed, cause.Error(), false, r.now())
	if err := r.store.UpdateCredentialExchange(ex); err != nil {
		return errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Warn("credential rejected", zap.String("exchangeID", ex.ExchangeID), zap.Error(cause))
	r.notify(ex)

	conn, err := r.store.GetConnection(ex.ConnectionID)
	if err == nil {
		err = r.messenger.Send(ctx, conn, &message.ProblemReport{
			Header:      message.Reply(message.CredentialProblemReportType, ex.ThreadID),
			Description: message.Description{Code: message.CodeProcessingError, En: cause.Error()},
		})
	}
	if err != nil {
		r.log.Debug("unable to report rejected credential", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
	}

	return errors.Wrapf(cause, "credential on exchange %s", ex.ExchangeID)
}

func sameValues(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}

	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}

	return true
}

// HandleRevocationNotification flags the wallet copy of a credential its issuer revoked.
func (r *Supervisor) HandleRevocationNotification(ctx context.Context, connectionID string, msg *message.RevocationNotification) (*datastore.CredentialExchange, error) {
	ex, unlock, err := r.lockThread(ctx, connectionID, msg.ThreadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Role != datastore.RoleHolder {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	if ex.Seen(msg.ID) || ex.Revoked {
		return ex, nil
	}

	now := r.now()
	ex.Revoked = true
	ex.RevokedAt = &now
	ex.RevocationReason = msg.Comment
	ex.Record(msg.ID)
	ex.UpdatedAt = now

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	if ex.CredentialID != "" {
		held, err := r.store.GetCredential(ex.CredentialID)
		if err == nil && !held.Revoked {
			held.Revoked = true
			held.RevokedAt = &now
			err = r.store.UpdateCredential(held)
		}
		if err != nil {
			r.log.Warn("unable to flag revoked credential", zap.String("credentialID", ex.CredentialID), zap.Error(err))
		}

		if held != nil && held.RevocationRegID != "" {
			r.revocations.Invalidate(held.RevocationRegID, held.RevocationIndex)
		}
	}

	r.log.Info("credential revoked by issuer", zap.String("exchangeID", ex.ExchangeID), zap.String("credentialID", ex.CredentialID))
	if err := r.notifier.Notify(notifier.TopicRevocation, "revoked", ex); err != nil {
		r.log.Warn("unable to publish revocation notification", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
	}

	return ex, nil
}

// Credentials lists the wallet.
func (r *Supervisor) Credentials(c *datastore.CredentialCriteria) (*datastore.CredentialList, error) {
	return r.store.ListCredentials(c)
}

func (r *Supervisor) Credential(credentialID string) (*datastore.HeldCredential, error) {
	return r.store.GetCredential(credentialID)
}

func (r *Supervisor) DeleteCredential(credentialID string) error {
	return r.store.DeleteCredential(credentialID)
}

// storedBy accepts a wallet record left by an earlier attempt at the same exchange.
func (r *Supervisor) storedBy(credentialID, exchangeID string) error {
	held, err := r.store.GetCredential(credentialID)
	if err != nil {
		return err
	}
	if held.ExchangeID != exchangeID {
		return errors.Wrapf(datastore.ErrDuplicate, "credential %s belongs to exchange %s", credentialID, held.ExchangeID)
	}

	return nil
}
