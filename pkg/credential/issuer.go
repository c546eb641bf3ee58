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

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/notifier"
	"github.com/scoir/credex/pkg/schema"
)

// Offer starts an exchange as issuer. When the holder already proposed a credential of the same
// schema on the connection, the offer answers that proposal instead.
func (r *Supervisor) Offer(ctx context.Context, connectionID, credDefID string, attrs map[string]string, comment string) (*datastore.CredentialExchange, error) {
	if _, err := r.connection(connectionID); err != nil {
		return nil, err
	}

	cd, s, err := r.definition(ctx, credDefID)
	if err != nil {
		return nil, err
	}

	if err := checkAttributes(s, attrs); err != nil {
		return nil, err
	}

	unlockConn, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlockConn()

	proposal, err := r.pending(connectionID, datastore.RoleIssuer, datastore.CredentialProposed, cd.SchemaID, false)
	if err != nil {
		return nil, err
	}

	if proposal != nil {
		ex, unlock, err := r.lock(ctx, proposal.ExchangeID)
		if err != nil {
			return nil, err
		}
		defer unlock()

		return r.respond(ctx, ex, cd, s, attrs, comment)
	}

	cctx, cancel := r.timeouts.CryptoContext(ctx)
	offer, err := r.crypto.CreateCredentialOffer(cctx, cd.SchemaID, cd.ID)
	cancel()
	if err != nil {
		return nil, exchange.Dependency(err, "unable to create offer for %s", cd.ID)
	}

	msg := &message.OfferCredential{
		Header:            message.NewHeader(message.OfferCredentialType),
		Comment:           comment,
		CredentialPreview: message.NewPreview(attrs),
		Offer:             offer,
	}

	now := r.now()
	ex := &datastore.CredentialExchange{
		ExchangeID:   uuid.New().String(),
		ConnectionID: connectionID,
		ThreadID:     msg.ID,
		Role:         datastore.RoleIssuer,
		SchemaID:     cd.SchemaID,
		CredDefID:    cd.ID,
		Comment:      comment,
		Attributes:   attrs,
		Offer:        offer,
	}
	ex.ThreadTime = msg.SentAt()
	ex.CreatedAt = now
	ex.Transition(datastore.CredentialOffered, now)

	unlock, err := r.store.Lock(ctx, ex.ExchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = r.store.InsertCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential offered", zap.String("exchangeID", ex.ExchangeID), zap.String("credDefID", cd.ID))

	err = r.send(ctx, ex, msg, "", "")
	r.notify(ex)
	return ex, err
}

// HandleProposal records a holder's proposal. A proposal crossing an offer this agent already sent
// for the same schema is settled by which was sent first.
func (r *Supervisor) HandleProposal(ctx context.Context, connectionID string, msg *message.ProposeCredential) (*datastore.CredentialExchange, error) {
	if msg.SchemaID == "" {
		return nil, exchange.Protocol(exchange.ErrMalformedMessage, "proposal %s names no schema", msg.ID)
	}

	unlockConn, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlockConn()

	ex, err := r.store.GetCredentialExchangeByThread(connectionID, msg.ID)
	if err == nil {
		return ex, nil
	}
	if !errors.Is(err, datastore.ErrNotFound) {
		return nil, errors.Wrap(err, "unable to look up credential exchange")
	}

	offer, err := r.pending(connectionID, datastore.RoleIssuer, datastore.CredentialOffered, msg.SchemaID, true)
	if err != nil {
		return nil, err
	}

	if offer != nil {
		return r.cross(ctx, offer.ExchangeID, msg)
	}

	now := r.now()
	ex = &datastore.CredentialExchange{
		ExchangeID:     uuid.New().String(),
		ConnectionID:   connectionID,
		ThreadID:       msg.ID,
		Role:           datastore.RoleIssuer,
		SchemaID:       msg.SchemaID,
		CredDefID:      msg.CredDefID,
		Comment:        msg.Comment,
		AttributesHint: msg.CredentialProposal.Map(),
	}
	ex.ThreadTime = msg.SentAt()
	ex.CreatedAt = now
	ex.Record(msg.ID)
	ex.Transition(datastore.CredentialProposed, now)

	err = r.store.InsertCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential proposed", zap.String("exchangeID", ex.ExchangeID), zap.String("schemaID", ex.SchemaID))
	r.notify(ex)

	return ex, nil
}

// cross settles a proposal that crossed the offer held by exchangeID. An earlier proposal takes
// over the offer, which is sent again on the proposal's thread. A later one is acknowledged and
// otherwise ignored.
func (r *Supervisor) cross(ctx context.Context, exchangeID string, msg *message.ProposeCredential) (*datastore.CredentialExchange, error) {
	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	answered := ex.State != datastore.CredentialOffered || len(ex.Processed) > 0
	if answered || !message.Before(&msg.Header, opening(ex)) {
		r.log.Debug("proposal crossed an earlier offer", zap.String("exchangeID", ex.ExchangeID))
		r.ack(ctx, ex.ConnectionID, msg.ID)
		return ex, nil
	}

	ex.ThreadID = msg.ID
	ex.ThreadTime = msg.SentAt()
	ex.AttributesHint = msg.CredentialProposal.Map()
	ex.Record(msg.ID)
	ex.UpdatedAt = r.now()

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("offer moved to crossing proposal", zap.String("exchangeID", ex.ExchangeID),
		zap.String("threadID", ex.ThreadID))

	offer := &message.OfferCredential{
		Header:            message.Reply(message.OfferCredentialType, ex.ThreadID),
		Comment:           ex.Comment,
		CredentialPreview: message.NewPreview(ex.Attributes),
		Offer:             ex.Offer,
	}

	err = r.send(ctx, ex, offer, datastore.CredentialOffered, msg.ID)
	r.notify(ex)
	return ex, err
}

// RespondToProposal offers a credential in answer to a proposal. An empty credDefID or nil attrs
// fall back to what the holder proposed.
func (r *Supervisor) RespondToProposal(ctx context.Context, exchangeID, credDefID string, attrs map[string]string) (*datastore.CredentialExchange, error) {
	ctx, done := r.inflight.Begin(ctx, exchangeID)
	defer done()

	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Role != datastore.RoleIssuer || !ex.Ready(datastore.CredentialProposed) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	if credDefID == "" {
		credDefID = ex.CredDefID
	}
	if credDefID == "" {
		return nil, exchange.Protocol(exchange.ErrInvalidAttributes, "no credential definition for exchange %s", ex.ExchangeID)
	}

	cd, s, err := r.definition(ctx, credDefID)
	if err != nil {
		if exchange.IsDependencyError(err) {
			return ex, r.fail(ex, err)
		}
		return nil, err
	}

	if attrs == nil {
		attrs = ex.AttributesHint
	}

	return r.respond(ctx, ex, cd, s, attrs, "")
}

func (r *Supervisor) respond(ctx context.Context, ex *datastore.CredentialExchange, cd *ledger.CredentialDefinition,
	s *ledger.Schema, attrs map[string]string, comment string) (*datastore.CredentialExchange, error) {
	if ex.Role != datastore.RoleIssuer || !ex.Ready(datastore.CredentialProposed) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	if ex.Frozen {
		return nil, exchange.Protocol(exchange.ErrInvalidAttributes, "attributes of exchange %s are frozen", ex.ExchangeID)
	}

	if cd.SchemaID != ex.SchemaID {
		return nil, exchange.Protocol(exchange.ErrInvalidAttributes, "credential definition %s is not for schema %s", cd.ID, ex.SchemaID)
	}

	if err := checkAttributes(s, attrs); err != nil {
		return nil, err
	}

	cctx, cancel := r.timeouts.CryptoContext(ctx)
	offer, err := r.crypto.CreateCredentialOffer(cctx, cd.SchemaID, cd.ID)
	cancel()
	if err != nil {
		return ex, r.fail(ex, exchange.Dependency(err, "unable to create offer for %s", cd.ID))
	}

	prev := ex.Effective()
	ex.CredDefID = cd.ID
	ex.Attributes = attrs
	ex.Offer = offer
	if comment != "" {
		ex.Comment = comment
	}
	ex.Transition(datastore.CredentialOffered, r.now())

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential offered", zap.String("exchangeID", ex.ExchangeID), zap.String("credDefID", cd.ID))

	msg := &message.OfferCredential{
		Header:            message.Reply(message.OfferCredentialType, ex.ThreadID),
		Comment:           ex.Comment,
		CredentialPreview: message.NewPreview(attrs),
		Offer:             offer,
	}

	err = r.send(ctx, ex, msg, prev, "")
	r.notify(ex)
	return ex, err
}

// HandleRequest records the holder's credential request for the offer on its thread.
func (r *Supervisor) HandleRequest(ctx context.Context, connectionID string, msg *message.RequestCredential) (*datastore.CredentialExchange, error) {
	ex, unlock, err := r.lockThread(ctx, connectionID, msg.ThreadID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Seen(msg.ID) {
		return ex, nil
	}

	ok, err := advance(ex, datastore.RoleIssuer, datastore.CredentialOffered, datastore.CredentialRequested)
	if err != nil || !ok {
		return ex, err
	}

	req := msg.Request
	if req == nil || ex.Offer == nil || req.CredDefID != ex.CredDefID || req.Nonce != ex.Offer.Nonce {
		return nil, exchange.Protocol(exchange.ErrMalformedMessage, "request does not answer the offer on exchange %s", ex.ExchangeID)
	}

	ex.Request = req
	ex.Record(msg.ID)
	ex.Transition(datastore.CredentialRequested, r.now())

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential requested", zap.String("exchangeID", ex.ExchangeID))
	r.notify(ex)

	return ex, nil
}

// Issue signs the requested credential and sends it to the holder. The attributes can no longer
// change once issued.
func (r *Supervisor) Issue(ctx context.Context, exchangeID string) (*datastore.CredentialExchange, error) {
	ctx, done := r.inflight.Begin(ctx, exchangeID)
	defer done()

	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Role != datastore.RoleIssuer || !ex.Ready(datastore.CredentialRequested) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	cd, s, err := r.definition(ctx, ex.CredDefID)
	if err != nil {
		if exchange.IsDependencyError(err) {
			return ex, r.fail(ex, err)
		}
		return nil, err
	}

	if err := checkAttributes(s, ex.Attributes); err != nil {
		return nil, err
	}

	// a credential signed by an earlier attempt is sent as is
	cred := ex.Credential
	if !ex.Frozen || cred == nil {
		var rev *schema.RevocationInfo
		if cd.SupportsRevocation() {
			if ex.RevocationIndex == nil || ex.RevocationRegID != cd.RevocationRegistryID {
				idx, err := r.store.NextRevocationIndex(cd.RevocationRegistryID)
				if err != nil {
					return nil, errors.Wrapf(err, "unable to allocate revocation index in %s", cd.RevocationRegistryID)
				}
				ex.RevocationRegID = cd.RevocationRegistryID
				ex.RevocationIndex = &idx
			}
			rev = &schema.RevocationInfo{RegistryID: ex.RevocationRegID, Index: *ex.RevocationIndex}
		}

		cctx, cancel := r.timeouts.CryptoContext(ctx)
		cred, err = r.crypto.SignCredential(cctx, cd.ID, ex.Attributes, ex.Offer, ex.Request, rev)
		cancel()
		if err != nil {
			return ex, r.fail(ex, exchange.Dependency(err, "unable to sign credential"))
		}
	}

	prev := ex.Effective()
	ex.Credential = cred
	ex.CredentialID = cred.ID
	ex.Frozen = true
	ex.Transition(datastore.CredentialIssued, r.now())

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential issued", zap.String("exchangeID", ex.ExchangeID), zap.String("credentialID", cred.ID))

	msg := &message.IssueCredential{
		Header:     message.Reply(message.IssueCredentialType, ex.ThreadID),
		Comment:    ex.Comment,
		Credential: cred,
	}

	err = r.send(ctx, ex, msg, prev, "")
	r.notify(ex)
	return ex, err
}

// HandleAck completes the issuer side once the holder stored the credential. Acks for any other
// step carry no meaning and are ignored.
func (r *Supervisor) HandleAck(ctx context.Context, connectionID string, ack *message.Ack) (*datastore.CredentialExchange, error) {
	ex, unlock, err := r.lockThread(ctx, connectionID, ack.ThreadID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Seen(ack.ID) || ex.Role != datastore.RoleIssuer || !ex.Ready(datastore.CredentialIssued) {
		return ex, nil
	}

	ex.Record(ack.ID)
	ex.Transition(datastore.CredentialStored, r.now())

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential stored by holder", zap.String("exchangeID", ex.ExchangeID))
	r.notify(ex)

	return ex, nil
}

type revokeOpts struct {
	notify bool
}

type RevokeOption func(*revokeOpts)

// WithHolderNotification sends the holder a revocation notification.
func WithHolderNotification() RevokeOption {
	return func(o *revokeOpts) {
		o.notify = true
	}
}

// Revoke revokes an issued credential by exchange id or credential id. The ledger is written first;
// the exchange state does not change.
func (r *Supervisor) Revoke(ctx context.Context, id, reason string, opts ...RevokeOption) (*datastore.CredentialExchange, error) {
	o := &revokeOpts{}
	for _, opt := range opts {
		opt(o)
	}

	exchangeID, err := r.issued(id)
	if err != nil {
		return nil, err
	}

	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Role != datastore.RoleIssuer || (ex.State != datastore.CredentialIssued && ex.State != datastore.CredentialStored) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	if ex.Revoked {
		return ex, nil
	}

	if ex.RevocationIndex == nil {
		return nil, exchange.Protocol(exchange.ErrInvalidTransition, "credential %s is not revocable", ex.CredentialID)
	}

	lctx, cancel := r.timeouts.LedgerContext(ctx)
	err = r.ledger.WriteRevocation(lctx, ex.RevocationRegID, *ex.RevocationIndex)
	cancel()
	if err != nil {
		return nil, exchange.Dependency(err, "unable to revoke credential %s", ex.CredentialID)
	}

	now := r.now()
	ex.Revoked = true
	ex.RevokedAt = &now
	ex.RevocationReason = reason
	ex.UpdatedAt = now

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		r.log.Error("credential revoked on ledger but not recorded", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.revocations.Invalidate(ex.RevocationRegID, *ex.RevocationIndex)
	r.log.Info("credential revoked", zap.String("exchangeID", ex.ExchangeID), zap.String("credentialID", ex.CredentialID))

	if err := r.notifier.Notify(notifier.TopicRevocation, "revoked", ex); err != nil {
		r.log.Warn("unable to publish revocation notification", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
	}

	if o.notify {
		r.tellHolder(ctx, ex)
	}

	return ex, nil
}

func (r *Supervisor) tellHolder(ctx context.Context, ex *datastore.CredentialExchange) {
	conn, err := r.store.GetConnection(ex.ConnectionID)
	if err == nil {
		err = r.messenger.Send(ctx, conn, &message.RevocationNotification{
			Header:   message.NewHeader(message.RevocationNotificationType),
			ThreadID: ex.ThreadID,
			Comment:  ex.RevocationReason,
		})
	}
	if err != nil {
		r.log.Warn("unable to notify holder of revocation", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
	}
}

// issued resolves id as an exchange id, falling back to the id of a credential this agent issued.
func (r *Supervisor) issued(id string) (string, error) {
	ex, err := r.store.GetCredentialExchange(id)
	if err == nil {
		return ex.ExchangeID, nil
	}
	if !errors.Is(err, datastore.ErrNotFound) {
		return "", err
	}

	list, err := r.store.ListCredentialExchanges(&datastore.ExchangeCriteria{Role: datastore.RoleIssuer})
	if err != nil {
		return "", err
	}

	for _, ex := range list.Exchanges {
		if ex.CredentialID == id {
			return ex.ExchangeID, nil
		}
	}

	return "", errors.Wrapf(datastore.ErrNotFound, "credential %s", id)
}

// pending finds an exchange on the connection for schemaID waiting in state. With unanswered set,
// only an exchange this agent opened that has not heard back from the counterparty qualifies.
func (r *Supervisor) pending(connectionID, role, state, schemaID string, unanswered bool) (*datastore.CredentialExchange, error) {
	list, err := r.store.ListCredentialExchanges(&datastore.ExchangeCriteria{
		ConnectionID: connectionID,
		State:        state,
		Role:         role,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to list credential exchanges")
	}

	for _, ex := range list.Exchanges {
		if ex.SchemaID == schemaID && (!unanswered || len(ex.Processed) == 0) {
			return ex, nil
		}
	}

	return nil, nil
}

// definition reads a credential definition and its schema.
func (r *Supervisor) definition(ctx context.Context, credDefID string) (*ledger.CredentialDefinition, *ledger.Schema, error) {
	lctx, cancel := r.timeouts.LedgerContext(ctx)
	defer cancel()

	cd, err := r.ledger.ReadCredDef(lctx, credDefID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil, errors.Wrapf(err, "credential definition %s", credDefID)
		}
		return nil, nil, exchange.Dependency(err, "unable to read credential definition %s", credDefID)
	}

	s, err := r.ledger.ReadSchema(lctx, cd.SchemaID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil, errors.Wrapf(err, "schema %s", cd.SchemaID)
		}
		return nil, nil, exchange.Dependency(err, "unable to read schema %s", cd.SchemaID)
	}

	return cd, s, nil
}

// checkAttributes requires attrs to be a non-empty subset of the schema's attributes.
func checkAttributes(s *ledger.Schema, attrs map[string]string) error {
	if len(attrs) == 0 {
		return exchange.Protocol(exchange.ErrInvalidAttributes, "no attributes given for schema %s", s.ID)
	}

	if err := s.HasAttributes(names(attrs)...); err != nil {
		return exchange.Protocol(exchange.ErrInvalidAttributes, "%s", err)
	}

	return nil
}
