/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential runs the issue-credential protocol for both the issuer and the holder, and
// publishes the schemas and credential definitions an issuer needs.
package credential

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/didcomm/transport"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/notifier"
	"github.com/scoir/credex/pkg/revocation"
)

const kind = "credential exchange"

// steps orders the states so a message for a step already taken can be told apart from one that
// skips ahead.
var steps = map[string]int{
	datastore.CredentialProposed:  0,
	datastore.CredentialOffered:   1,
	datastore.CredentialRequested: 2,
	datastore.CredentialIssued:    3,
	datastore.CredentialStored:    4,
}

type Supervisor struct {
	store       datastore.Store
	ledger      ledger.Client
	crypto      crypto.Engine
	revocations *revocation.Cache
	messenger   transport.Messenger
	notifier    notifier.Notifier
	publicDID   string
	timeouts    exchange.Timeouts
	inflight    *exchange.Inflight
	log         *zap.Logger
	now         func() time.Time
}

func New(ctx Provider) *Supervisor {
	return &Supervisor{
		store:       ctx.Store(),
		ledger:      ctx.Ledger(),
		crypto:      ctx.Crypto(),
		revocations: ctx.Revocations(),
		messenger:   ctx.Messenger(),
		notifier:    ctx.Notifier(),
		publicDID:   ctx.PublicDID(),
		timeouts:    ctx.Timeouts(),
		inflight:    ctx.Inflight(),
		log:         ctx.Logger().Named("credential"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *Supervisor) Get(exchangeID string) (*datastore.CredentialExchange, error) {
	return r.store.GetCredentialExchange(exchangeID)
}

func (r *Supervisor) List(c *datastore.ExchangeCriteria) (*datastore.CredentialExchangeList, error) {
	return r.store.ListCredentialExchanges(c)
}

// Delete removes a finished exchange. Exchanges that can still make progress are refused.
func (r *Supervisor) Delete(ctx context.Context, exchangeID string) error {
	unlock, err := r.store.Lock(ctx, exchangeID)
	if err != nil {
		return err
	}
	defer unlock()

	ex, err := r.store.GetCredentialExchange(exchangeID)
	if err != nil {
		return err
	}

	if !ex.Terminal(datastore.CredentialStored) {
		return exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	return r.store.DeleteCredentialExchange(exchangeID)
}

// Abandon interrupts any step running against the exchange and moves it to error. The counterparty
// is told on a best effort basis.
func (r *Supervisor) Abandon(ctx context.Context, exchangeID string) (*datastore.CredentialExchange, error) {
	r.inflight.Cancel(exchangeID)

	unlock, err := r.store.Lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ex, err := r.store.GetCredentialExchange(exchangeID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load credential exchange")
	}

	if ex.Terminal(datastore.CredentialStored) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	ex.Fail(exchange.CodeUserCancelled, exchange.ErrUserCancelled.Error(), false, r.now())
	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential exchange abandoned", zap.String("exchangeID", ex.ExchangeID))
	r.notify(ex)

	conn, err := r.store.GetConnection(ex.ConnectionID)
	if err == nil {
		pr := &message.ProblemReport{
			Header:      message.Reply(message.CredentialProblemReportType, ex.ThreadID),
			Description: message.Description{Code: message.CodeAbandoned},
		}
		if err := r.messenger.Send(ctx, conn, pr); err != nil {
			r.log.Debug("unable to report abandoned exchange", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
		}
	}

	return ex, nil
}

// HandleProblemReport moves an exchange the counterparty gave up on to error.
func (r *Supervisor) HandleProblemReport(ctx context.Context, connectionID string, pr *message.ProblemReport) (*datastore.CredentialExchange, error) {
	ex, unlock, err := r.lockThread(ctx, connectionID, pr.ThreadID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Seen(pr.ID) {
		return ex, nil
	}

	if ex.Terminal(datastore.CredentialStored) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	ex.Record(pr.ID)
	ex.Fail(exchange.CodeProblemReport, problem(pr), false, r.now())

	err = r.store.UpdateCredentialExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save credential exchange")
	}

	r.log.Info("credential exchange rejected by counterparty", zap.String("exchangeID", ex.ExchangeID),
		zap.String("code", pr.Description.Code))
	r.notify(ex)

	return ex, nil
}

func problem(pr *message.ProblemReport) string {
	if pr.Description.En == "" {
		return pr.Description.Code
	}
	return pr.Description.Code + ": " + pr.Description.En
}

// lockThread loads the exchange running on threadID under its lock.
func (r *Supervisor) lockThread(ctx context.Context, connectionID, threadID string) (*datastore.CredentialExchange, func(), error) {
	ex, err := r.store.GetCredentialExchangeByThread(connectionID, threadID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "no credential exchange on thread %s", threadID)
	}

	return r.lock(ctx, ex.ExchangeID)
}

// lock loads the exchange under its lock.
func (r *Supervisor) lock(ctx context.Context, exchangeID string) (*datastore.CredentialExchange, func(), error) {
	unlock, err := r.store.Lock(ctx, exchangeID)
	if err != nil {
		return nil, nil, err
	}

	ex, err := r.store.GetCredentialExchange(exchangeID)
	if err != nil {
		unlock()
		return nil, nil, errors.Wrap(err, "unable to load credential exchange")
	}

	return ex, unlock, nil
}

// advance decides whether a message moving an exchange from one state to the next applies. A
// message for a step already taken is stale and has no effect; one that skips ahead is refused.
func advance(ex *datastore.CredentialExchange, role, from, to string) (bool, error) {
	if ex.Role != role {
		return false, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	if ex.Ready(from) {
		return true, nil
	}

	at, ok := steps[ex.Effective()]
	if ok && at >= steps[to] {
		return false, nil
	}

	return false, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
}

// connection returns the completed connection an exchange runs on.
func (r *Supervisor) connection(connectionID string) (*datastore.Connection, error) {
	conn, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load connection %s", connectionID)
	}

	if conn.State != datastore.ConnectionComplete {
		return nil, exchange.InvalidTransition("connection", conn.ConnectionID, conn.State)
	}

	return conn, nil
}

// fail records a dependency failure the step can be retried from.
func (r *Supervisor) fail(ex *datastore.CredentialExchange, err error) error {
	exchange.Failed(&ex.Status, err, r.now())
	if uerr := r.store.UpdateCredentialExchange(ex); uerr != nil {
		r.log.Error("unable to record failure", zap.String("exchangeID", ex.ExchangeID), zap.Error(uerr))
	}

	r.log.Warn("credential exchange step failed", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
	r.notify(ex)
	return err
}

// send delivers msg for a step that moved ex out of prev. A failed delivery is recorded on ex.
func (r *Supervisor) send(ctx context.Context, ex *datastore.CredentialExchange, msg message.Message, prev, msgID string) error {
	conn, err := r.store.GetConnection(ex.ConnectionID)
	if err == nil {
		err = r.messenger.Send(ctx, conn, msg)
	}
	if err == nil {
		return nil
	}

	err = exchange.Dependency(err, "unable to send %s", msg.Hdr().Type)
	r.log.Warn("delivery failed", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))

	exchange.Undelivered(&ex.Status, prev, msgID, err, r.now())
	if uerr := r.store.UpdateCredentialExchange(ex); uerr != nil {
		r.log.Error("unable to record delivery failure", zap.String("exchangeID", ex.ExchangeID), zap.Error(uerr))
	}

	return err
}

// ack acknowledges a message on threadID without changing anything.
func (r *Supervisor) ack(ctx context.Context, connectionID, threadID string) {
	conn, err := r.store.GetConnection(connectionID)
	if err == nil {
		err = r.messenger.Send(ctx, conn, &message.Ack{
			Header: message.Reply(message.CredentialAckType, threadID),
			Status: "OK",
		})
	}
	if err != nil {
		r.log.Debug("unable to acknowledge message", zap.String("threadID", threadID), zap.Error(err))
	}
}

func (r *Supervisor) notify(ex *datastore.CredentialExchange) {
	r.publish(ex.State, ex)
}

func (r *Supervisor) publish(event string, data interface{}) {
	err := r.notifier.Notify(notifier.TopicIssueCredential, event, data)
	if err != nil {
		r.log.Warn("unable to publish credential notification", zap.String("event", event), zap.Error(err))
	}
}

// opening rebuilds the header of the message that opened ex so crossing messages can be ordered.
func opening(ex *datastore.CredentialExchange) *message.Header {
	return &message.Header{
		ID:     ex.ThreadID,
		Timing: &message.Timing{OutTime: ex.ThreadTime},
	}
}

func names(attrs map[string]string) []string {
	out := make([]string, 0, len(attrs))
	for k := range attrs {
		out = append(out, k)
	}
	return out
}
