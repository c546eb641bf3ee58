/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presentproof runs the present-proof protocol for both the verifier and the prover.
package presentproof

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

const kind = "presentation exchange"

var steps = map[string]int{
	datastore.PresentationRequested: 0,
	datastore.PresentationPresented: 1,
	datastore.PresentationVerified:  2,
	datastore.PresentationRejected:  2,
}

// terminal states, besides a failure that cannot be retried.
var terminal = []string{datastore.PresentationVerified, datastore.PresentationRejected}

type Supervisor struct {
	store       datastore.Store
	ledger      ledger.Reader
	crypto      crypto.Engine
	revocations *revocation.Cache
	messenger   transport.Messenger
	notifier    notifier.Notifier
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
		timeouts:    ctx.Timeouts(),
		inflight:    ctx.Inflight(),
		log:         ctx.Logger().Named("presentproof"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *Supervisor) Get(exchangeID string) (*datastore.PresentationExchange, error) {
	return r.store.GetPresentationExchange(exchangeID)
}

func (r *Supervisor) List(c *datastore.ExchangeCriteria) (*datastore.PresentationExchangeList, error) {
	return r.store.ListPresentationExchanges(c)
}

// Delete removes a finished exchange.
func (r *Supervisor) Delete(ctx context.Context, exchangeID string) error {
	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return err
	}
	defer unlock()

	if !ex.Terminal(terminal...) {
		return exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	return r.store.DeletePresentationExchange(exchangeID)
}

// Abandon interrupts any step running against the exchange and moves it to error.
func (r *Supervisor) Abandon(ctx context.Context, exchangeID string) (*datastore.PresentationExchange, error) {
	r.inflight.Cancel(exchangeID)

	ex, unlock, err := r.lock(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Terminal(terminal...) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	ex.Fail(exchange.CodeUserCancelled, exchange.ErrUserCancelled.Error(), false, r.now())
	err = r.store.UpdatePresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("presentation exchange abandoned", zap.String("exchangeID", ex.ExchangeID))
	r.notify(ex)
	r.report(ctx, ex, message.CodeAbandoned, "")

	return ex, nil
}

// HandleProblemReport applies a problem report from the counterparty. A declined request is
// rejected and a failed verification is recorded as such; anything else moves the exchange to error.
func (r *Supervisor) HandleProblemReport(ctx context.Context, connectionID string, pr *message.ProblemReport) (*datastore.PresentationExchange, error) {
	ex, unlock, err := r.lockThread(ctx, connectionID, pr.ThreadID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	if ex.Seen(pr.ID) {
		return ex, nil
	}

	if ex.Terminal(terminal...) {
		return nil, exchange.InvalidTransition(kind, ex.ExchangeID, ex.State)
	}

	now := r.now()
	ex.Record(pr.ID)

	switch {
	case pr.Description.Code == message.CodeRequestNotAccepted && ex.Role == datastore.RoleVerifier &&
		ex.Ready(datastore.PresentationRequested):
		ex.Transition(datastore.PresentationRejected, now)
		ex.Error = problem(pr)
	case pr.Description.Code == message.CodePresentationNotVerified && ex.Role == datastore.RoleProver &&
		ex.Ready(datastore.PresentationPresented):
		verified := false
		ex.Verified = &verified
		ex.Transition(datastore.PresentationVerified, now)
		ex.Error = problem(pr)
		ex.ErrorCode = exchange.CodeVerificationFailed
	default:
		ex.Fail(exchange.CodeProblemReport, problem(pr), false, now)
	}

	err = r.store.UpdatePresentationExchange(ex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save presentation exchange")
	}

	r.log.Info("problem reported by counterparty", zap.String("exchangeID", ex.ExchangeID),
		zap.String("code", pr.Description.Code), zap.String("state", ex.State))
	r.notify(ex)

	return ex, nil
}

func problem(pr *message.ProblemReport) string {
	if pr.Description.En == "" {
		return pr.Description.Code
	}
	return pr.Description.Code + ": " + pr.Description.En
}

func (r *Supervisor) lockThread(ctx context.Context, connectionID, threadID string) (*datastore.PresentationExchange, func(), error) {
	ex, err := r.store.GetPresentationExchangeByThread(connectionID, threadID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "no presentation exchange on thread %s", threadID)
	}

	return r.lock(ctx, ex.ExchangeID)
}

func (r *Supervisor) lock(ctx context.Context, exchangeID string) (*datastore.PresentationExchange, func(), error) {
	unlock, err := r.store.Lock(ctx, exchangeID)
	if err != nil {
		return nil, nil, err
	}

	ex, err := r.store.GetPresentationExchange(exchangeID)
	if err != nil {
		unlock()
		return nil, nil, errors.Wrap(err, "unable to load presentation exchange")
	}

	return ex, unlock, nil
}

// advance decides whether a message moving an exchange from one state to the next applies.
func advance(ex *datastore.PresentationExchange, role, from, to string) (bool, error) {
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

func (r *Supervisor) fail(ex *datastore.PresentationExchange, err error) error {
	exchange.Failed(&ex.Status, err, r.now())
	if uerr := r.store.UpdatePresentationExchange(ex); uerr != nil {
		r.log.Error("unable to record failure", zap.String("exchangeID", ex.ExchangeID), zap.Error(uerr))
	}

	r.log.Warn("presentation exchange step failed", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
	r.notify(ex)
	return err
}

// send delivers msg for a step that moved ex out of prev. A failed delivery is recorded on ex.
func (r *Supervisor) send(ctx context.Context, ex *datastore.PresentationExchange, msg message.Message, prev, msgID string) error {
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
	if uerr := r.store.UpdatePresentationExchange(ex); uerr != nil {
		r.log.Error("unable to record delivery failure", zap.String("exchangeID", ex.ExchangeID), zap.Error(uerr))
	}

	return err
}

// report sends a problem report on the exchange's thread, best effort.
func (r *Supervisor) report(ctx context.Context, ex *datastore.PresentationExchange, code, explain string) {
	conn, err := r.store.GetConnection(ex.ConnectionID)
	if err == nil {
		err = r.messenger.Send(ctx, conn, &message.ProblemReport{
			Header:      message.Reply(message.PresentationProblemReportType, ex.ThreadID),
			Description: message.Description{Code: code, En: explain},
		})
	}
	if err != nil {
		r.log.Debug("unable to send problem report", zap.String("exchangeID", ex.ExchangeID),
			zap.String("code", code), zap.Error(err))
	}
}

func (r *Supervisor) notify(ex *datastore.PresentationExchange) {
	err := r.notifier.Notify(notifier.TopicPresentProof, ex.State, ex)
	if err != nil {
		r.log.Warn("unable to publish presentation notification", zap.String("exchangeID", ex.ExchangeID), zap.Error(err))
	}
}
