/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher hands decoded inbound messages to the coordinator that owns their protocol.
package dispatcher

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/exchange"
)

// Connections is the part of the connection coordinator that consumes messages.
type Connections interface {
	HandleRequest(ctx context.Context, connectionID string, req *message.ConnectionRequest) (*datastore.Connection, error)
	HandleResponse(ctx context.Context, connectionID string, resp *message.ConnectionResponse) (*datastore.Connection, error)
	HandleAck(ctx context.Context, connectionID string, ack *message.Ack) (*datastore.Connection, error)
	HandleProblemReport(ctx context.Context, connectionID string, pr *message.ProblemReport) (*datastore.Connection, error)
}

// Credentials is the part of the credential coordinator that consumes messages, plus the steps the
// dispatcher can take on the operator's behalf.
type Credentials interface {
	HandleProposal(ctx context.Context, connectionID string, msg *message.ProposeCredential) (*datastore.CredentialExchange, error)
	HandleOffer(ctx context.Context, connectionID string, msg *message.OfferCredential) (*datastore.CredentialExchange, error)
	HandleRequest(ctx context.Context, connectionID string, msg *message.RequestCredential) (*datastore.CredentialExchange, error)
	HandleCredential(ctx context.Context, connectionID string, msg *message.IssueCredential) (*datastore.CredentialExchange, error)
	HandleAck(ctx context.Context, connectionID string, ack *message.Ack) (*datastore.CredentialExchange, error)
	HandleProblemReport(ctx context.Context, connectionID string, pr *message.ProblemReport) (*datastore.CredentialExchange, error)
	HandleRevocationNotification(ctx context.Context, connectionID string, msg *message.RevocationNotification) (*datastore.CredentialExchange, error)

	AcceptOffer(ctx context.Context, exchangeID string) (*datastore.CredentialExchange, error)
	Issue(ctx context.Context, exchangeID string) (*datastore.CredentialExchange, error)
}

// Presentations is the presentation coordinator's counterpart of Credentials.
type Presentations interface {
	HandleRequest(ctx context.Context, connectionID string, msg *message.RequestPresentation) (*datastore.PresentationExchange, error)
	HandlePresentation(ctx context.Context, connectionID string, msg *message.Presentation) (*datastore.PresentationExchange, error)
	HandleAck(ctx context.Context, connectionID string, ack *message.Ack) (*datastore.PresentationExchange, error)
	HandleProblemReport(ctx context.Context, connectionID string, pr *message.ProblemReport) (*datastore.PresentationExchange, error)

	Verify(ctx context.Context, exchangeID string) (*datastore.PresentationExchange, error)
}

// Auto names the steps taken without waiting for the admin API.
type Auto struct {
	AcceptOffers        bool `mapstructure:"accept_offers"`
	IssueRequests       bool `mapstructure:"issue_requests"`
	VerifyPresentations bool `mapstructure:"verify_presentations"`
}

type Option func(*Dispatcher)

func WithLogger(l *zap.Logger) Option {
	return func(r *Dispatcher) {
		r.log = l.Named("dispatcher")
	}
}

func WithAuto(a Auto) Option {
	return func(r *Dispatcher) {
		r.auto = a
	}
}

type Dispatcher struct {
	store         datastore.Store
	connections   Connections
	credentials   Credentials
	presentations Presentations
	auto          Auto
	log           *zap.Logger
	now           func() time.Time
}

func New(store datastore.Store, conns Connections, creds Credentials, proofs Presentations, opts ...Option) *Dispatcher {
	r := &Dispatcher{
		store:         store,
		connections:   conns,
		credentials:   creds,
		presentations: proofs,
		log:           zap.NewNop(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Handle decodes and dispatches one inbound message. Messages that are malformed, expired, from an
// unknown sender or illegal in the current state are logged and dropped. The returned error means
// the message could not be processed now and may be redelivered.
func (r *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	msg, err := message.Decode(payload)
	if err != nil {
		r.log.Warn("discarding undecodable message", zap.Error(err))
		return nil
	}

	err = r.Dispatch(ctx, msg)
	if err == nil || !Discard(err) {
		return err
	}

	hdr := msg.Hdr()
	r.log.Warn("discarding message", zap.String("type", hdr.Type), zap.String("id", hdr.ID),
		zap.String("threadID", hdr.ThreadID()), zap.String("senderDID", hdr.SenderDID), zap.Error(err))
	return nil
}

// Discard reports whether redelivering the message that caused err could never succeed.
func Discard(err error) bool {
	return exchange.IsProtocolError(err) ||
		errors.Is(err, datastore.ErrNotFound) ||
		errors.Is(err, message.ErrMalformed) ||
		errors.Is(err, message.ErrUnknownType)
}

// Dispatch routes msg to its coordinator.
func (r *Dispatcher) Dispatch(ctx context.Context, msg message.Message) error {
	hdr := msg.Hdr()
	if hdr.Timing != nil && hdr.Timing.ExpiresTime != nil && r.now().After(*hdr.Timing.ExpiresTime) {
		return exchange.Protocol(exchange.ErrExpiredMessage, "%s expired at %s", hdr.ID, hdr.Timing.ExpiresTime.Format(time.RFC3339))
	}

	switch hdr.Type {
	case message.ConnectionRequestType, message.ConnectionResponseType, message.ConnectionAckType,
		message.ConnectionProblemReportType:
		return r.connection(ctx, msg)
	case message.ConnectionInvitationType:
		return exchange.Protocol(exchange.ErrMalformedMessage, "invitations are not accepted as messages")
	}

	conn, err := r.sender(hdr)
	if err != nil {
		return err
	}

	log := r.log.With(zap.String("type", hdr.Type), zap.String("connectionID", conn.ConnectionID),
		zap.String("threadID", hdr.ThreadID()))
	log.Debug("dispatching message")

	switch m := msg.(type) {
	case *message.ProposeCredential:
		_, err = r.credentials.HandleProposal(ctx, conn.ConnectionID, m)
	case *message.OfferCredential:
		var ex *datastore.CredentialExchange
		ex, err = r.credentials.HandleOffer(ctx, conn.ConnectionID, m)
		if err == nil && r.auto.AcceptOffers && ex.State == datastore.CredentialOffered && ex.Role == datastore.RoleHolder {
			_, err = r.credentials.AcceptOffer(ctx, ex.ExchangeID)
		}
	case *message.RequestCredential:
		var ex *datastore.CredentialExchange
		ex, err = r.credentials.HandleRequest(ctx, conn.ConnectionID, m)
		if err == nil && r.auto.IssueRequests && ex.State == datastore.CredentialRequested {
			_, err = r.credentials.Issue(ctx, ex.ExchangeID)
		}
	case *message.IssueCredential:
		_, err = r.credentials.HandleCredential(ctx, conn.ConnectionID, m)
	case *message.RevocationNotification:
		_, err = r.credentials.HandleRevocationNotification(ctx, conn.ConnectionID, m)
	case *message.RequestPresentation:
		_, err = r.presentations.HandleRequest(ctx, conn.ConnectionID, m)
	case *message.Presentation:
		var ex *datastore.PresentationExchange
		ex, err = r.presentations.HandlePresentation(ctx, conn.ConnectionID, m)
		if err == nil && r.auto.VerifyPresentations && ex.State == datastore.PresentationPresented {
			_, err = r.presentations.Verify(ctx, ex.ExchangeID)
		}
	case *message.Ack:
		switch hdr.Type {
		case message.CredentialAckType:
			_, err = r.credentials.HandleAck(ctx, conn.ConnectionID, m)
		default:
			_, err = r.presentations.HandleAck(ctx, conn.ConnectionID, m)
		}
	case *message.ProblemReport:
		switch hdr.Type {
		case message.CredentialProblemReportType:
			_, err = r.credentials.HandleProblemReport(ctx, conn.ConnectionID, m)
		default:
			_, err = r.presentations.HandleProblemReport(ctx, conn.ConnectionID, m)
		}
	default:
		err = errors.Wrapf(message.ErrUnknownType, "%q", hdr.Type)
	}

	if err != nil {
		log.Debug("message not applied", zap.Error(err))
	}
	return err
}

// connection routes the connection protocol, whose messages are matched by invitation or thread
// rather than by a sender the agent already knows.
func (r *Dispatcher) connection(ctx context.Context, msg message.Message) error {
	hdr := msg.Hdr()

	var (
		conn *datastore.Connection
		err  error
	)
	if hdr.Type == message.ConnectionRequestType {
		conn, err = r.store.GetConnectionByInvitation(hdr.ParentThreadID())
	} else {
		conn, err = r.store.GetConnectionByThread(hdr.ThreadID())
	}
	if err != nil {
		return errors.Wrapf(err, "no connection for %s", hdr.Type)
	}

	switch m := msg.(type) {
	case *message.ConnectionRequest:
		_, err = r.connections.HandleRequest(ctx, conn.ConnectionID, m)
	case *message.ConnectionResponse:
		_, err = r.connections.HandleResponse(ctx, conn.ConnectionID, m)
	case *message.Ack:
		_, err = r.connections.HandleAck(ctx, conn.ConnectionID, m)
	case *message.ProblemReport:
		_, err = r.connections.HandleProblemReport(ctx, conn.ConnectionID, m)
	}

	return err
}

// sender finds the completed connection a message arrived on.
func (r *Dispatcher) sender(hdr *message.Header) (*datastore.Connection, error) {
	if hdr.SenderDID == "" {
		return nil, errors.Wrapf(message.ErrMalformed, "%s has no sender_did", hdr.ID)
	}

	conn, err := r.store.GetConnectionByTheirDID(hdr.SenderDID)
	if err != nil {
		return nil, errors.Wrapf(err, "no connection with %s", hdr.SenderDID)
	}

	if conn.State != datastore.ConnectionComplete {
		return nil, exchange.InvalidTransition("connection", conn.ConnectionID, conn.State)
	}

	return conn, nil
}
