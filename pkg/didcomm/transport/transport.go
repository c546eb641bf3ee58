/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transport delivers outbound protocol messages to the counterparty of a connection.
package transport

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/ledger"
)

const DefaultResolveTimeout = 10 * time.Second

var ErrUnsupportedScheme = errors.New("unsupported endpoint scheme")

// Sender writes an encoded message to an endpoint.
//go:generate mockery -name=Sender
type Sender interface {
	Send(ctx context.Context, endpoint string, payload []byte) error
}

// Messenger delivers a message to the other side of a connection.
//go:generate mockery -name=Messenger
type Messenger interface {
	Send(ctx context.Context, conn *datastore.Connection, msg message.Message) error
}

// Handler receives inbound encoded messages.
type Handler func(ctx context.Context, payload []byte) error

type Option func(*Router)

func WithSender(scheme string, s Sender) Option {
	return func(r *Router) {
		r.senders[scheme] = s
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		r.log = l.Named("transport")
	}
}

// WithResolveTimeout bounds ledger lookups of a counterparty's endpoint.
func WithResolveTimeout(d time.Duration) Option {
	return func(r *Router) {
		r.timeout = d
	}
}

// Router is a Messenger that picks a Sender by the scheme of the counterparty's endpoint. When a
// connection has no endpoint recorded, their DID is resolved through the ledger at send time.
type Router struct {
	ledger  ledger.Reader
	senders map[string]Sender
	timeout time.Duration
	log     *zap.Logger
}

func NewRouter(lr ledger.Reader, opts ...Option) *Router {
	r := &Router{
		ledger:  lr,
		senders: map[string]Sender{},
		timeout: DefaultResolveTimeout,
		log:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Router) Send(ctx context.Context, conn *datastore.Connection, msg message.Message) error {
	hdr := msg.Hdr()
	if hdr.SenderDID == "" {
		hdr.SenderDID = conn.MyDID
	}
	if hdr.Timing == nil {
		hdr.Timing = &message.Timing{OutTime: time.Now().UTC()}
	}

	endpoint, err := r.endpoint(ctx, conn)
	if err != nil {
		return err
	}

	sender, err := r.sender(endpoint)
	if err != nil {
		return err
	}

	d, err := message.Encode(msg)
	if err != nil {
		return err
	}

	err = sender.Send(ctx, endpoint, d)
	if err != nil {
		return errors.Wrapf(err, "unable to send %s to %s", hdr.Type, endpoint)
	}

	r.log.Debug("message sent", zap.String("type", hdr.Type), zap.String("id", hdr.ID),
		zap.String("threadID", hdr.ThreadID()), zap.String("connectionID", conn.ConnectionID))

	return nil
}

func (r *Router) endpoint(ctx context.Context, conn *datastore.Connection) (string, error) {
	if conn.TheirEndpoint != "" {
		return conn.TheirEndpoint, nil
	}

	if conn.TheirDID == "" || r.ledger == nil {
		return "", errors.Wrapf(ledger.ErrUnresolvableDID, "connection %s has no endpoint", conn.ConnectionID)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ep, err := r.ledger.ResolveDID(ctx, conn.TheirDID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return "", errors.Wrapf(ledger.ErrUnresolvableDID, "%s: %v", conn.TheirDID, err)
		}
		return "", errors.Wrapf(err, "unable to resolve %s", conn.TheirDID)
	}

	if ep.Endpoint == "" {
		return "", errors.Wrapf(ledger.ErrUnresolvableDID, "%s has no service endpoint", conn.TheirDID)
	}

	return ep.Endpoint, nil
}

func (r *Router) sender(endpoint string) (Sender, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid endpoint %s", endpoint)
	}

	s, ok := r.senders[u.Scheme]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedScheme, "%q", u.Scheme)
	}

	return s, nil
}
