/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package agent assembles a complete agent: its store, ledger, crypto engine, revocation cache, the
// three protocol coordinators and the dispatcher that feeds them.
package agent

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scoir/credex/pkg/amqp"
	"github.com/scoir/credex/pkg/credential"
	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/crypto/commitment"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/dispatcher"
	"github.com/scoir/credex/pkg/didcomm/transport"
	"github.com/scoir/credex/pkg/didexchange"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/notifier"
	"github.com/scoir/credex/pkg/presentproof"
	"github.com/scoir/credex/pkg/revocation"
)

type Option func(*Agent)

func WithName(name string) Option {
	return func(r *Agent) {
		r.name = name
	}
}

// WithLabel sets the label offered in invitations and connection requests. It defaults to the name.
func WithLabel(label string) Option {
	return func(r *Agent) {
		r.label = label
	}
}

func WithEndpoint(endpoint string) Option {
	return func(r *Agent) {
		r.endpoint = endpoint
	}
}

// WithSeed derives the public DID from seed the first time the agent starts.
func WithSeed(seed string) Option {
	return func(r *Agent) {
		r.seed = seed
	}
}

func WithStore(store datastore.Store) Option {
	return func(r *Agent) {
		r.store = store
	}
}

func WithLedger(l ledger.Client) Option {
	return func(r *Agent) {
		r.ledger = l
	}
}

func WithMessenger(m transport.Messenger) Option {
	return func(r *Agent) {
		r.messenger = m
	}
}

func WithNotifier(n notifier.Notifier) Option {
	return func(r *Agent) {
		r.notifier = n
	}
}

func WithEngine(e crypto.Engine) Option {
	return func(r *Agent) {
		r.engine = e
	}
}

func WithRevocationCache(opts ...revocation.Option) Option {
	return func(r *Agent) {
		r.cacheOpts = append(r.cacheOpts, opts...)
	}
}

func WithTimeouts(t exchange.Timeouts) Option {
	return func(r *Agent) {
		r.timeouts = t.WithDefaults()
	}
}

func WithAuto(a dispatcher.Auto) Option {
	return func(r *Agent) {
		r.auto = a
	}
}

// WithInbound consumes inbound messages from l while the agent is started.
func WithInbound(l amqp.Listener) Option {
	return func(r *Agent) {
		r.inbound = l
	}
}

// WithRelay runs a webhook relay consuming the notification queue while the agent is started.
func WithRelay(s *notifier.Server) Option {
	return func(r *Agent) {
		r.relay = s
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Agent) {
		r.log = l
	}
}

type Agent struct {
	name      string
	label     string
	endpoint  string
	seed      string
	publicDID string

	store       datastore.Store
	ledger      ledger.Client
	engine      crypto.Engine
	revocations *revocation.Cache
	cacheOpts   []revocation.Option
	messenger   transport.Messenger
	notifier    notifier.Notifier
	timeouts    exchange.Timeouts
	inflight    *exchange.Inflight
	auto        dispatcher.Auto
	inbound     amqp.Listener
	relay       *notifier.Server
	closers     []io.Closer
	log         *zap.Logger

	connections   *didexchange.Supervisor
	credentials   *credential.Supervisor
	presentations *presentproof.Supervisor
	dispatcher    *dispatcher.Dispatcher
}

// New assembles an agent. A store and a ledger are required. The public DID is loaded from the
// store, or created on first start, and its endpoint written to the ledger.
func New(ctx context.Context, opts ...Option) (*Agent, error) {
	r := &Agent{
		timeouts: exchange.DefaultTimeouts(),
		inflight: exchange.NewInflight(),
		notifier: notifier.Nop{},
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.store == nil {
		return nil, errors.New("agent store is required")
	}
	if r.ledger == nil {
		return nil, errors.New("agent ledger is required")
	}
	if r.label == "" {
		r.label = r.name
	}
	if r.name != "" {
		r.log = r.log.With(zap.String("agent", r.name))
	}
	if r.engine == nil {
		r.engine = commitment.New(r.store, r.ledger)
	}
	if r.messenger == nil {
		r.messenger = transport.NewRouter(r.ledger, transport.WithLogger(r.log))
	}

	r.revocations = revocation.New(r.ledger, append([]revocation.Option{revocation.WithLogger(r.log)}, r.cacheOpts...)...)

	err := r.bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	r.connections = didexchange.New(r)
	r.credentials = credential.New(r)
	r.presentations = presentproof.New(r)
	r.dispatcher = dispatcher.New(r.store, r.connections, r.credentials, r.presentations,
		dispatcher.WithAuto(r.auto), dispatcher.WithLogger(r.log))

	return r, nil
}

func (r *Agent) bootstrap(ctx context.Context) error {
	d, kp, err := loadIdentity(r.store, r.seed)
	if err != nil {
		return err
	}

	lctx, cancel := r.timeouts.LedgerContext(ctx)
	defer cancel()

	err = r.ledger.WriteDID(lctx, &ledger.ServiceEndpoint{
		DID:      d.String(),
		Verkey:   kp.Verkey(),
		Endpoint: r.endpoint,
	})
	if err != nil {
		return errors.Wrapf(err, "unable to publish public DID %s", d.String())
	}

	r.publicDID = d.String()
	r.log.Info("agent identity ready", zap.String("did", r.publicDID), zap.String("endpoint", r.endpoint))
	return nil
}

// Handle processes one inbound encoded message.
func (r *Agent) Handle(ctx context.Context, payload []byte) error {
	return r.dispatcher.Handle(ctx, payload)
}

// Listen handles deliveries from l until they stop.
func (r *Agent) Listen(ctx context.Context, l amqp.Listener) error {
	msgs, err := l.Listen()
	if err != nil {
		return errors.Wrap(err, "unable to consume inbound messages")
	}

	for d := range msgs {
		err := r.Handle(ctx, d.Body)
		if err != nil {
			r.log.Error("unable to process inbound message", zap.String("messageID", d.MessageId), zap.Error(err))
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return errors.New("inbound messages closed")
}

// Start runs the inbound consumer and the webhook relay, when configured, until ctx is done.
func (r *Agent) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if r.inbound != nil {
		g.Go(func() error {
			return r.Listen(gctx, r.inbound)
		})
	}

	if r.relay != nil {
		g.Go(func() error {
			err := r.relay.Start()
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		r.Close()
		return nil
	})

	return g.Wait()
}

// Close releases the agent's listeners and connections. Start calls it on the way out.
func (r *Agent) Close() {
	if r.inbound != nil {
		if err := r.inbound.Close(); err != nil {
			r.log.Warn("unable to close inbound listener", zap.Error(err))
		}
	}

	if r.relay != nil {
		if err := r.relay.Close(); err != nil {
			r.log.Warn("unable to close webhook relay", zap.Error(err))
		}
	}

	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			r.log.Warn("unable to close agent resource", zap.Error(err))
		}
	}
}

func (r *Agent) Connections() *didexchange.Supervisor {
	return r.connections
}

func (r *Agent) Credentials() *credential.Supervisor {
	return r.credentials
}

func (r *Agent) Presentations() *presentproof.Supervisor {
	return r.presentations
}

func (r *Agent) Dispatcher() *dispatcher.Dispatcher {
	return r.dispatcher
}

func (r *Agent) Name() string {
	return r.name
}

func (r *Agent) Store() datastore.Store {
	return r.store
}

func (r *Agent) Ledger() ledger.Client {
	return r.ledger
}

func (r *Agent) Messenger() transport.Messenger {
	return r.messenger
}

func (r *Agent) Notifier() notifier.Notifier {
	return r.notifier
}

func (r *Agent) Crypto() crypto.Engine {
	return r.engine
}

func (r *Agent) Revocations() *revocation.Cache {
	return r.revocations
}

func (r *Agent) PublicDID() string {
	return r.publicDID
}

func (r *Agent) Endpoint() string {
	return r.endpoint
}

func (r *Agent) Label() string {
	return r.label
}

func (r *Agent) Logger() *zap.Logger {
	return r.log
}

func (r *Agent) Timeouts() exchange.Timeouts {
	return r.timeouts
}

func (r *Agent) Inflight() *exchange.Inflight {
	return r.inflight
}
