/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/amqp/rabbitmq"
	"github.com/scoir/credex/pkg/config"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/transport"
	amqpsender "github.com/scoir/credex/pkg/didcomm/transport/amqp"
	httpsender "github.com/scoir/credex/pkg/didcomm/transport/http"
	"github.com/scoir/credex/pkg/notifier"
	"github.com/scoir/credex/pkg/revocation"
)

// FromConfig assembles an agent from cfg. With a broker configured the agent consumes its inbound
// queue and publishes notifications to a queue relayed to webhooks; without one, notifications go
// to the webhooks directly.
func FromConfig(ctx context.Context, cfg config.Config, l *zap.Logger) (*Agent, error) {
	ac, err := cfg.Agent()
	if err != nil {
		return nil, err
	}

	dc, err := cfg.DataStore()
	if err != nil {
		return nil, errors.Wrap(err, "unable to load datastore config")
	}

	prov, err := dc.StorageProvider()
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	closers = append(closers, prov)

	store, err := prov.OpenStore(ac.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open store for %s", ac.Name)
	}

	lc, err := cfg.LedgerConfig()
	if err != nil {
		return nil, errors.Wrap(err, "unable to load ledger config")
	}

	lcl, err := lc.Client()
	if err != nil {
		return nil, err
	}

	timeouts := cfg.Timeouts()
	opts := []Option{
		WithName(ac.Name),
		WithLabel(ac.Label),
		WithEndpoint(ac.Endpoint),
		WithSeed(ac.Seed),
		WithStore(store),
		WithLedger(lcl),
		WithTimeouts(timeouts),
		WithAuto(ac.Auto),
		WithLogger(l),
		WithRevocationCache(revocation.WithTimeout(timeouts.Ledger)),
	}

	rc, err := cfg.RevocationCache()
	if err != nil {
		return nil, errors.Wrap(err, "unable to load revocation cache config")
	}
	if rc.TTL > 0 {
		opts = append(opts, WithRevocationCache(revocation.WithTTL(rc.TTL)))
	}
	if rc.Size > 0 {
		opts = append(opts, WithRevocationCache(revocation.WithCapacity(rc.Size)))
	}

	hooks, err := cfg.Webhooks()
	if err != nil {
		return nil, err
	}
	for _, hook := range hooks {
		err = store.InsertWebhook(hook)
		if err != nil && !errors.Is(err, datastore.ErrDuplicate) {
			return nil, errors.Wrapf(err, "unable to register webhook %s", hook.URL)
		}
	}

	hs := httpsender.NewSender(timeouts.Ledger)
	routes := []transport.Option{
		transport.WithLogger(l),
		transport.WithResolveTimeout(timeouts.Ledger),
		transport.WithSender("http", hs),
		transport.WithSender("https", hs),
	}

	mq, err := cfg.AMQPConfig()
	if err != nil {
		return nil, errors.Wrap(err, "unable to load amqp config")
	}

	if mq.Configured() {
		addr := mq.Endpoint()

		as := amqpsender.NewSender(rabbitmq.Factory, l)
		closers = append(closers, as)
		routes = append(routes, transport.WithSender(amqpsender.Scheme, as), transport.WithSender("amqps", as))

		inbound, err := rabbitmq.NewListener(addr, ac.InboundQueue)
		if err != nil {
			return nil, errors.Wrap(err, "unable to listen for inbound messages")
		}

		pub, err := rabbitmq.NewPublisher(addr, ac.NotificationQueue)
		if err != nil {
			return nil, errors.Wrap(err, "unable to publish notifications")
		}
		closers = append(closers, pub)

		notes, err := rabbitmq.NewListener(addr, ac.NotificationQueue)
		if err != nil {
			return nil, errors.Wrap(err, "unable to listen for notifications")
		}

		opts = append(opts,
			WithInbound(inbound),
			WithNotifier(notifier.NewPublisher(pub, l)),
			WithRelay(notifier.New(store, notes, notifier.WithLogger(l))),
		)
	} else {
		opts = append(opts, WithNotifier(notifier.New(store, nil, notifier.WithLogger(l))))
	}

	opts = append(opts, WithMessenger(transport.NewRouter(lcl, routes...)), withClosers(closers...))

	return New(ctx, opts...)
}

func withClosers(c ...io.Closer) Option {
	return func(r *Agent) {
		r.closers = append(r.closers, c...)
	}
}
