/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notifier

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/amqp"
	"github.com/scoir/credex/pkg/datastore"
)

const DefaultMaxElapsed = 30 * time.Second

// Server relays notifications to the webhooks registered for their topic.
type Server struct {
	store      datastore.Store
	listener   amqp.Listener
	client     *http.Client
	maxElapsed time.Duration
	log        *zap.Logger

	mu     sync.Mutex
	errors chan error
	wg     sync.WaitGroup
}

type Option func(*Server)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Server) {
		r.client = c
	}
}

// WithMaxElapsed bounds how long delivery to one webhook is retried.
func WithMaxElapsed(d time.Duration) Option {
	return func(r *Server) {
		r.maxElapsed = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Server) {
		r.log = l.Named("notifier")
	}
}

// New creates a server. listener may be nil when the server only relays notifications handed to
// Notify.
func New(store datastore.Store, listener amqp.Listener, opts ...Option) *Server {
	srv := &Server{
		store:      store,
		listener:   listener,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxElapsed: DefaultMaxElapsed,
		log:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// Start consumes the notification queue until it is closed.
func (r *Server) Start() error {
	if r.listener == nil {
		return errors.New("no notification listener configured")
	}

	msgs, err := r.listener.Listen()
	if err != nil {
		return errors.Wrap(err, "unable to consume")
	}

	for d := range msgs {
		note := &Notification{}
		err := json.Unmarshal(d.Body, note)
		if err != nil {
			r.Error(errors.Wrap(err, "bad notification message"))
			continue
		}

		r.relay(note)
	}

	return errors.New("notification messages closed")
}

// Notify relays directly to webhooks without going through the queue. Delivery happens in the
// background; Wait blocks until it is done.
func (r *Server) Notify(topic, event string, data interface{}) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.relay(&Notification{Topic: topic, Event: event, EventData: data})
	}()

	return nil
}

func (r *Server) Wait() {
	r.wg.Wait()
}

// Close stops consuming the notification queue and waits for direct deliveries to finish.
func (r *Server) Close() error {
	var err error
	if r.listener != nil {
		err = r.listener.Close()
	}

	r.wg.Wait()
	return err
}

func (r *Server) relay(note *Notification) {
	hooks, err := r.store.ListWebhooks(note.Topic)
	if err != nil {
		r.Error(errors.Wrapf(err, "no webhooks for topic %s", note.Topic))
		return
	}

	event := &EventMessage{
		Topic:     note.Topic,
		Event:     note.Event,
		Timestamp: time.Now().Unix(),
		EventData: note.EventData,
	}
	data, err := json.Marshal(event)
	if err != nil {
		r.Error(errors.Wrap(err, "unable to marshal event"))
		return
	}

	for _, hook := range hooks {
		err := r.post(hook.URL, data)
		if err != nil {
			r.Error(errors.Wrapf(err, "unable to post event to hook %s", hook.URL))
		}
	}
}

func (r *Server) post(url string, data []byte) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = r.maxElapsed

	return backoff.RetryNotify(func() error {
		resp, err := r.client.Post(url, "application/json", bytes.NewBuffer(data))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
			return nil
		}

		b, _ := ioutil.ReadAll(resp.Body)
		err = errors.Errorf("error response from hook. code: (%d): %s", resp.StatusCode, string(b))
		if resp.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		return err
	}, bo, func(err error, next time.Duration) {
		r.log.Debug("webhook delivery failed, retrying", zap.String("url", url), zap.Duration("next", next), zap.Error(err))
	})
}

func (r *Server) Error(err error) {
	r.mu.Lock()
	ch := r.errors
	r.mu.Unlock()

	if ch == nil {
		r.log.Warn("notification failure", zap.Error(err))
		return
	}

	ch <- err
}

func (r *Server) Errors() (chan error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.errors != nil {
		return nil, errors.New("error listener already registered")
	}

	r.errors = make(chan error, 1)
	return r.errors, nil
}
