/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem is an in-process transport. Each registered endpoint has its own queue and worker,
// so a handler may send while it holds locks of its own.
package mem

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/didcomm/transport"
)

const Scheme = "mem"

var (
	ErrUnknownEndpoint = errors.New("no agent registered at endpoint")
	ErrClosed          = errors.New("hub closed")
)

type Hub struct {
	mu      sync.Mutex
	queues  map[string]*queue
	pending sync.WaitGroup
	closed  bool
	log     *zap.Logger
}

type queue struct {
	mu      sync.Mutex
	items   [][]byte
	signal  chan struct{}
	done    chan struct{}
	handler transport.Handler
}

func NewHub(l *zap.Logger) *Hub {
	if l == nil {
		l = zap.NewNop()
	}

	return &Hub{
		queues: map[string]*queue{},
		log:    l.Named("mem-transport"),
	}
}

// Endpoint is the address an agent named name registers under.
func Endpoint(name string) string {
	return Scheme + "://" + name
}

// Register starts delivering messages sent to endpoint to h.
func (r *Hub) Register(endpoint string, h transport.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if _, ok := r.queues[endpoint]; ok {
		return errors.Errorf("endpoint %s already registered", endpoint)
	}

	q := &queue{
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		handler: h,
	}
	r.queues[endpoint] = q

	go r.work(endpoint, q)

	return nil
}

func (r *Hub) Send(_ context.Context, endpoint string, payload []byte) error {
	d := make([]byte, len(payload))
	copy(d, payload)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	q, ok := r.queues[endpoint]
	if !ok {
		return errors.Wrap(ErrUnknownEndpoint, endpoint)
	}

	r.pending.Add(1)
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return nil
}

// Wait blocks until every message sent so far, and every message sent while handling those, has
// been delivered.
func (r *Hub) Wait() {
	r.pending.Wait()
}

// Close stops the workers. Undelivered messages are dropped.
func (r *Hub) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for _, q := range r.queues {
		close(q.done)
	}
}

func (r *Hub) work(endpoint string, q *queue) {
	for {
		select {
		case <-q.done:
			r.drop(q)
			return
		case <-q.signal:
		}

		for {
			q.mu.Lock()
			if len(q.items) == 0 {
				q.mu.Unlock()
				break
			}
			d := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()

			err := q.handler(context.Background(), d)
			if err != nil {
				r.log.Warn("delivery failed", zap.String("endpoint", endpoint), zap.Error(err))
			}
			r.pending.Done()
		}
	}
}

func (r *Hub) drop(q *queue) {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.mu.Unlock()

	for i := 0; i < n; i++ {
		r.pending.Done()
	}
}
