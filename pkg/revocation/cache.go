/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package revocation caches revocation status lookups with a bounded staleness.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/schema"
)

const (
	DefaultTTL      = 60 * time.Second
	DefaultCapacity = 10000
	DefaultTimeout  = 10 * time.Second
)

type entry struct {
	revoked   bool
	fetchedAt time.Time
}

// Cache answers "is this credential revoked" for a (registry, index) pair. An entry is served while
// it is no older than the TTL; after that the ledger is consulted again.
type Cache struct {
	ledger  ledger.Reader
	entries gcache.Cache
	group   singleflight.Group
	clock   gcache.Clock
	ttl     time.Duration
	size    int
	timeout time.Duration
	log     *zap.Logger
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithCapacity(size int) Option {
	return func(c *Cache) {
		if size > 0 {
			c.size = size
		}
	}
}

func WithClock(clock gcache.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithTimeout bounds each ledger read.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) {
		c.log = log
	}
}

func New(lr ledger.Reader, opts ...Option) *Cache {
	c := &Cache{
		ledger:  lr,
		clock:   gcache.NewRealClock(),
		ttl:     DefaultTTL,
		size:    DefaultCapacity,
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.entries = gcache.New(c.size).LRU().Expiration(c.ttl).Clock(c.clock).Build()
	c.log = c.log.Named("revocation")

	return c
}

func key(registryID string, index int64) string {
	return fmt.Sprintf("%s:%d", registryID, index)
}

// Revoked reports whether the credential at index was revoked within interval. A nil interval means
// "now".
func (r *Cache) Revoked(ctx context.Context, registryID string, index int64, interval *schema.NonRevokedInterval) (bool, error) {
	var from, to int64
	if interval != nil {
		from, to = interval.From, interval.To
	}

	k := key(registryID, index)
	now := r.clock.Now()

	if v, err := r.entries.Get(k); err == nil {
		e := v.(*entry)
		if now.Sub(e.fetchedAt) <= r.ttl {
			// revocation is permanent, so a credential unrevoked at fetch time was unrevoked at any earlier point
			if to == 0 || to >= e.fetchedAt.Unix() || !e.revoked {
				return e.revoked, nil
			}
			return r.historical(ctx, registryID, index, from, to)
		}
	}

	v, err := r.do(ctx, k, func(ctx context.Context) (interface{}, error) {
		return r.refresh(ctx, registryID, index)
	})
	if err != nil {
		return false, err
	}

	e := v.(*entry)
	if to != 0 && to < e.fetchedAt.Unix() && e.revoked {
		return r.historical(ctx, registryID, index, from, to)
	}

	return e.revoked, nil
}

// do runs fn once per key however many callers ask. The shared read is detached from every caller and
// bounded by the timeout alone, so one caller giving up does not fail the others.
func (r *Cache) do(ctx context.Context, k string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := r.group.DoChan(k, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		return fn(ctx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "unable to read revocation state of %s", k)
	}
}

func (r *Cache) refresh(ctx context.Context, registryID string, index int64) (*entry, error) {
	fetchedAt := r.clock.Now()
	status, err := r.ledger.ReadRevocationDelta(ctx, registryID, index, 0, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read revocation state of %s", key(registryID, index))
	}

	e := &entry{revoked: status.Revoked, fetchedAt: fetchedAt}
	_ = r.entries.Set(key(registryID, index), e)

	r.log.Debug("refreshed revocation state", zap.String("registryID", registryID),
		zap.Int64("index", index), zap.Bool("revoked", e.revoked))

	return e, nil
}

// historical asks the ledger about a past interval. These answers are not cached.
func (r *Cache) historical(ctx context.Context, registryID string, index, from, to int64) (bool, error) {
	k := fmt.Sprintf("%s:%d:%d", key(registryID, index), from, to)
	v, err := r.do(ctx, k, func(ctx context.Context) (interface{}, error) {
		status, err := r.ledger.ReadRevocationDelta(ctx, registryID, index, from, to)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read revocation state of %s", key(registryID, index))
		}
		return status.Revoked, nil
	})
	if err != nil {
		return false, err
	}

	return v.(bool), nil
}

// Invalidate drops the entry so the next lookup goes to the ledger.
func (r *Cache) Invalidate(registryID string, index int64) {
	r.entries.Remove(key(registryID, index))
}
