/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package revocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/ledger"
	lmem "github.com/scoir/credex/pkg/ledger/mem"
	"github.com/scoir/credex/pkg/ledger/mocks"
	"github.com/scoir/credex/pkg/schema"
)

func TestRevoked(t *testing.T) {
	ctx := context.Background()

	t.Run("served from cache within ttl", func(t *testing.T) {
		lc := &mocks.Client{}
		clock := gcache.NewFakeClock()
		c := New(lc, WithTTL(time.Minute), WithClock(clock))

		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(1), int64(0), int64(0)).
			Return(&ledger.RevocationStatus{Revoked: false}, nil).Twice()

		revoked, err := c.Revoked(ctx, "reg1", 1, nil)
		require.NoError(t, err)
		require.False(t, revoked)

		clock.Advance(30 * time.Second)
		revoked, err = c.Revoked(ctx, "reg1", 1, &schema.NonRevokedInterval{})
		require.NoError(t, err)
		require.False(t, revoked)
		lc.AssertNumberOfCalls(t, "ReadRevocationDelta", 1)

		clock.Advance(31 * time.Second)
		_, err = c.Revoked(ctx, "reg1", 1, nil)
		require.NoError(t, err)
		lc.AssertNumberOfCalls(t, "ReadRevocationDelta", 2)
	})

	t.Run("never stale beyond ttl", func(t *testing.T) {
		l := lmem.New()
		regID := registry(t, l)
		clock := gcache.NewFakeClock()
		c := New(l, WithTTL(10*time.Second), WithClock(clock))

		revoked, err := c.Revoked(ctx, regID, 3, nil)
		require.NoError(t, err)
		require.False(t, revoked)

		require.NoError(t, l.WriteRevocation(ctx, regID, 3))

		clock.Advance(11 * time.Second)
		revoked, err = c.Revoked(ctx, regID, 3, nil)
		require.NoError(t, err)
		require.True(t, revoked)
	})

	t.Run("invalidate forces a read", func(t *testing.T) {
		l := lmem.New()
		regID := registry(t, l)
		c := New(l, WithTTL(time.Hour))

		revoked, err := c.Revoked(ctx, regID, 2, nil)
		require.NoError(t, err)
		require.False(t, revoked)

		require.NoError(t, l.WriteRevocation(ctx, regID, 2))
		revoked, err = c.Revoked(ctx, regID, 2, nil)
		require.NoError(t, err)
		require.False(t, revoked)

		c.Invalidate(regID, 2)
		revoked, err = c.Revoked(ctx, regID, 2, nil)
		require.NoError(t, err)
		require.True(t, revoked)
	})

	t.Run("concurrent refreshes collapse", func(t *testing.T) {
		lc := &mocks.Client{}
		c := New(lc)

		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(5), int64(0), int64(0)).
			After(100*time.Millisecond).Return(&ledger.RevocationStatus{Revoked: true}, nil).Once()
		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(6), int64(0), int64(0)).
			Return(&ledger.RevocationStatus{Revoked: false}, nil).Once()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				revoked, err := c.Revoked(ctx, "reg1", 5, nil)
				require.NoError(t, err)
				require.True(t, revoked)
			}()
		}

		revoked, err := c.Revoked(ctx, "reg1", 6, nil)
		require.NoError(t, err)
		require.False(t, revoked)

		wg.Wait()
		lc.AssertExpectations(t)
	})

	t.Run("cancelled caller does not fail a shared refresh", func(t *testing.T) {
		lc := &mocks.Client{}
		c := New(lc)

		started, release := make(chan struct{}), make(chan struct{})
		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(3), int64(0), int64(0)).
			Return(func(context.Context, string, int64, int64, int64) *ledger.RevocationStatus {
				close(started)
				<-release
				return &ledger.RevocationStatus{Revoked: true}
			}, nil).Once()

		actx, cancel := context.WithCancel(ctx)
		aerr := make(chan error, 1)
		go func() {
			_, err := c.Revoked(actx, "reg1", 3, nil)
			aerr <- err
		}()

		<-started
		type result struct {
			revoked bool
			err     error
		}
		bres := make(chan result, 1)
		go func() {
			revoked, err := c.Revoked(ctx, "reg1", 3, nil)
			bres <- result{revoked, err}
		}()

		cancel()
		require.True(t, errors.Is(<-aerr, context.Canceled))

		close(release)
		b := <-bres
		require.NoError(t, b.err)
		require.True(t, b.revoked)
		lc.AssertExpectations(t)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		lc := &mocks.Client{}
		c := New(lc)

		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(1), int64(0), int64(0)).
			Return(nil, errors.New("ledger down")).Once()
		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(1), int64(0), int64(0)).
			Return(&ledger.RevocationStatus{Revoked: false}, nil).Once()

		_, err := c.Revoked(ctx, "reg1", 1, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "ledger down")

		revoked, err := c.Revoked(ctx, "reg1", 1, nil)
		require.NoError(t, err)
		require.False(t, revoked)
		lc.AssertExpectations(t)
	})

	t.Run("past interval asks the ledger", func(t *testing.T) {
		lc := &mocks.Client{}
		clock := gcache.NewFakeClock()
		c := New(lc, WithClock(clock))
		past := clock.Now().Unix() - 100

		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(1), int64(0), int64(0)).
			Return(&ledger.RevocationStatus{Revoked: true}, nil).Once()
		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(1), int64(0), past).
			Return(&ledger.RevocationStatus{Revoked: false}, nil).Once()

		revoked, err := c.Revoked(ctx, "reg1", 1, nil)
		require.NoError(t, err)
		require.True(t, revoked)

		revoked, err = c.Revoked(ctx, "reg1", 1, &schema.NonRevokedInterval{To: past})
		require.NoError(t, err)
		require.False(t, revoked)
		lc.AssertExpectations(t)
	})

	t.Run("ledger read is bounded", func(t *testing.T) {
		lc := &mocks.Client{}
		c := New(lc, WithTimeout(20*time.Millisecond))

		lc.On("ReadRevocationDelta", mock.Anything, "reg1", int64(1), int64(0), int64(0)).
			Return(func(ctx context.Context, _ string, _, _, _ int64) *ledger.RevocationStatus {
				<-ctx.Done()
				return nil
			}, func(ctx context.Context, _ string, _, _, _ int64) error {
				return ctx.Err()
			})

		_, err := c.Revoked(ctx, "reg1", 1, nil)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func registry(t *testing.T, l *lmem.Ledger) string {
	ctx := context.Background()
	schemaID, err := l.WriteSchema(ctx, &ledger.Schema{IssuerDID: "did1", Name: "degree", Version: "1.0",
		AttrNames: []string{"degree"}})
	require.NoError(t, err)

	credDefID, err := l.WriteCredDef(ctx, &ledger.CredentialDefinition{SchemaID: schemaID, IssuerDID: "did1", Tag: "t"})
	require.NoError(t, err)

	regID, err := l.WriteRevocationRegistry(ctx, &ledger.RevocationRegistry{CredDefID: credDefID, IssuerDID: "did1",
		Tag: "1", MaxCredNum: 10})
	require.NoError(t, err)

	return regID
}
