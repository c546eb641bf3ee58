/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/credential"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/didexchange"
	"github.com/scoir/credex/pkg/exchange"
	lmem "github.com/scoir/credex/pkg/ledger/mem"
	"github.com/scoir/credex/pkg/mock"
	"github.com/scoir/credex/pkg/presentproof"
)

type fixture struct {
	faber, alice *mock.Context
	fa, af       *datastore.Connection
	issuer       *credential.Supervisor
	holder       *credential.Supervisor
	credDefID    string
}

func setup(t *testing.T) *fixture {
	l := lmem.New()
	f := &fixture{
		faber: mock.NewContext("faber", l),
		alice: mock.NewContext("alice", l),
	}
	f.fa, f.af = mock.Connect(f.faber, f.alice)
	f.issuer, f.holder = credential.New(f.faber), credential.New(f.alice)

	ctx := context.Background()
	s, err := f.issuer.CreateSchema(ctx, "degree", "1.0", []string{"name", "degree"})
	require.NoError(t, err)
	cd, err := f.issuer.CreateCredentialDefinition(ctx, s.ID)
	require.NoError(t, err)
	f.credDefID = cd.ID

	return f
}

func (f *fixture) dispatcher(ctx *mock.Context, creds *credential.Supervisor, opts ...Option) *Dispatcher {
	return New(ctx.Store(), didexchange.New(ctx), creds, presentproof.New(ctx), opts...)
}

// outbound is what faber last sent, as it would arrive from the wire.
func (f *fixture) outbound(t *testing.T) []byte {
	msg := f.faber.Outbox.Last()
	require.NotNil(t, msg)
	msg.Hdr().SenderDID = f.fa.MyDID

	d, err := message.Encode(msg)
	require.NoError(t, err)
	return d
}

func (f *fixture) offer(t *testing.T) *datastore.CredentialExchange {
	ex, err := f.issuer.Offer(context.Background(), f.fa.ConnectionID, f.credDefID,
		map[string]string{"name": "Alice", "degree": "BSc"}, "")
	require.NoError(t, err)
	return ex
}

func TestHandle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("routes by type and sender", func(t *testing.T) {
		f.offer(t)
		d := f.dispatcher(f.alice, f.holder)

		require.NoError(t, d.Handle(ctx, f.outbound(t)))

		list, err := f.holder.List(&datastore.ExchangeCriteria{ConnectionID: f.af.ConnectionID})
		require.NoError(t, err)
		require.Equal(t, 1, list.Count)
		require.Equal(t, datastore.CredentialOffered, list.Exchanges[0].State)
		require.Nil(t, f.alice.Outbox.Last())
	})

	t.Run("takes automatic steps", func(t *testing.T) {
		iex := f.offer(t)
		d := f.dispatcher(f.alice, f.holder, WithAuto(Auto{AcceptOffers: true}))

		require.NoError(t, d.Handle(ctx, f.outbound(t)))

		req, ok := f.alice.Outbox.Last().(*message.RequestCredential)
		require.True(t, ok)
		require.Equal(t, iex.ThreadID, req.ThreadID())
	})

	t.Run("drops garbage", func(t *testing.T) {
		d := f.dispatcher(f.alice, f.holder)
		require.NoError(t, d.Handle(ctx, []byte("not json")))
		require.NoError(t, d.Handle(ctx, []byte(`{"@type":"https://didcomm.org/unknown/1.0/x","@id":"1"}`)))
	})
}

func TestDispatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.dispatcher(f.alice, f.holder)

	msg := func() message.Message {
		f.offer(t)
		m, err := message.Decode(f.outbound(t))
		require.NoError(t, err)
		return m
	}

	t.Run("expired", func(t *testing.T) {
		m := msg()
		past := time.Now().Add(-time.Minute)
		m.Hdr().Timing.ExpiresTime = &past

		err := d.Dispatch(ctx, m)
		require.True(t, errors.Is(err, exchange.ErrExpiredMessage))
		require.True(t, Discard(err))
	})

	t.Run("not yet expired", func(t *testing.T) {
		m := msg()
		later := time.Now().Add(time.Minute)
		m.Hdr().Timing.ExpiresTime = &later

		require.NoError(t, d.Dispatch(ctx, m))
	})

	t.Run("unknown sender", func(t *testing.T) {
		m := msg()
		m.Hdr().SenderDID = "did:sov:nobody"

		err := d.Dispatch(ctx, m)
		require.True(t, errors.Is(err, datastore.ErrNotFound))
		require.True(t, Discard(err))
	})

	t.Run("no sender", func(t *testing.T) {
		m := msg()
		m.Hdr().SenderDID = ""

		err := d.Dispatch(ctx, m)
		require.True(t, errors.Is(err, message.ErrMalformed))
	})

	t.Run("connection not complete", func(t *testing.T) {
		m := msg()

		conn, err := f.alice.Store().GetConnection(f.af.ConnectionID)
		require.NoError(t, err)
		conn.State = datastore.ConnectionResponded
		require.NoError(t, f.alice.Store().UpdateConnection(conn))
		defer func() {
			conn.State = datastore.ConnectionComplete
			require.NoError(t, f.alice.Store().UpdateConnection(conn))
		}()

		err = d.Dispatch(ctx, m)
		require.True(t, errors.Is(err, exchange.ErrInvalidTransition))
	})

	t.Run("invitation", func(t *testing.T) {
		inv := &message.Invitation{Header: message.NewHeader(message.ConnectionInvitationType)}
		err := d.Dispatch(ctx, inv)
		require.True(t, exchange.IsProtocolError(err))
	})

	t.Run("storage failures are kept", func(t *testing.T) {
		require.False(t, Discard(errors.New("connection refused")))
		require.False(t, Discard(exchange.Dependency(errors.New("ledger down"), "unable to read")))
	})
}
