/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/didcomm/transport"
	"github.com/scoir/credex/pkg/didcomm/transport/mocks"
	"github.com/scoir/credex/pkg/ledger"
	lmem "github.com/scoir/credex/pkg/ledger/mem"
)

func ack(thid string) *message.Ack {
	return &message.Ack{Header: message.Reply(message.ConnectionAckType, thid), Status: "OK"}
}

func TestRouter_Send(t *testing.T) {
	t.Run("recorded endpoint", func(t *testing.T) {
		s := &mocks.Sender{}
		r := transport.NewRouter(nil, transport.WithSender("mem", s))

		var sent []byte
		s.On("Send", mock.Anything, "mem://bob", mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(2).([]byte)
		}).Return(nil)

		conn := &datastore.Connection{ConnectionID: "c1", MyDID: "did:sov:alice", TheirEndpoint: "mem://bob"}
		err := r.Send(context.Background(), conn, ack("thid"))
		require.NoError(t, err)

		out := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(sent, &out))
		require.Equal(t, "did:sov:alice", out["sender_did"])
		require.Equal(t, message.ConnectionAckType, out["@type"])
		s.AssertExpectations(t)
	})

	t.Run("resolves their DID lazily", func(t *testing.T) {
		l := lmem.New()
		require.NoError(t, l.WriteDID(context.Background(), &ledger.ServiceEndpoint{
			DID:      "did:sov:Bob1",
			Endpoint: "mem://bob",
		}))

		s := &mocks.Sender{}
		s.On("Send", mock.Anything, "mem://bob", mock.Anything).Return(nil)
		r := transport.NewRouter(l, transport.WithSender("mem", s))

		conn := &datastore.Connection{ConnectionID: "c1", TheirDID: "did:sov:Bob1"}
		require.NoError(t, r.Send(context.Background(), conn, ack("thid")))
		s.AssertExpectations(t)
	})

	t.Run("unresolvable DID", func(t *testing.T) {
		r := transport.NewRouter(lmem.New())

		conn := &datastore.Connection{ConnectionID: "c1", TheirDID: "did:sov:Nobody"}
		err := r.Send(context.Background(), conn, ack("thid"))
		require.Error(t, err)
		require.True(t, errors.Is(err, ledger.ErrUnresolvableDID))
	})

	t.Run("no endpoint and no DID", func(t *testing.T) {
		r := transport.NewRouter(lmem.New())
		err := r.Send(context.Background(), &datastore.Connection{ConnectionID: "c1"}, ack("thid"))
		require.True(t, errors.Is(err, ledger.ErrUnresolvableDID))
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		r := transport.NewRouter(nil)
		conn := &datastore.Connection{ConnectionID: "c1", TheirEndpoint: "ws://bob"}
		err := r.Send(context.Background(), conn, ack("thid"))
		require.True(t, errors.Is(err, transport.ErrUnsupportedScheme))
	})

	t.Run("sender failure", func(t *testing.T) {
		s := &mocks.Sender{}
		s.On("Send", mock.Anything, "mem://bob", mock.Anything).Return(errors.New("boom"))
		r := transport.NewRouter(nil, transport.WithSender("mem", s))

		conn := &datastore.Connection{ConnectionID: "c1", TheirEndpoint: "mem://bob"}
		err := r.Send(context.Background(), conn, ack("thid"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "boom")
	})
}
