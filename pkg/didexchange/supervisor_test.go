/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package didexchange

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/did"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	lmem "github.com/scoir/credex/pkg/ledger/mem"
	"github.com/scoir/credex/pkg/mock"
)

type party struct {
	sup *Supervisor
	ctx *mock.Context
}

func newParty(name string, l ledger.Client) *party {
	ctx := mock.NewContext(name, l)
	return &party{sup: New(ctx), ctx: ctx}
}

func setup() (*party, *party, *lmem.Ledger) {
	l := lmem.New()
	return newParty("faber", l), newParty("alice", l), l
}

// wire passes msg through the codec the way a transport would.
func wire(t *testing.T, msg message.Message) message.Message {
	d, err := message.Encode(msg)
	require.NoError(t, err)
	out, err := message.Decode(d)
	require.NoError(t, err)
	return out
}

func lastRequest(t *testing.T, p *party) *message.ConnectionRequest {
	req, ok := wire(t, p.ctx.Outbox.Last()).(*message.ConnectionRequest)
	require.True(t, ok)
	return req
}

func lastResponse(t *testing.T, p *party) *message.ConnectionResponse {
	resp, ok := wire(t, p.ctx.Outbox.Last()).(*message.ConnectionResponse)
	require.True(t, ok)
	return resp
}

func connect(t *testing.T, inviter, invitee *party) (*datastore.Connection, *datastore.Connection) {
	ctx := context.Background()

	inv, err := inviter.sup.CreateInvitation(ctx, "")
	require.NoError(t, err)
	url, err := inviter.sup.InvitationURL(inv)
	require.NoError(t, err)

	ic, err := invitee.sup.ReceiveInvitation(ctx, url)
	require.NoError(t, err)

	rc, err := inviter.sup.HandleRequest(ctx, inv.ConnectionID, lastRequest(t, invitee))
	require.NoError(t, err)

	ic, err = invitee.sup.HandleResponse(ctx, ic.ConnectionID, lastResponse(t, inviter))
	require.NoError(t, err)

	ack := wire(t, invitee.ctx.Outbox.Last()).(*message.Ack)
	rc, err = inviter.sup.HandleAck(ctx, rc.ConnectionID, ack)
	require.NoError(t, err)

	return rc, ic
}

func TestHandshake(t *testing.T) {
	faber, alice, _ := setup()
	ctx := context.Background()

	inv, err := faber.sup.CreateInvitation(ctx, "Faber College", WithAlias("alice"))
	require.NoError(t, err)
	require.Equal(t, datastore.ConnectionInvited, inv.State)
	require.Equal(t, datastore.RoleInviter, inv.Role)
	require.Empty(t, inv.TheirDID)

	invitation := &message.Invitation{}
	require.NoError(t, json.Unmarshal(inv.Invitation, invitation))
	require.Equal(t, "Faber College", invitation.Label)
	require.Equal(t, []string{inv.InvitationKey}, invitation.RecipientKeys)
	require.Equal(t, "mem://faber", invitation.ServiceEndpoint)

	url, err := faber.sup.InvitationURL(inv)
	require.NoError(t, err)
	require.Contains(t, url, "mem://faber?c_i=")

	ac, err := alice.sup.ReceiveInvitation(ctx, url)
	require.NoError(t, err)
	require.Equal(t, datastore.ConnectionRequested, ac.State)
	require.Equal(t, datastore.RoleInvitee, ac.Role)
	require.Equal(t, "Faber College", ac.TheirLabel)
	require.Equal(t, "mem://faber", ac.TheirEndpoint)

	req := lastRequest(t, alice)
	require.Equal(t, inv.InvitationID, req.ParentThreadID())
	require.Equal(t, ac.ThreadID, req.ID)
	require.Equal(t, ac.MyDID, req.Connection.DID)
	require.Equal(t, "mem://alice", req.Connection.Endpoint)

	fc, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, req)
	require.NoError(t, err)
	require.Equal(t, datastore.ConnectionResponded, fc.State)
	require.Equal(t, ac.MyDID, fc.TheirDID)
	require.Equal(t, "alice", fc.TheirLabel)
	require.Equal(t, req.ID, fc.ThreadID)

	resp := lastResponse(t, faber)
	require.Equal(t, req.ID, resp.ThreadID())
	require.Equal(t, inv.InvitationKey, resp.ConnectionSig.Signer)

	ac, err = alice.sup.HandleResponse(ctx, ac.ConnectionID, resp)
	require.NoError(t, err)
	require.Equal(t, datastore.ConnectionComplete, ac.State)
	require.Equal(t, fc.MyDID, ac.TheirDID)
	require.Equal(t, fc.MyVerkey, ac.TheirVerkey)

	ack, ok := wire(t, alice.ctx.Outbox.Last()).(*message.Ack)
	require.True(t, ok)
	require.Equal(t, req.ID, ack.ThreadID())

	fc, err = faber.sup.HandleAck(ctx, fc.ConnectionID, ack)
	require.NoError(t, err)
	require.Equal(t, datastore.ConnectionComplete, fc.State)

	list, err := faber.sup.List(&datastore.ConnectionCriteria{State: datastore.ConnectionComplete})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	require.Equal(t, "alice", list.Connections[0].Alias)
}

func TestHandleRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate request is a no-op", func(t *testing.T) {
		faber, alice, _ := setup()
		inv, err := faber.sup.CreateInvitation(ctx, "")
		require.NoError(t, err)
		url, _ := faber.sup.InvitationURL(inv)
		_, err = alice.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)
		req := lastRequest(t, alice)

		first, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, req)
		require.NoError(t, err)
		faber.ctx.Outbox.Reset()

		again, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, req)
		require.NoError(t, err)
		require.Equal(t, first.Version, again.Version)
		require.Equal(t, first.MyDID, again.MyDID)
		require.Empty(t, faber.ctx.Outbox.Sent())
	})

	t.Run("second request is an invalid transition", func(t *testing.T) {
		faber, alice, _ := setup()
		inv, err := faber.sup.CreateInvitation(ctx, "")
		require.NoError(t, err)
		url, _ := faber.sup.InvitationURL(inv)
		_, err = alice.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)
		req := lastRequest(t, alice)

		before, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, req)
		require.NoError(t, err)

		other := *req
		other.Header = message.NewHeader(message.ConnectionRequestType)
		other.Thread = &message.Thread{PThID: inv.InvitationID}

		_, err = faber.sup.HandleRequest(ctx, inv.ConnectionID, &other)
		require.Error(t, err)
		require.True(t, errors.Is(err, exchange.ErrInvalidTransition))
		require.True(t, exchange.IsProtocolError(err))

		after, err := faber.sup.Get(inv.ConnectionID)
		require.NoError(t, err)
		require.Equal(t, before.Version, after.Version)
		require.Equal(t, datastore.ConnectionResponded, after.State)
	})

	t.Run("multi-use invitation stays open", func(t *testing.T) {
		l := lmem.New()
		faber := newParty("faber", l)
		alice := newParty("alice", l)
		bob := newParty("bob", l)

		inv, err := faber.sup.CreateInvitation(ctx, "", WithMultiUse())
		require.NoError(t, err)
		url, _ := faber.sup.InvitationURL(inv)

		_, err = alice.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)
		_, err = bob.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)

		ac, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, lastRequest(t, alice))
		require.NoError(t, err)
		bc, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, lastRequest(t, bob))
		require.NoError(t, err)

		require.NotEqual(t, ac.ConnectionID, bc.ConnectionID)
		require.NotEqual(t, inv.ConnectionID, ac.ConnectionID)
		require.NotEqual(t, ac.MyDID, bc.MyDID)
		require.Equal(t, "alice", ac.TheirLabel)
		require.Equal(t, "bob", bc.TheirLabel)

		again, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, lastRequest(t, bob))
		require.NoError(t, err)
		require.Equal(t, bc.ConnectionID, again.ConnectionID)

		still, err := faber.sup.Get(inv.ConnectionID)
		require.NoError(t, err)
		require.Equal(t, datastore.ConnectionInvited, still.State)
	})

	t.Run("undelivered response can be retried", func(t *testing.T) {
		faber, alice, _ := setup()
		inv, err := faber.sup.CreateInvitation(ctx, "")
		require.NoError(t, err)
		url, _ := faber.sup.InvitationURL(inv)
		_, err = alice.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)
		req := lastRequest(t, alice)

		faber.ctx.Outbox.Fail(errors.New("connection refused"))
		fc, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, req)
		require.Error(t, err)
		require.True(t, exchange.IsDependencyError(err))
		require.Equal(t, datastore.StateError, fc.State)
		require.True(t, fc.Retryable)
		require.Equal(t, datastore.ConnectionInvited, fc.ResumeState)

		faber.ctx.Outbox.Fail(nil)
		fc, err = faber.sup.HandleRequest(ctx, inv.ConnectionID, req)
		require.NoError(t, err)
		require.Equal(t, datastore.ConnectionResponded, fc.State)
	})
}

func TestHandleResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("response replayed from another invitation", func(t *testing.T) {
		faber, alice, _ := setup()

		inv1, err := faber.sup.CreateInvitation(ctx, "")
		require.NoError(t, err)
		inv2, err := faber.sup.CreateInvitation(ctx, "")
		require.NoError(t, err)

		url1, _ := faber.sup.InvitationURL(inv1)
		url2, _ := faber.sup.InvitationURL(inv2)
		_, err = alice.sup.ReceiveInvitation(ctx, url1)
		require.NoError(t, err)
		req1 := lastRequest(t, alice)
		ac2, err := alice.sup.ReceiveInvitation(ctx, url2)
		require.NoError(t, err)

		_, err = faber.sup.HandleRequest(ctx, inv1.ConnectionID, req1)
		require.NoError(t, err)
		resp1 := lastResponse(t, faber)

		_, err = alice.sup.HandleResponse(ctx, ac2.ConnectionID, resp1)
		require.Error(t, err)
		require.True(t, errors.Is(err, exchange.ErrInvalidSignature))

		after, err := alice.sup.Get(ac2.ConnectionID)
		require.NoError(t, err)
		require.Equal(t, datastore.ConnectionRequested, after.State)
		require.Empty(t, after.TheirDID)
	})

	t.Run("tampered signature data", func(t *testing.T) {
		faber, alice, _ := setup()
		inv, err := faber.sup.CreateInvitation(ctx, "")
		require.NoError(t, err)
		url, _ := faber.sup.InvitationURL(inv)
		ac, err := alice.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)
		_, err = faber.sup.HandleRequest(ctx, inv.ConnectionID, lastRequest(t, alice))
		require.NoError(t, err)

		resp := lastResponse(t, faber)
		resp.ConnectionSig.SigData = resp.ConnectionSig.Signature

		_, err = alice.sup.HandleResponse(ctx, ac.ConnectionID, resp)
		require.True(t, errors.Is(err, exchange.ErrInvalidSignature))
	})

	t.Run("response before request", func(t *testing.T) {
		faber, alice, _ := setup()
		fc, ac := connect(t, faber, alice)
		require.Equal(t, datastore.ConnectionComplete, fc.State)

		resp := &message.ConnectionResponse{
			Header:        message.Reply(message.ConnectionResponseType, ac.ThreadID),
			ConnectionSig: &message.SignatureDecorator{Signature: "x", SigData: "y"},
		}
		_, err := alice.sup.HandleResponse(ctx, ac.ConnectionID, resp)
		require.True(t, errors.Is(err, exchange.ErrInvalidTransition))
	})
}

func TestReceiveInvitation(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed", func(t *testing.T) {
		_, alice, _ := setup()

		for _, s := range []string{
			"garbage",
			"https://faber.example.com?c_i=!!!",
			`{"@type":"https://didcomm.org/connections/1.0/invitation","@id":"1","recipientKeys":["abc"]}`,
			`{"@type":"https://didcomm.org/connections/1.0/invitation","@id":"1","recipientKeys":["abc"],"serviceEndpoint":"nowhere"}`,
		} {
			_, err := alice.sup.ReceiveInvitation(ctx, s)
			require.Error(t, err, s)
			require.True(t, errors.Is(err, exchange.ErrMalformedInvitation), s)
		}

		list, err := alice.sup.List(nil)
		require.NoError(t, err)
		require.Equal(t, 0, list.Count)
	})

	t.Run("unresolvable public DID", func(t *testing.T) {
		_, alice, _ := setup()

		_, err := alice.sup.ReceiveInvitation(ctx, `{"@type":"https://didcomm.org/connections/1.0/invitation","@id":"1","did":"did:sov:nobody"}`)
		require.True(t, errors.Is(err, exchange.ErrMalformedInvitation))
	})

	t.Run("public DID", func(t *testing.T) {
		faber, alice, l := setup()

		d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Cid: true, MethodName: "sov"})
		require.NoError(t, err)
		require.NoError(t, faber.ctx.DS.InsertKey(kp.Record()))
		require.NoError(t, l.WriteDID(ctx, &ledger.ServiceEndpoint{DID: d.String(), Verkey: kp.Verkey(), Endpoint: "mem://faber"}))

		inv, err := faber.sup.CreateInvitation(ctx, "", WithPublicDID(d.String()))
		require.NoError(t, err)
		require.Equal(t, kp.Verkey(), inv.InvitationKey)

		url, _ := faber.sup.InvitationURL(inv)
		ac, err := alice.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)
		require.Equal(t, "mem://faber", ac.TheirEndpoint)
		require.Equal(t, kp.Verkey(), ac.InvitationKey)

		_, err = faber.sup.HandleRequest(ctx, inv.ConnectionID, lastRequest(t, alice))
		require.NoError(t, err)
		ac, err = alice.sup.HandleResponse(ctx, ac.ConnectionID, lastResponse(t, faber))
		require.NoError(t, err)
		require.Equal(t, datastore.ConnectionComplete, ac.State)
	})

	t.Run("same invitation twice", func(t *testing.T) {
		faber, alice, _ := setup()
		inv, err := faber.sup.CreateInvitation(ctx, "")
		require.NoError(t, err)
		url, _ := faber.sup.InvitationURL(inv)

		first, err := alice.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)
		second, err := alice.sup.ReceiveInvitation(ctx, url)
		require.NoError(t, err)
		require.Equal(t, first.ConnectionID, second.ConnectionID)
		require.Len(t, alice.ctx.Outbox.Sent(), 1)
	})

	t.Run("request cannot be sent", func(t *testing.T) {
		faber, alice, _ := setup()
		inv, err := faber.sup.CreateInvitation(ctx, "")
		require.NoError(t, err)
		url, _ := faber.sup.InvitationURL(inv)

		alice.ctx.Outbox.Fail(errors.New("connection refused"))
		ac, err := alice.sup.ReceiveInvitation(ctx, url)
		require.Error(t, err)
		require.True(t, exchange.IsDependencyError(err))
		require.Equal(t, datastore.StateError, ac.State)
		require.False(t, ac.Retryable)
	})
}

func TestAbandonAndProblemReport(t *testing.T) {
	ctx := context.Background()
	faber, alice, _ := setup()

	inv, err := faber.sup.CreateInvitation(ctx, "")
	require.NoError(t, err)
	url, _ := faber.sup.InvitationURL(inv)
	ac, err := alice.sup.ReceiveInvitation(ctx, url)
	require.NoError(t, err)
	fc, err := faber.sup.HandleRequest(ctx, inv.ConnectionID, lastRequest(t, alice))
	require.NoError(t, err)

	ac, err = alice.sup.Abandon(ctx, ac.ConnectionID)
	require.NoError(t, err)
	require.Equal(t, datastore.StateError, ac.State)
	require.Equal(t, exchange.CodeUserCancelled, ac.ErrorCode)
	require.False(t, ac.Retryable)

	pr, ok := wire(t, alice.ctx.Outbox.Last()).(*message.ProblemReport)
	require.True(t, ok)
	require.Equal(t, message.CodeAbandoned, pr.Description.Code)

	fc, err = faber.sup.HandleProblemReport(ctx, fc.ConnectionID, pr)
	require.NoError(t, err)
	require.Equal(t, datastore.StateError, fc.State)
	require.Equal(t, exchange.CodeProblemReport, fc.ErrorCode)

	_, err = alice.sup.HandleResponse(ctx, ac.ConnectionID, lastResponse(t, faber))
	require.True(t, errors.Is(err, exchange.ErrInvalidTransition))

	_, err = alice.sup.Abandon(ctx, ac.ConnectionID)
	require.True(t, errors.Is(err, exchange.ErrInvalidTransition))
}

func TestArchiveAndDelete(t *testing.T) {
	ctx := context.Background()
	faber, alice, _ := setup()
	fc, _ := connect(t, faber, alice)

	err := faber.ctx.DS.InsertCredentialExchange(&datastore.CredentialExchange{
		ExchangeID:   "x1",
		ConnectionID: fc.ConnectionID,
		Role:         datastore.RoleIssuer,
	})
	require.NoError(t, err)

	err = faber.sup.Delete(ctx, fc.ConnectionID)
	require.True(t, errors.Is(err, datastore.ErrReferenced))

	archived, err := faber.sup.Archive(ctx, fc.ConnectionID)
	require.NoError(t, err)
	require.True(t, archived.Archived)

	list, err := faber.sup.List(nil)
	require.NoError(t, err)
	require.Equal(t, 0, list.Count)

	_, err = faber.ctx.DS.GetConnectionByTheirDID(fc.TheirDID)
	require.True(t, errors.Is(err, datastore.ErrNotFound))

	require.NoError(t, faber.ctx.DS.DeleteCredentialExchange("x1"))
	require.NoError(t, faber.sup.Delete(ctx, fc.ConnectionID))
	_, err = faber.sup.Get(fc.ConnectionID)
	require.True(t, errors.Is(err, datastore.ErrNotFound))
}
