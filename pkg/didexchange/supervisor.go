/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package didexchange runs the connection protocol: invitation, request, response and ack.
package didexchange

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/did"
	"github.com/scoir/credex/pkg/didcomm/message"
	"github.com/scoir/credex/pkg/didcomm/transport"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/notifier"
)

const (
	kind          = "connection"
	signatureType = "https://didcomm.org/signature/1.0/ed25519Sha512_single"
	didMethod     = "sov"
)

type Supervisor struct {
	store     datastore.Store
	ledger    ledger.Reader
	messenger transport.Messenger
	notifier  notifier.Notifier
	endpoint  string
	label     string
	timeouts  exchange.Timeouts
	inflight  *exchange.Inflight
	log       *zap.Logger
	now       func() time.Time
}

func New(ctx Provider) *Supervisor {
	return &Supervisor{
		store:     ctx.Store(),
		ledger:    ctx.Ledger(),
		messenger: ctx.Messenger(),
		notifier:  ctx.Notifier(),
		endpoint:  ctx.Endpoint(),
		label:     ctx.Label(),
		timeouts:  ctx.Timeouts(),
		inflight:  ctx.Inflight(),
		log:       ctx.Logger().Named("didexchange"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type invitationOpts struct {
	alias     string
	multiUse  bool
	publicDID string
}

type InvitationOption func(*invitationOpts)

func WithAlias(alias string) InvitationOption {
	return func(o *invitationOpts) {
		o.alias = alias
	}
}

// WithMultiUse lets any number of invitees connect with the same invitation.
func WithMultiUse() InvitationOption {
	return func(o *invitationOpts) {
		o.multiUse = true
	}
}

// WithPublicDID invites with a public DID that counterparties resolve on the ledger instead of
// inline keys and endpoint. Its key must be held by this agent.
func WithPublicDID(publicDID string) InvitationOption {
	return func(o *invitationOpts) {
		o.publicDID = publicDID
	}
}

// CreateInvitation starts a connection as inviter.
func (r *Supervisor) CreateInvitation(ctx context.Context, label string, opts ...InvitationOption) (*datastore.Connection, error) {
	o := &invitationOpts{}
	for _, opt := range opts {
		opt(o)
	}

	if label == "" {
		label = r.label
	}

	inv := &message.Invitation{
		Header: message.NewHeader(message.ConnectionInvitationType),
		Label:  label,
	}

	var myDID, verkey string
	if o.publicDID != "" {
		lctx, cancel := r.timeouts.LedgerContext(ctx)
		ep, err := r.ledger.ResolveDID(lctx, o.publicDID)
		cancel()
		if err != nil {
			return nil, exchange.Dependency(err, "unable to resolve public DID %s", o.publicDID)
		}

		_, err = r.store.GetKey(ep.Verkey)
		if err != nil {
			return nil, errors.Wrapf(err, "no key held for public DID %s", o.publicDID)
		}

		myDID, verkey = o.publicDID, ep.Verkey
		inv.DID = o.publicDID
	} else {
		d, kp, err := r.createDID()
		if err != nil {
			return nil, err
		}

		myDID, verkey = d.String(), kp.Verkey()
		inv.RecipientKeys = []string{verkey}
		inv.ServiceEndpoint = r.endpoint
	}

	raw, err := json.Marshal(inv)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal invitation")
	}

	now := r.now()
	conn := &datastore.Connection{
		ConnectionID:  uuid.New().String(),
		Role:          datastore.RoleInviter,
		Alias:         o.alias,
		MyDID:         myDID,
		MyVerkey:      verkey,
		InvitationID:  inv.ID,
		InvitationKey: verkey,
		Invitation:    raw,
		MultiUse:      o.multiUse,
		Status: datastore.Status{
			State:      datastore.ConnectionInvited,
			ThreadTime: now,
		},
	}

	err = r.store.InsertConnection(conn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save invitation")
	}

	r.log.Info("invitation created", zap.String("connectionID", conn.ConnectionID),
		zap.String("invitationID", inv.ID), zap.Bool("multiUse", o.multiUse))
	r.notify(conn)

	return conn, nil
}

// InvitationURL renders the invitation of conn for out of band delivery.
func (r *Supervisor) InvitationURL(conn *datastore.Connection) (string, error) {
	inv := &message.Invitation{}
	err := json.Unmarshal(conn.Invitation, inv)
	if err != nil {
		return "", errors.Wrap(err, "unable to read invitation")
	}

	return message.InvitationURL(r.endpoint, inv)
}

// ReceiveInvitation starts a connection as invitee from an invitation URL or JSON payload and sends
// the connection request.
func (r *Supervisor) ReceiveInvitation(ctx context.Context, invitation string, opts ...InvitationOption) (*datastore.Connection, error) {
	o := &invitationOpts{}
	for _, opt := range opts {
		opt(o)
	}

	inv, err := message.ParseInvitation(invitation)
	if err != nil {
		return nil, exchange.Protocol(exchange.ErrMalformedInvitation, "%v", err)
	}

	existing, err := r.store.GetConnectionByInvitation(inv.ID)
	if err == nil && existing.Role == datastore.RoleInvitee {
		return existing, nil
	} else if err != nil && !errors.Is(err, datastore.ErrNotFound) {
		return nil, errors.Wrap(err, "unable to look up invitation")
	}

	endpoint, key, err := r.resolveInvitation(ctx, inv)
	if err != nil {
		return nil, err
	}

	d, kp, err := r.createDID()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(inv)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal invitation")
	}

	req := &message.ConnectionRequest{
		Header: message.NewHeader(message.ConnectionRequestType),
		Label:  r.label,
		Connection: &message.ConnectionInfo{
			DID:      d.String(),
			Verkey:   kp.Verkey(),
			Endpoint: r.endpoint,
		},
	}
	req.Thread = &message.Thread{PThID: inv.ID}

	conn := &datastore.Connection{
		ConnectionID:  uuid.New().String(),
		Role:          datastore.RoleInvitee,
		Alias:         o.alias,
		MyDID:         d.String(),
		MyVerkey:      kp.Verkey(),
		TheirDID:      inv.DID,
		TheirLabel:    inv.Label,
		TheirEndpoint: endpoint,
		InvitationID:  inv.ID,
		InvitationKey: key,
		Invitation:    raw,
		ThreadID:      req.ID,
		Status: datastore.Status{
			State:      datastore.ConnectionRequested,
			ThreadTime: req.SentAt(),
		},
	}

	unlock, err := r.store.Lock(ctx, conn.ConnectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = r.store.InsertConnection(conn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save connection")
	}

	r.log.Info("invitation received", zap.String("connectionID", conn.ConnectionID),
		zap.String("invitationID", inv.ID), zap.String("threadID", conn.ThreadID))

	err = r.send(ctx, conn, req, "", "")
	r.notify(conn)
	return conn, err
}

func (r *Supervisor) resolveInvitation(ctx context.Context, inv *message.Invitation) (string, string, error) {
	endpoint := inv.ServiceEndpoint
	var key string
	if len(inv.RecipientKeys) > 0 {
		key = inv.RecipientKeys[0]
	}

	if inv.DID != "" {
		lctx, cancel := r.timeouts.LedgerContext(ctx)
		defer cancel()

		ep, err := r.ledger.ResolveDID(lctx, inv.DID)
		if err != nil {
			if errors.Is(err, ledger.ErrUnresolvableDID) || errors.Is(err, ledger.ErrNotFound) {
				return "", "", exchange.Protocol(exchange.ErrMalformedInvitation, "public DID %s is unresolvable: %v", inv.DID, err)
			}
			return "", "", exchange.Dependency(err, "unable to resolve invitation DID %s", inv.DID)
		}

		endpoint, key = ep.Endpoint, ep.Verkey
	}

	if key == "" {
		return "", "", exchange.Protocol(exchange.ErrMalformedInvitation, "invitation %s has no recipient key", inv.ID)
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" {
		return "", "", exchange.Protocol(exchange.ErrMalformedInvitation, "invitation %s has no usable service endpoint", inv.ID)
	}

	return endpoint, key, nil
}

// HandleRequest answers a connection request received on the invitation held by connectionID. A
// multi-use invitation stays open and the request continues on a new connection.
func (r *Supervisor) HandleRequest(ctx context.Context, connectionID string, req *message.ConnectionRequest) (*datastore.Connection, error) {
	inv, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load connection")
	}

	if inv.MultiUse && inv.Role == datastore.RoleInviter {
		unlock, err := r.store.Lock(ctx, inv.ConnectionID)
		if err != nil {
			return nil, err
		}

		existing, err := r.store.GetConnectionByThread(req.ID)
		switch {
		case err == nil:
			unlock()
			connectionID = existing.ConnectionID
		case errors.Is(err, datastore.ErrNotFound):
			defer unlock()
			return r.acceptMultiUse(ctx, inv, req)
		default:
			unlock()
			return nil, errors.Wrap(err, "unable to look up connection request")
		}
	}

	ctx, done := r.inflight.Begin(ctx, connectionID)
	defer done()

	unlock, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conn, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load connection")
	}

	if conn.Seen(req.ID) {
		return conn, nil
	}

	if conn.Role != datastore.RoleInviter || !conn.Ready(datastore.ConnectionInvited) {
		return nil, exchange.InvalidTransition(kind, conn.ConnectionID, conn.State)
	}

	return r.respond(ctx, conn, req, false)
}

func (r *Supervisor) acceptMultiUse(ctx context.Context, inv *datastore.Connection, req *message.ConnectionRequest) (*datastore.Connection, error) {
	conn := &datastore.Connection{
		ConnectionID:  uuid.New().String(),
		Role:          datastore.RoleInviter,
		Alias:         inv.Alias,
		InvitationKey: inv.InvitationKey,
		Invitation:    inv.Invitation,
		Status: datastore.Status{
			State: datastore.ConnectionInvited,
		},
	}

	unlock, err := r.store.Lock(ctx, conn.ConnectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.respond(ctx, conn, req, true)
}

type signedConnection struct {
	ThreadID string                  `json:"thid"`
	Conn     *message.ConnectionInfo `json:"connection"`
}

func (r *Supervisor) respond(ctx context.Context, conn *datastore.Connection, req *message.ConnectionRequest, insert bool) (*datastore.Connection, error) {
	key, err := r.store.GetKey(conn.InvitationKey)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load invitation key for connection %s", conn.ConnectionID)
	}

	d, kp, err := r.createDID()
	if err != nil {
		return nil, err
	}

	sigData, err := json.Marshal(&signedConnection{
		ThreadID: req.ID,
		Conn: &message.ConnectionInfo{
			DID:      d.String(),
			Verkey:   kp.Verkey(),
			Endpoint: r.endpoint,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal connection signature data")
	}

	sig, err := did.FromRecord(key).Sign(sigData)
	if err != nil {
		return nil, errors.Wrap(err, "unable to sign connection response")
	}

	prev := conn.Effective()
	conn.MyDID = d.String()
	conn.MyVerkey = kp.Verkey()
	conn.TheirDID = req.Connection.DID
	conn.TheirVerkey = req.Connection.Verkey
	conn.TheirLabel = req.Label
	conn.TheirEndpoint = req.Connection.Endpoint
	conn.ThreadID = req.ID
	conn.ThreadTime = req.SentAt()
	conn.Record(req.ID)
	conn.Transition(datastore.ConnectionResponded, r.now())

	if insert {
		err = r.store.InsertConnection(conn)
	} else {
		err = r.store.UpdateConnection(conn)
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to save connection")
	}

	r.log.Info("connection request accepted", zap.String("connectionID", conn.ConnectionID),
		zap.String("threadID", conn.ThreadID), zap.String("theirDID", conn.TheirDID))

	resp := &message.ConnectionResponse{
		Header: message.Reply(message.ConnectionResponseType, req.ID),
		ConnectionSig: &message.SignatureDecorator{
			Type:      signatureType,
			Signature: base64.URLEncoding.EncodeToString(sig),
			SigData:   base64.URLEncoding.EncodeToString(sigData),
			Signer:    conn.InvitationKey,
		},
	}

	err = r.send(ctx, conn, resp, prev, req.ID)
	r.notify(conn)
	return conn, err
}

// HandleResponse completes the invitee side once the response is verified against the invitation key.
func (r *Supervisor) HandleResponse(ctx context.Context, connectionID string, resp *message.ConnectionResponse) (*datastore.Connection, error) {
	ctx, done := r.inflight.Begin(ctx, connectionID)
	defer done()

	unlock, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conn, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load connection")
	}

	if conn.Seen(resp.ID) {
		return conn, nil
	}

	if conn.Role != datastore.RoleInvitee || !conn.Ready(datastore.ConnectionRequested) {
		return nil, exchange.InvalidTransition(kind, conn.ConnectionID, conn.State)
	}

	signed, err := verifyResponse(conn, resp)
	if err != nil {
		return nil, err
	}

	conn.TheirDID = signed.Conn.DID
	conn.TheirVerkey = signed.Conn.Verkey
	if signed.Conn.Endpoint != "" {
		conn.TheirEndpoint = signed.Conn.Endpoint
	}
	conn.ThreadTime = resp.SentAt()
	conn.Record(resp.ID)
	conn.Transition(datastore.ConnectionComplete, r.now())

	err = r.store.UpdateConnection(conn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save connection")
	}

	r.log.Info("connection complete", zap.String("connectionID", conn.ConnectionID),
		zap.String("theirDID", conn.TheirDID))
	r.notify(conn)

	ack := &message.Ack{
		Header: message.Reply(message.ConnectionAckType, conn.ThreadID),
		Status: "OK",
	}
	err = r.messenger.Send(ctx, conn, ack)
	if err != nil {
		r.log.Warn("unable to acknowledge connection response", zap.String("connectionID", conn.ConnectionID), zap.Error(err))
	}

	return conn, nil
}

func verifyResponse(conn *datastore.Connection, resp *message.ConnectionResponse) (*signedConnection, error) {
	sd := resp.ConnectionSig
	if sd.Signer != conn.InvitationKey {
		return nil, exchange.Protocol(exchange.ErrInvalidSignature, "response signed by %s, not the invitation key", sd.Signer)
	}

	data, err := decode64(sd.SigData)
	if err != nil {
		return nil, exchange.Protocol(exchange.ErrInvalidSignature, "invalid sig_data: %v", err)
	}

	sig, err := decode64(sd.Signature)
	if err != nil {
		return nil, exchange.Protocol(exchange.ErrInvalidSignature, "invalid signature encoding: %v", err)
	}

	err = did.Verify(conn.InvitationKey, data, sig)
	if err != nil {
		return nil, exchange.Protocol(exchange.ErrInvalidSignature, "%v", err)
	}

	signed := &signedConnection{}
	err = json.Unmarshal(data, signed)
	if err != nil || signed.Conn == nil || signed.Conn.DID == "" {
		return nil, exchange.Protocol(exchange.ErrInvalidSignature, "signed connection is malformed")
	}

	if signed.ThreadID != conn.ThreadID || resp.ThreadID() != conn.ThreadID {
		return nil, exchange.Protocol(exchange.ErrInvalidSignature, "response was signed for thread %s, not %s", signed.ThreadID, conn.ThreadID)
	}

	return signed, nil
}

func decode64(s string) ([]byte, error) {
	d, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return base64.RawURLEncoding.DecodeString(s)
	}
	return d, nil
}

// HandleAck completes the inviter side.
func (r *Supervisor) HandleAck(ctx context.Context, connectionID string, ack *message.Ack) (*datastore.Connection, error) {
	unlock, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conn, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load connection")
	}

	if conn.Seen(ack.ID) || conn.State == datastore.ConnectionComplete {
		return conn, nil
	}

	if conn.Role != datastore.RoleInviter || !conn.Ready(datastore.ConnectionResponded) {
		return nil, exchange.InvalidTransition(kind, conn.ConnectionID, conn.State)
	}

	conn.Record(ack.ID)
	conn.Transition(datastore.ConnectionComplete, r.now())

	err = r.store.UpdateConnection(conn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save connection")
	}

	r.log.Info("connection complete", zap.String("connectionID", conn.ConnectionID),
		zap.String("theirDID", conn.TheirDID))
	r.notify(conn)

	return conn, nil
}

// HandleProblemReport moves a connection the counterparty gave up on to error.
func (r *Supervisor) HandleProblemReport(ctx context.Context, connectionID string, pr *message.ProblemReport) (*datastore.Connection, error) {
	unlock, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conn, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load connection")
	}

	if conn.Seen(pr.ID) {
		return conn, nil
	}

	if conn.Terminal(datastore.ConnectionComplete) {
		return nil, exchange.InvalidTransition(kind, conn.ConnectionID, conn.State)
	}

	conn.Record(pr.ID)
	conn.Fail(exchange.CodeProblemReport, problem(pr), false, r.now())

	err = r.store.UpdateConnection(conn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save connection")
	}

	r.log.Info("connection rejected by counterparty", zap.String("connectionID", conn.ConnectionID),
		zap.String("code", pr.Description.Code))
	r.notify(conn)

	return conn, nil
}

func problem(pr *message.ProblemReport) string {
	if pr.Description.En == "" {
		return pr.Description.Code
	}
	return pr.Description.Code + ": " + pr.Description.En
}

// Abandon interrupts any step running against the connection and moves it to error. The
// counterparty is told when it can be reached.
func (r *Supervisor) Abandon(ctx context.Context, connectionID string) (*datastore.Connection, error) {
	r.inflight.Cancel(connectionID)

	unlock, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conn, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load connection")
	}

	if conn.Terminal(datastore.ConnectionComplete) {
		return nil, exchange.InvalidTransition(kind, conn.ConnectionID, conn.State)
	}

	conn.Fail(exchange.CodeUserCancelled, exchange.ErrUserCancelled.Error(), false, r.now())
	err = r.store.UpdateConnection(conn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save connection")
	}

	r.log.Info("connection abandoned", zap.String("connectionID", conn.ConnectionID))
	r.notify(conn)

	if conn.ThreadID != "" && (conn.TheirEndpoint != "" || conn.TheirDID != "") {
		pr := &message.ProblemReport{
			Header:      message.Reply(message.ConnectionProblemReportType, conn.ThreadID),
			Description: message.Description{Code: message.CodeAbandoned},
		}
		if err := r.messenger.Send(ctx, conn, pr); err != nil {
			r.log.Debug("unable to report abandoned connection", zap.String("connectionID", conn.ConnectionID), zap.Error(err))
		}
	}

	return conn, nil
}

func (r *Supervisor) Get(connectionID string) (*datastore.Connection, error) {
	return r.store.GetConnection(connectionID)
}

func (r *Supervisor) List(c *datastore.ConnectionCriteria) (*datastore.ConnectionList, error) {
	return r.store.ListConnections(c)
}

// Archive hides a connection from default listings and from sender lookups.
func (r *Supervisor) Archive(ctx context.Context, connectionID string) (*datastore.Connection, error) {
	unlock, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conn, err := r.store.GetConnection(connectionID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load connection")
	}

	if conn.Archived {
		return conn, nil
	}

	conn.Archived = true
	conn.UpdatedAt = r.now()
	err = r.store.UpdateConnection(conn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to archive connection")
	}

	return conn, nil
}

// Delete removes a connection. A connection referenced by an exchange is refused with
// datastore.ErrReferenced; archive it instead.
func (r *Supervisor) Delete(ctx context.Context, connectionID string) error {
	unlock, err := r.store.Lock(ctx, connectionID)
	if err != nil {
		return err
	}
	defer unlock()

	return r.store.DeleteConnection(connectionID)
}

// send delivers msg for a step that moved conn out of prev. A failed delivery is recorded on conn.
func (r *Supervisor) send(ctx context.Context, conn *datastore.Connection, msg message.Message, prev, msgID string) error {
	err := r.messenger.Send(ctx, conn, msg)
	if err == nil {
		return nil
	}

	err = exchange.Dependency(err, "unable to send %s", msg.Hdr().Type)
	r.log.Warn("delivery failed", zap.String("connectionID", conn.ConnectionID), zap.Error(err))

	exchange.Undelivered(&conn.Status, prev, msgID, err, r.now())
	if uerr := r.store.UpdateConnection(conn); uerr != nil {
		r.log.Error("unable to record delivery failure", zap.String("connectionID", conn.ConnectionID), zap.Error(uerr))
	}

	return err
}

func (r *Supervisor) createDID() (*did.DID, *did.KeyPair, error) {
	d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Cid: true, MethodName: didMethod})
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to create DID")
	}

	err = r.store.InsertKey(kp.Record())
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to save key")
	}

	return d, kp, nil
}

func (r *Supervisor) notify(conn *datastore.Connection) {
	err := r.notifier.Notify(notifier.TopicConnections, conn.State, conn)
	if err != nil {
		r.log.Warn("unable to publish connection notification", zap.String("connectionID", conn.ConnectionID), zap.Error(err))
	}
}
