/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mock

import (
	"context"

	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/crypto/commitment"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/datastore/mem"
	"github.com/scoir/credex/pkg/did"
	"github.com/scoir/credex/pkg/didcomm/transport"
	transportmem "github.com/scoir/credex/pkg/didcomm/transport/mem"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/notifier"
	"github.com/scoir/credex/pkg/revocation"
)

// Context satisfies the Provider interfaces of the protocol supervisors with in-memory parts.
// Outbound messages are recorded by Outbox unless Msgr is set.
type Context struct {
	Name   string
	DS     datastore.Store
	LC     ledger.Client
	Outbox *Messenger
	Msgr   transport.Messenger
	Notes  notifier.Notifier
	Engine crypto.Engine
	Cache  *revocation.Cache
	URL    string
	Log    *zap.Logger
	Limits exchange.Timeouts
	Steps  *exchange.Inflight
	DID    string
}

// NewContext builds the context of an agent named name. Its public DID is written to lc, reachable at
// mem://name.
func NewContext(name string, lc ledger.Client) *Context {
	ds, _ := mem.NewProvider().OpenStore(name)

	d, kp, _ := did.CreateMyDid(&did.MyDIDInfo{Cid: true, MethodName: "sov"})
	_ = ds.InsertKey(kp.Record())
	_ = lc.WriteDID(context.Background(), &ledger.ServiceEndpoint{
		DID:      d.String(),
		Verkey:   kp.Verkey(),
		Endpoint: transportmem.Endpoint(name),
	})

	return &Context{
		Name:   name,
		DS:     ds,
		LC:     lc,
		Outbox: &Messenger{},
		Notes:  notifier.Nop{},
		Engine: commitment.New(ds, lc),
		Cache:  revocation.New(lc),
		URL:    transportmem.Endpoint(name),
		Log:    zap.NewNop(),
		Limits: exchange.DefaultTimeouts(),
		Steps:  exchange.NewInflight(),
		DID:    d.String(),
	}
}

func (r *Context) Store() datastore.Store {
	return r.DS
}

func (r *Context) Ledger() ledger.Client {
	return r.LC
}

func (r *Context) Messenger() transport.Messenger {
	if r.Msgr != nil {
		return r.Msgr
	}
	return r.Outbox
}

func (r *Context) Notifier() notifier.Notifier {
	return r.Notes
}

func (r *Context) Crypto() crypto.Engine {
	return r.Engine
}

func (r *Context) Revocations() *revocation.Cache {
	return r.Cache
}

func (r *Context) PublicDID() string {
	return r.DID
}

func (r *Context) Endpoint() string {
	return r.URL
}

func (r *Context) Label() string {
	return r.Name
}

func (r *Context) Logger() *zap.Logger {
	return r.Log
}

func (r *Context) Timeouts() exchange.Timeouts {
	return r.Limits
}

func (r *Context) Inflight() *exchange.Inflight {
	return r.Steps
}
