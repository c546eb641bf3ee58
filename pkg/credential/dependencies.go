/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/crypto"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/transport"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/notifier"
	"github.com/scoir/credex/pkg/revocation"
)

//go:generate mockery -inpkg -name=Provider
type Provider interface {
	Store() datastore.Store
	Ledger() ledger.Client
	Crypto() crypto.Engine
	Revocations() *revocation.Cache
	Messenger() transport.Messenger
	Notifier() notifier.Notifier
	// PublicDID is the DID schemas and credential definitions are published under.
	PublicDID() string
	Logger() *zap.Logger
	Timeouts() exchange.Timeouts
	Inflight() *exchange.Inflight
}
