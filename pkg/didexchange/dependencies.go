/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package didexchange

import (
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/transport"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/notifier"
)

//go:generate mockery -inpkg -name=Provider
type Provider interface {
	Store() datastore.Store
	Ledger() ledger.Client
	Messenger() transport.Messenger
	Notifier() notifier.Notifier
	// Endpoint is where counterparties reach this agent.
	Endpoint() string
	Label() string
	Logger() *zap.Logger
	Timeouts() exchange.Timeouts
	Inflight() *exchange.Inflight
}
