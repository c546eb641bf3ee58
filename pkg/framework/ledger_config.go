/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/ledger/gateway"
	lmem "github.com/scoir/credex/pkg/ledger/mem"
)

// LedgerConfig selects the ledger. "mem" keeps an in-process ledger, usable only when every agent
// runs in the same process; "gateway" talks to a REST ledger gateway at URL.
type LedgerConfig struct {
	Type      string        `mapstructure:"type"`
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"`
	CacheSize int           `mapstructure:"cacheSize"`
	CacheTTL  time.Duration `mapstructure:"cacheTTL"`
}

// Client returns the configured ledger with schema and credential definition reads cached.
func (r *LedgerConfig) Client() (ledger.Client, error) {
	var lc ledger.Client

	switch r.Type {
	case "mem":
		lc = lmem.New()
	case "gateway":
		if r.URL == "" {
			return nil, errors.New("ledger gateway url is required")
		}
		lc = gateway.New(r.URL, gateway.WithToken(r.Token))
	default:
		return nil, errors.New("no ledger configuration was provided")
	}

	return ledger.NewCachingClient(lc, r.CacheSize, r.CacheTTL), nil
}
