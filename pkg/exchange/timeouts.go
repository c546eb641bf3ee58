/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"time"
)

const (
	DefaultLedgerTimeout = 10 * time.Second
	DefaultCryptoTimeout = 5 * time.Second
)

// Timeouts bound every call into the ledger and crypto engine.
type Timeouts struct {
	Ledger time.Duration `mapstructure:"ledger"`
	Crypto time.Duration `mapstructure:"crypto"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Ledger: DefaultLedgerTimeout,
		Crypto: DefaultCryptoTimeout,
	}
}

// WithDefaults fills unset values.
func (r Timeouts) WithDefaults() Timeouts {
	if r.Ledger <= 0 {
		r.Ledger = DefaultLedgerTimeout
	}
	if r.Crypto <= 0 {
		r.Crypto = DefaultCryptoTimeout
	}

	return r
}

func (r Timeouts) LedgerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.WithDefaults().Ledger)
}

func (r Timeouts) CryptoContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.WithDefaults().Crypto)
}
