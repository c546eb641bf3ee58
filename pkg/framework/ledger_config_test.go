/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package framework

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/ledger"
)

func TestLedgerConfig(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		lc := &LedgerConfig{}

		l, err := lc.Client()
		require.Error(t, err)
		require.Contains(t, err.Error(), "no ledger configuration was provided")
		require.Nil(t, l)
	})

	t.Run("gateway needs a url", func(t *testing.T) {
		lc := &LedgerConfig{Type: "gateway"}

		_, err := lc.Client()
		require.Error(t, err)
	})

	t.Run("cached", func(t *testing.T) {
		for _, lc := range []*LedgerConfig{{Type: "mem"}, {Type: "gateway", URL: "http://localhost:9000"}} {
			l, err := lc.Client()
			require.NoError(t, err)
			require.IsType(t, &ledger.CachingClient{}, l)
		}
	})
}
