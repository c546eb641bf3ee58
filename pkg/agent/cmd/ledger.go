/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/controller"
	"github.com/scoir/credex/pkg/ledger/gateway"
	lmem "github.com/scoir/credex/pkg/ledger/mem"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Serves an in-memory ledger gateway",
	Long: `Serves an in-memory ledger over the gateway protocol so agents in separate
processes can share schemas, credential definitions and revocation registries.
Nothing is persisted.`,
	PersistentPreRunE: initBaseConfig,
	RunE:              runLedger,
}

func runLedger(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ep, err := conf.Endpoint("gateway")
	if err != nil {
		return err
	}

	srv := gateway.NewServer(lmem.New(), ep.Token)
	runner, err := controller.New(ep, controller.Logger(logger)(srv.Handler()), controller.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "unable to start ledger gateway")
	}

	logger.Info("ledger gateway started", zap.String("address", ep.Address()))

	return runner.Launch(ctx)
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
}
