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

	"github.com/scoir/credex/pkg/agent"
	"github.com/scoir/credex/pkg/apiserver"
	"github.com/scoir/credex/pkg/controller"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the agent",
	Long:  `Starts the agent with its admin API and inbound endpoint`,
	RunE:  runStart,
}

func runStart(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := agent.FromConfig(ctx, conf, logger)
	if err != nil {
		return errors.Wrap(err, "error initializing agent")
	}

	ep, err := conf.Endpoint("api")
	if err != nil {
		return err
	}

	api := apiserver.New(a, apiserver.WithToken(ep.Token), apiserver.WithLogger(logger))

	runner, err := controller.New(ep, api.Handler(), controller.WithTask(a.Start), controller.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "unable to start agent")
	}

	logger.Info("agent started", zap.String("name", a.Name()), zap.String("did", a.PublicDID()),
		zap.String("endpoint", a.Endpoint()), zap.String("api", ep.Address()))

	err = runner.Launch(ctx)
	api.Wait()
	if err != nil {
		return errors.Wrap(err, "launch errored")
	}

	logger.Info("shutdown")
	return nil
}

func init() {
	rootCmd.AddCommand(startCmd)
}
