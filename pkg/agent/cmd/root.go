/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/config"
	"github.com/scoir/credex/pkg/util"
)

var (
	cfgFile        string
	datastoreFile  string
	ledgerFile     string
	amqpFile       string
	conf           config.Config
	logger         *zap.Logger
	configProvider config.Provider
)

var rootCmd = &cobra.Command{
	Use:   "credex",
	Short: "The credex credential exchange agent.",
	Long: `"The credex credential exchange agent.".

 Connects with peers over DIDComm, issues and holds anonymous credentials and
 requests and verifies presentations of them.`,
	PersistentPreRunE: initConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	configProvider = &config.ViperConfigProvider{
		DefaultConfigName: "credex-config",
		Flags:             rootCmd.PersistentFlags(),
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/credex/credex-config.yaml)")
	rootCmd.PersistentFlags().StringVar(&datastoreFile, "datastore-config", "", "datastore config file (default is /etc/credex/credex-data-store-config.yaml)")
	rootCmd.PersistentFlags().StringVar(&ledgerFile, "ledger-config", "", "ledger config file (default is /etc/credex/credex-ledger-config.yaml)")
	rootCmd.PersistentFlags().StringVar(&amqpFile, "amqp-config", "", "broker config file, omit to run without a broker")
}

// initConfig reads in config files and ENV variables if set.
func initConfig(cmd *cobra.Command, args []string) error {
	err := initBaseConfig(cmd, args)
	if err != nil {
		return err
	}

	conf, err = conf.WithDatastore(fileOption(datastoreFile)...)
	if err != nil {
		return err
	}

	conf, err = conf.WithLedger(fileOption(ledgerFile)...)
	if err != nil {
		return err
	}

	if amqpFile != "" {
		conf, err = conf.WithAMQP(config.WithFile(amqpFile))
		if err != nil {
			return err
		}
	}

	return nil
}

// initBaseConfig loads the main config file and the logger only.
func initBaseConfig(_ *cobra.Command, _ []string) error {
	var err error
	conf, err = configProvider.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err = util.NewLogger(conf.LogLevel())
	if err != nil {
		return err
	}
	util.SetRetryLogger(logger)

	return nil
}

func fileOption(file string) []config.Option {
	if file == "" {
		return nil
	}

	return []config.Option{config.WithFile(file)}
}
