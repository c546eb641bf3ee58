/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/framework"
)

// Provider loads a Config.
type Provider interface {
	Load(file string) (Config, error)
}

// Config is the agent's view of its configuration files, environment and flags.
type Config interface {
	WithAMQP(opts ...Option) (Config, error)
	AMQPAddress() string
	AMQPConfig() (*framework.AMQPConfig, error)

	WithDatastore(opts ...Option) (Config, error)
	DataStore() (*framework.DatastoreConfig, error)

	WithLedger(opts ...Option) (Config, error)
	LedgerConfig() (*framework.LedgerConfig, error)

	Endpoint(key string) (*framework.Endpoint, error)
	Agent() (*framework.AgentConfig, error)
	Timeouts() exchange.Timeouts
	RevocationCache() (*framework.RevocationCacheConfig, error)
	Webhooks() ([]*datastore.Webhook, error)
	LogLevel() string

	GetString(s string) string
	GetInt(s string) int
}
