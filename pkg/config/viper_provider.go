/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/framework"
)

const (
	defaultAMQP      = "credex-amqp-config"
	defaultDataStore = "credex-data-store-config"
	defaultLedger    = "credex-ledger-config"
)

// Option configures the config...
type Option func(opts *vpr)

// WithFile merges file instead of the default file for a section.
func WithFile(file string) Option {
	return func(opts *vpr) {
		opts.file = file
	}
}

type ViperConfigProvider struct {
	DefaultConfigName string
	// Flags are bound as overrides. pflag.CommandLine is used when nil.
	Flags *pflag.FlagSet
}

type vpr struct {
	*viper.Viper
	file string
}

func (r *ViperConfigProvider) Load(file string) (Config, error) {
	config := &vpr{Viper: viper.New()}

	if file != "" {
		config.SetConfigFile(file)
	} else {
		config.SetConfigType("yaml")
		config.AddConfigPath("/etc/credex/")
		config.AddConfigPath("./deploy/")
		config.SetConfigName(r.DefaultConfigName)
	}

	config.SetEnvPrefix("CREDEX")
	config.AutomaticEnv()

	flags := r.Flags
	if flags == nil {
		flags = pflag.CommandLine
	}

	err := config.BindPFlags(flags)
	if err != nil {
		return nil, errors.Wrap(err, "failed to bind flags")
	}

	err = config.ReadInConfig()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", config.ConfigFileUsed())
	}

	return config, nil
}

func (r *vpr) WithDatastore(opts ...Option) (Config, error) {
	return r.with(defaultDataStore, opts)
}

func (r *vpr) WithLedger(opts ...Option) (Config, error) {
	return r.with(defaultLedger, opts)
}

func (r *vpr) WithAMQP(opts ...Option) (Config, error) {
	return r.with(defaultAMQP, opts)
}

func (r *vpr) with(defawlt string, opts []Option) (Config, error) {
	r.file = ""
	for _, opt := range opts {
		opt(r)
	}

	if r.file != "" {
		return r.withFile(r.SetConfigFile, r.file)
	}

	return r.withFile(r.SetConfigName, defawlt)
}

func (r *vpr) withFile(setter func(name string), file string) (Config, error) {
	setter(file)

	err := r.MergeInConfig()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to merge %s", r.ConfigFileUsed())
	}

	return r, nil
}

func (r *vpr) AMQPAddress() string {
	amqpUser := r.GetString("amqp.user")
	amqpPwd := r.GetString("amqp.password")
	amqpHost := r.GetString("amqp.host")
	amqpPort := r.GetInt("amqp.port")
	amqpVHost := r.GetString("amqp.vhost")

	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", amqpUser, amqpPwd, amqpHost, amqpPort, amqpVHost)
}

func (r *vpr) AMQPConfig() (*framework.AMQPConfig, error) {
	config := &framework.AMQPConfig{}

	err := r.UnmarshalKey("amqp", config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (r *vpr) DataStore() (*framework.DatastoreConfig, error) {
	dc := &framework.DatastoreConfig{}

	err := r.UnmarshalKey("datastore", dc)
	if err != nil {
		return nil, err
	}

	return dc, nil
}

func (r *vpr) LedgerConfig() (*framework.LedgerConfig, error) {
	lc := &framework.LedgerConfig{}

	err := r.UnmarshalKey("ledger", lc)
	if err != nil {
		return nil, err
	}

	return lc, nil
}

func (r *vpr) Agent() (*framework.AgentConfig, error) {
	ac := &framework.AgentConfig{}

	err := r.UnmarshalKey("agent", ac)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load agent")
	}

	if ac.Name == "" {
		return nil, errors.New("agent.name is required")
	}

	out := ac.WithDefaults()
	return &out, nil
}

// Timeouts falls back to the defaults for anything not configured.
func (r *vpr) Timeouts() exchange.Timeouts {
	t := exchange.Timeouts{
		Ledger: r.GetDuration("timeouts.ledger"),
		Crypto: r.GetDuration("timeouts.crypto"),
	}

	return t.WithDefaults()
}

func (r *vpr) RevocationCache() (*framework.RevocationCacheConfig, error) {
	rc := &framework.RevocationCacheConfig{}

	err := r.UnmarshalKey("revocationCache", rc)
	if err != nil {
		return nil, err
	}

	return rc, nil
}

// Webhooks are the endpoints notifications are relayed to, by topic.
func (r *vpr) Webhooks() ([]*datastore.Webhook, error) {
	var hooks []*datastore.Webhook

	err := r.UnmarshalKey("webhooks", &hooks)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load webhooks")
	}

	for _, h := range hooks {
		if h.Type == "" || h.URL == "" {
			return nil, errors.New("webhooks need a type and a url")
		}
	}

	return hooks, nil
}

func (r *vpr) LogLevel() string {
	return r.GetString("logLevel")
}

// GetString uses Get because recursion
func (r *vpr) GetString(s string) string {
	ret, _ := r.Get(s).(string)

	return ret
}

// GetString uses Get because same recursion
func (r *vpr) GetInt(s string) int {
	ret, _ := r.Get(s).(int)

	return ret
}

func (r *vpr) Endpoint(key string) (*framework.Endpoint, error) {
	ep := &framework.Endpoint{}

	err := r.UnmarshalKey(key, ep)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load key "+key)
	}

	return ep, nil
}
