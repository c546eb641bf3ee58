/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"time"

	"github.com/scoir/credex/pkg/didcomm/dispatcher"
)

const (
	DefaultInboundQueue      = "credex-inbound"
	DefaultNotificationQueue = "credex-notifications"
)

// AgentConfig describes this agent to its counterparties.
type AgentConfig struct {
	Name  string `mapstructure:"name"`
	Label string `mapstructure:"label"`
	// Seed fixes the public DID. Without one a DID is generated on first start and kept in the store.
	Seed string `mapstructure:"seed"`
	// Endpoint is advertised in invitations and on the ledger. It may be http(s):// (the /inbound
	// route of the API) or amqp:// (InboundQueue on the broker).
	Endpoint          string          `mapstructure:"endpoint"`
	InboundQueue      string          `mapstructure:"inboundQueue"`
	NotificationQueue string          `mapstructure:"notificationQueue"`
	Auto              dispatcher.Auto `mapstructure:"auto"`
}

// WithDefaults fills unset queue names.
func (r AgentConfig) WithDefaults() AgentConfig {
	if r.InboundQueue == "" {
		r.InboundQueue = DefaultInboundQueue
	}
	if r.NotificationQueue == "" {
		r.NotificationQueue = DefaultNotificationQueue
	}
	if r.Label == "" {
		r.Label = r.Name
	}

	return r
}

type RevocationCacheConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}
