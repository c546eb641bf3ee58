/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notifier

import (
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scoir/credex/pkg/amqp"
)

// Notifier announces record state changes.
//go:generate mockery -name=Notifier
type Notifier interface {
	Notify(topic, event string, data interface{}) error
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(string, string, interface{}) error {
	return nil
}

// Publisher queues notifications on the notification queue for a Server to relay.
type Publisher struct {
	pub amqp.Publisher
	log *zap.Logger
}

func NewPublisher(pub amqp.Publisher, l *zap.Logger) *Publisher {
	if l == nil {
		l = zap.NewNop()
	}

	return &Publisher{pub: pub, log: l.Named("notifier")}
}

func (r *Publisher) Notify(topic, event string, data interface{}) error {
	d, err := json.Marshal(&Notification{
		Topic:     topic,
		Event:     event,
		EventData: data,
	})
	if err != nil {
		return errors.Wrap(err, "unable to marshal notification")
	}

	err = r.pub.Publish(d, "application/json")
	if err != nil {
		r.log.Warn("unable to publish notification", zap.String("topic", topic), zap.String("event", event), zap.Error(err))
		return errors.Wrap(err, "unable to publish notification")
	}

	return nil
}
