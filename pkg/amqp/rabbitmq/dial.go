/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rabbitmq

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/scoir/credex/pkg/util"
)

// DialTimeout bounds how long a broker connection is retried before giving up.
var DialTimeout = 10 * time.Second

func dial(addr, queue string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = DialTimeout
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = amqp.Dial(addr)
		return err
	}, bo, util.Logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to connect to RabbitMQ at %s", addr)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "unable to create an AMQP channel")
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "unable to declare AMQP queue")
	}

	return conn, ch, nil
}
