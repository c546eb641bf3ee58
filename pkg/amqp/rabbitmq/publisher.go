/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rabbitmq

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	credexamqp "github.com/scoir/credex/pkg/amqp"
)

type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(addr, queue string) (*Publisher, error) {
	conn, ch, err := dial(addr, queue)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		conn:  conn,
		ch:    ch,
		queue: queue,
	}, nil
}

// Factory adapts NewPublisher to amqp.PublisherFactory.
func Factory(addr, queue string) (credexamqp.Publisher, error) {
	p, err := NewPublisher(addr, queue)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Publisher) Publish(body []byte, contentType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.ch.Publish(
		"",      // exchange
		r.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})

	return errors.Wrap(err, "rabbitMQ publish failed")
}

func (r *Publisher) Close() error {
	return r.conn.Close()
}
