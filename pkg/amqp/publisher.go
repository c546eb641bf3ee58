/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package amqp

//go:generate mockery -name=Publisher
type Publisher interface {
	Publish(body []byte, contentType string) error
	Close() error
}

// PublisherFactory opens a publisher for queue on the broker at addr.
type PublisherFactory func(addr, queue string) (Publisher, error)
