/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mock

import (
	"context"
	"sync"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didcomm/message"
)

type Sent struct {
	Conn *datastore.Connection
	Msg  message.Message
}

// Messenger records outbound messages instead of delivering them.
type Messenger struct {
	mu   sync.Mutex
	sent []Sent
	err  error
}

func (r *Messenger) Send(_ context.Context, conn *datastore.Connection, msg message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	c := *conn
	r.sent = append(r.sent, Sent{Conn: &c, Msg: msg})
	return nil
}

// Fail makes every following Send return err. A nil err restores delivery.
func (r *Messenger) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Messenger) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent{}, r.sent...)
}

// Last is the most recently sent message, or nil.
func (r *Messenger) Last() message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sent) == 0 {
		return nil
	}
	return r.sent[len(r.sent)-1].Msg
}

func (r *Messenger) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
