/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"sync"
)

// Inflight tracks the cancel functions of steps running against each exchange id so an abandon
// can interrupt them.
type Inflight struct {
	mu    sync.Mutex
	seq   uint64
	steps map[string]map[uint64]context.CancelFunc
}

func NewInflight() *Inflight {
	return &Inflight{
		steps: map[string]map[uint64]context.CancelFunc{},
	}
}

// Begin derives a cancellable context for a step on id. The returned func must be called when the
// step is finished.
func (r *Inflight) Begin(ctx context.Context, id string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.seq++
	seq := r.seq
	if r.steps[id] == nil {
		r.steps[id] = map[uint64]context.CancelFunc{}
	}
	r.steps[id][seq] = cancel
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		delete(r.steps[id], seq)
		if len(r.steps[id]) == 0 {
			delete(r.steps, id)
		}
		r.mu.Unlock()
		cancel()
	}
}

// Cancel interrupts every step running against id and returns how many were interrupted.
func (r *Inflight) Cancel(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps := r.steps[id]
	for _, cancel := range steps {
		cancel()
	}

	return len(steps)
}
