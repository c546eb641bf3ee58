/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package datastore

import (
	"time"
)

// Status is the bookkeeping every exchange record carries.
type Status struct {
	State       string    `json:"state" bson:"state"`
	Error       string    `json:"error,omitempty" bson:"error"`
	ErrorCode   string    `json:"error_code,omitempty" bson:"error_code"`
	Retryable   bool      `json:"retryable,omitempty" bson:"retryable"`
	ResumeState string    `json:"resume_state,omitempty" bson:"resume_state"`
	ThreadTime  time.Time `json:"thread_time" bson:"thread_time"`
	Processed   []string  `json:"processed,omitempty" bson:"processed"`
	Version     int64     `json:"version" bson:"version"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Ready reports whether a step that requires one of states may run. A retryable failure counts as
// its resume state.
func (r *Status) Ready(states ...string) bool {
	for _, s := range states {
		if r.State == s || (r.State == StateError && r.Retryable && r.ResumeState == s) {
			return true
		}
	}

	return false
}

// Effective is the state a step sees: the resume state of a retryable failure, else the state.
func (r *Status) Effective() string {
	if r.State == StateError && r.Retryable {
		return r.ResumeState
	}

	return r.State
}

// Seen reports whether the message id was already applied.
func (r *Status) Seen(msgID string) bool {
	if msgID == "" {
		return false
	}

	for _, id := range r.Processed {
		if id == msgID {
			return true
		}
	}

	return false
}

// Record marks a message id as applied.
func (r *Status) Record(msgID string) {
	if msgID != "" && !r.Seen(msgID) {
		r.Processed = append(r.Processed, msgID)
	}
}

// Forget removes a message id so the message may be applied again.
func (r *Status) Forget(msgID string) {
	for i, id := range r.Processed {
		if id == msgID {
			r.Processed = append(r.Processed[:i], r.Processed[i+1:]...)
			return
		}
	}
}

// Transition moves to state, clearing any recorded failure.
func (r *Status) Transition(state string, now time.Time) {
	r.State = state
	r.Error = ""
	r.ErrorCode = ""
	r.Retryable = false
	r.ResumeState = ""
	r.UpdatedAt = now
}

// Fail moves to the error state. A retryable failure remembers the state the step can be resumed from.
func (r *Status) Fail(code, msg string, retryable bool, now time.Time) {
	if retryable {
		if r.State != StateError {
			r.ResumeState = r.State
		}
	} else {
		r.ResumeState = ""
	}

	r.State = StateError
	r.Error = msg
	r.ErrorCode = code
	r.Retryable = retryable
	r.UpdatedAt = now
}

// Terminal reports whether no further transition is possible.
func (r *Status) Terminal(terminal ...string) bool {
	if r.State == StateError {
		return !r.Retryable
	}

	for _, s := range terminal {
		if r.State == s {
			return true
		}
	}

	return false
}
