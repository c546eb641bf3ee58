/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/ledger"
)

// Protocol errors. The exchange is left untouched when one of these is returned.
var (
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrMalformedInvitation  = errors.New("malformed invitation")
	ErrInvalidProofRequest  = errors.New("invalid proof request")
	ErrInvalidAttributes    = errors.New("attributes do not match schema")
	ErrExpiredMessage       = errors.New("message expired")
	ErrNoMatchingCredential = errors.New("no matching credential")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrMalformedMessage     = errors.New("malformed message")
)

// Dependency and cancellation causes. The exchange moves to the error state with one of these recorded.
var (
	ErrTimeout           = errors.New("dependency timed out")
	ErrUnresolvableDID   = ledger.ErrUnresolvableDID
	ErrUserCancelled     = errors.New("user cancelled")
	ErrRevokedCredential = errors.New("revoked credential")
)

// Cause codes recorded on failed exchanges.
const (
	CodeInvalidTransition  = "InvalidTransitionError"
	CodeMalformedInvite    = "MalformedInvitationError"
	CodeInvalidProofReq    = "InvalidProofRequestError"
	CodeInvalidSignature   = "InvalidSignatureError"
	CodeTimeout            = "TimeoutError"
	CodeUnresolvableDID    = "UnresolvableDIDError"
	CodeUserCancelled      = "UserCancelled"
	CodeRevokedCredential  = "RevokedCredential"
	CodeDependency         = "DependencyError"
	CodeProblemReport      = "ProblemReport"
	CodeVerificationFailed = "VerificationFailed"
)

// ProtocolError is returned when a message or call cannot be applied to the current state.
type ProtocolError struct {
	// Code is the problem-report code a counterparty would be sent for this error.
	Code string
	Err  error
}

func (r *ProtocolError) Error() string {
	return r.Err.Error()
}

func (r *ProtocolError) Unwrap() error {
	return r.Err
}

// DependencyError is returned when the ledger, crypto engine or transport failed. The step that
// produced it can be re-attempted.
type DependencyError struct {
	Err error
}

func (r *DependencyError) Error() string {
	return r.Err.Error()
}

func (r *DependencyError) Unwrap() error {
	return r.Err
}

// Protocol wraps cause as a protocol error.
func Protocol(cause error, format string, args ...interface{}) error {
	return &ProtocolError{
		Code: "request-not-accepted",
		Err:  errors.Wrapf(cause, format, args...),
	}
}

// InvalidTransition reports a call or message that is not legal from state.
func InvalidTransition(kind, id, state string) error {
	return Protocol(ErrInvalidTransition, "%s %s is in state %s", kind, id, state)
}

// Dependency wraps err as a dependency error, translating deadline expiry into ErrTimeout.
func Dependency(err error, format string, args ...interface{}) error {
	if _, ok := err.(*DependencyError); ok {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = errors.Wrap(ErrTimeout, err.Error())
	}

	return &DependencyError{Err: errors.Wrapf(err, format, args...)}
}

// IsProtocolError reports whether err means "your request was rejected".
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsDependencyError reports whether err means "try again".
func IsDependencyError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}

// CauseCode maps err onto the code recorded in an exchange's error_code field.
func CauseCode(err error) string {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrUnresolvableDID):
		return CodeUnresolvableDID
	case errors.Is(err, ErrUserCancelled), errors.Is(err, context.Canceled):
		return CodeUserCancelled
	case errors.Is(err, ErrRevokedCredential):
		return CodeRevokedCredential
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrMalformedInvitation):
		return CodeMalformedInvite
	case errors.Is(err, ErrInvalidProofRequest):
		return CodeInvalidProofReq
	case errors.Is(err, ErrInvalidSignature):
		return CodeInvalidSignature
	}

	return CodeDependency
}
