/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	now := time.Now()

	t.Run("retryable failure resumes", func(t *testing.T) {
		s := &Status{State: CredentialRequested}
		s.Fail("TimeoutError", "ledger timed out", true, now)

		require.Equal(t, StateError, s.State)
		require.Equal(t, CredentialRequested, s.ResumeState)
		require.True(t, s.Ready(CredentialRequested))
		require.False(t, s.Ready(CredentialOffered))
		require.False(t, s.Terminal(CredentialStored))

		s.Fail("TimeoutError", "ledger timed out again", true, now)
		require.Equal(t, CredentialRequested, s.ResumeState)

		s.Transition(CredentialIssued, now)
		require.Equal(t, CredentialIssued, s.State)
		require.Empty(t, s.Error)
		require.False(t, s.Retryable)
	})

	t.Run("cancel is final", func(t *testing.T) {
		s := &Status{State: CredentialOffered}
		s.Fail("UserCancelled", "abandoned", false, now)

		require.False(t, s.Ready(CredentialOffered))
		require.True(t, s.Terminal())
		require.Empty(t, s.ResumeState)
	})

	t.Run("processed messages", func(t *testing.T) {
		s := &Status{}
		require.False(t, s.Seen("m1"))
		s.Record("m1")
		s.Record("m1")
		s.Record("")
		require.True(t, s.Seen("m1"))
		require.False(t, s.Seen(""))
		require.Len(t, s.Processed, 1)
	})

	t.Run("forget and effective state", func(t *testing.T) {
		s := &Status{State: CredentialOffered}
		s.Record("m1")
		s.Record("m2")
		s.Forget("m1")
		require.Equal(t, []string{"m2"}, s.Processed)
		require.Equal(t, CredentialOffered, s.Effective())

		s.Fail("TimeoutError", "slow", true, now)
		require.Equal(t, CredentialOffered, s.Effective())

		s.Fail("UserCancelled", "abandoned", false, now)
		require.Equal(t, StateError, s.Effective())
	})
}
