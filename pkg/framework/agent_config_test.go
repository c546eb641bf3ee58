/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAgentConfig_WithDefaults(t *testing.T) {
	ac := AgentConfig{Name: "faber"}.WithDefaults()

	require.Equal(t, "faber", ac.Label)
	require.Equal(t, DefaultInboundQueue, ac.InboundQueue)
	require.Equal(t, DefaultNotificationQueue, ac.NotificationQueue)

	ac = AgentConfig{Name: "faber", Label: "Faber College", InboundQueue: "faber"}.WithDefaults()
	require.Equal(t, "Faber College", ac.Label)
	require.Equal(t, "faber", ac.InboundQueue)
}
