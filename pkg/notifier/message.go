/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notifier

const QueueName = "notification"

// Topics, one per record kind. The event of a notification is the record's new state.
const (
	TopicConnections     = "connections"
	TopicIssueCredential = "issue_credential"
	TopicPresentProof    = "present_proof"
	TopicRevocation      = "revocation"
)

type Notification struct {
	Topic     string      `json:"topic"`
	Event     string      `json:"event"`
	EventData interface{} `json:"message"`
}

type EventMessage struct {
	Topic     string      `json:"topic"`
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	EventData interface{} `json:"message"`
}
