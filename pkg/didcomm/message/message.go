/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package message holds the typed protocol messages exchanged between agents. Inbound bytes are
// decoded exactly once, by Decode, into one of these types.
package message

import (
	"time"

	"github.com/google/uuid"
)

const prefix = "https://didcomm.org/"

const (
	ConnectionInvitationType    = prefix + "connections/1.0/invitation"
	ConnectionRequestType       = prefix + "connections/1.0/request"
	ConnectionResponseType      = prefix + "connections/1.0/response"
	ConnectionAckType           = prefix + "connections/1.0/ack"
	ConnectionProblemReportType = prefix + "connections/1.0/problem-report"

	ProposeCredentialType       = prefix + "issue-credential/1.0/propose-credential"
	OfferCredentialType         = prefix + "issue-credential/1.0/offer-credential"
	RequestCredentialType       = prefix + "issue-credential/1.0/request-credential"
	IssueCredentialType         = prefix + "issue-credential/1.0/issue-credential"
	CredentialAckType           = prefix + "issue-credential/1.0/ack"
	CredentialProblemReportType = prefix + "issue-credential/1.0/problem-report"
	CredentialPreviewType       = prefix + "issue-credential/1.0/credential-preview"

	RequestPresentationType       = prefix + "present-proof/1.0/request-presentation"
	PresentationType              = prefix + "present-proof/1.0/presentation"
	PresentationAckType           = prefix + "present-proof/1.0/ack"
	PresentationProblemReportType = prefix + "present-proof/1.0/problem-report"

	RevocationNotificationType = prefix + "revocation_notification/1.0/revoke"
)

// Problem report codes.
const (
	CodeRequestNotAccepted      = "request-not-accepted"
	CodePresentationNotVerified = "presentation-not-verified"
	CodeAbandoned               = "abandoned"
	CodeProcessingError         = "request-processing-error"
)

type Thread struct {
	ThID  string `json:"thid,omitempty"`
	PThID string `json:"pthid,omitempty"`
}

type Timing struct {
	OutTime     time.Time  `json:"out_time"`
	ExpiresTime *time.Time `json:"expires_time,omitempty"`
}

// Header is carried by every message.
type Header struct {
	Type      string  `json:"@type"`
	ID        string  `json:"@id"`
	Thread    *Thread `json:"~thread,omitempty"`
	SenderDID string  `json:"sender_did,omitempty"`
	Timing    *Timing `json:"~timing,omitempty"`
}

// Message is implemented by every typed message through its embedded Header.
type Message interface {
	Hdr() *Header
}

func (r *Header) Hdr() *Header {
	return r
}

// NewHeader starts a new message stamped with the current time. Stamps are kept to millisecond
// precision so a stored copy compares equal to the one on the wire.
func NewHeader(typ string) Header {
	return Header{
		Type:   typ,
		ID:     uuid.New().String(),
		Timing: &Timing{OutTime: time.Now().UTC().Truncate(time.Millisecond)},
	}
}

// Reply starts a message on thid.
func Reply(typ, thid string) Header {
	h := NewHeader(typ)
	h.Thread = &Thread{ThID: thid}
	return h
}

// ThreadID is the thread a message belongs to. A message that opens a thread is its own thread.
func (r *Header) ThreadID() string {
	if r.Thread != nil && r.Thread.ThID != "" {
		return r.Thread.ThID
	}

	return r.ID
}

func (r *Header) ParentThreadID() string {
	if r.Thread == nil {
		return ""
	}

	return r.Thread.PThID
}

// SentAt is ~timing.out_time, or the zero time when the sender did not stamp the message.
func (r *Header) SentAt() time.Time {
	if r.Timing == nil {
		return time.Time{}
	}

	return r.Timing.OutTime
}

func (r *Header) Expired(now time.Time) bool {
	return r.Timing != nil && r.Timing.ExpiresTime != nil && now.After(*r.Timing.ExpiresTime)
}

// ExpiresIn sets ~timing.expires_time relative to out_time.
func (r *Header) ExpiresIn(d time.Duration) {
	if r.Timing == nil {
		r.Timing = &Timing{OutTime: time.Now().UTC()}
	}

	t := r.Timing.OutTime.Add(d)
	r.Timing.ExpiresTime = &t
}

// Before orders two messages by out_time. Ties and unstamped messages fall back to comparing ids so
// that both agents reach the same answer.
func Before(a, b *Header) bool {
	ta, tb := a.SentAt(), b.SentAt()
	if !ta.Equal(tb) {
		if ta.IsZero() {
			return false
		}
		if tb.IsZero() {
			return true
		}
		return ta.Before(tb)
	}

	return a.ID < b.ID
}
