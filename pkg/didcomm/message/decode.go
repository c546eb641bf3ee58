/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package message

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrMalformed   = errors.New("malformed message")
)

var factories = map[string]func() Message{
	ConnectionInvitationType:      func() Message { return &Invitation{} },
	ConnectionRequestType:         func() Message { return &ConnectionRequest{} },
	ConnectionResponseType:        func() Message { return &ConnectionResponse{} },
	ConnectionAckType:             func() Message { return &Ack{} },
	ConnectionProblemReportType:   func() Message { return &ProblemReport{} },
	ProposeCredentialType:         func() Message { return &ProposeCredential{} },
	OfferCredentialType:           func() Message { return &OfferCredential{} },
	RequestCredentialType:         func() Message { return &RequestCredential{} },
	IssueCredentialType:           func() Message { return &IssueCredential{} },
	CredentialAckType:             func() Message { return &Ack{} },
	CredentialProblemReportType:   func() Message { return &ProblemReport{} },
	RequestPresentationType:       func() Message { return &RequestPresentation{} },
	PresentationType:              func() Message { return &Presentation{} },
	PresentationAckType:           func() Message { return &Ack{} },
	PresentationProblemReportType: func() Message { return &ProblemReport{} },
	RevocationNotificationType:    func() Message { return &RevocationNotification{} },
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, format, args...)
}

// Decode parses d into the typed message named by its @type and checks the fields that type requires.
func Decode(d []byte) (Message, error) {
	hdr := &Header{}
	if err := json.Unmarshal(d, hdr); err != nil {
		return nil, malformed("%s", err)
	}

	factory, ok := factories[hdr.Type]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q", hdr.Type)
	}

	msg := factory()
	if err := json.Unmarshal(d, msg); err != nil {
		return nil, malformed("%s: %s", hdr.Type, err)
	}

	if err := validate(msg); err != nil {
		return nil, err
	}

	return msg, nil
}

func threaded(h *Header) error {
	if h.Thread == nil || h.Thread.ThID == "" {
		return malformed("%s requires ~thread.thid", h.Type)
	}
	return nil
}

func validate(msg Message) error {
	h := msg.Hdr()
	if h.ID == "" {
		return malformed("%s has no @id", h.Type)
	}

	switch m := msg.(type) {
	case *Invitation:
		if len(m.RecipientKeys) == 0 && m.DID == "" {
			return malformed("invitation needs recipientKeys or a public did")
		}
		if m.DID == "" && m.ServiceEndpoint == "" {
			return malformed("invitation has no serviceEndpoint")
		}
	case *ConnectionRequest:
		if m.Connection == nil || m.Connection.DID == "" || m.Connection.Verkey == "" {
			return malformed("connection request has no connection DID")
		}
		if h.ParentThreadID() == "" {
			return malformed("connection request does not reference an invitation")
		}
	case *ConnectionResponse:
		if m.ConnectionSig == nil || m.ConnectionSig.Signature == "" || m.ConnectionSig.SigData == "" {
			return malformed("connection response is not signed")
		}
		return threaded(h)
	case *Ack, *ProblemReport, *RequestCredential, *IssueCredential, *Presentation:
		if err := threaded(h); err != nil {
			return err
		}
	case *ProposeCredential:
		if m.SchemaID == "" {
			return malformed("proposal has no schema_id")
		}
	case *OfferCredential:
		if m.Offer == nil || m.Offer.CredDefID == "" || m.CredentialPreview == nil {
			return malformed("offer has no credential offer or preview")
		}
	case *RequestPresentation:
		if m.ProofRequest == nil {
			return malformed("request has no proof_request")
		}
	case *RevocationNotification:
		if m.ThreadID == "" {
			return malformed("revocation notification has no thread_id")
		}
	}

	switch m := msg.(type) {
	case *RequestCredential:
		if m.Request == nil {
			return malformed("request has no credential request")
		}
	case *IssueCredential:
		if m.Credential == nil {
			return malformed("issue has no credential")
		}
	case *Presentation:
		if m.Presentation == nil {
			return malformed("presentation is empty")
		}
		if m.Presentation.RequestedProof == nil {
			return malformed("presentation has no requested_proof")
		}
	}

	return nil
}

func Encode(msg Message) ([]byte, error) {
	d, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode message")
	}

	return d, nil
}

// InvitationURL renders inv as <endpoint>?c_i=<base64url(invitation)>.
func InvitationURL(endpoint string, inv *Invitation) (string, error) {
	d, err := Encode(inv)
	if err != nil {
		return "", err
	}

	return endpoint + "?c_i=" + base64.URLEncoding.EncodeToString(d), nil
}

// ParseInvitation accepts either an invitation URL or the invitation JSON itself.
func ParseInvitation(s string) (*Invitation, error) {
	s = strings.TrimSpace(s)

	var d []byte
	if strings.HasPrefix(s, "{") {
		d = []byte(s)
	} else {
		u, err := url.Parse(s)
		if err != nil {
			return nil, malformed("invalid invitation url: %s", err)
		}

		ci := u.Query().Get("c_i")
		if ci == "" {
			return nil, malformed("invitation url has no c_i parameter")
		}

		d, err = base64.URLEncoding.DecodeString(ci)
		if err != nil {
			d, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(ci, "="))
		}
		if err != nil {
			return nil, malformed("invalid invitation encoding: %s", err)
		}
	}

	msg, err := Decode(d)
	if err != nil {
		return nil, err
	}

	inv, ok := msg.(*Invitation)
	if !ok {
		return nil, malformed("%s is not an invitation", msg.Hdr().Type)
	}

	return inv, nil
}
