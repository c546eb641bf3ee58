/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package apiserver

import (
	"net/http"

	"github.com/scoir/credex/pkg/presentproof"
	"github.com/scoir/credex/pkg/schema"
	"github.com/scoir/credex/pkg/util"
)

type SendRequestRequest struct {
	ConnectionID string               `json:"connection_id"`
	ProofRequest *schema.ProofRequest `json:"proof_request"`
	Comment      string               `json:"comment,omitempty"`
}

type PresentRequest struct {
	// Credentials are the held credential ids the presentation may draw on.
	Credentials []string `json:"credentials"`
	// Unrevealed names attribute referents proven without disclosing their value.
	Unrevealed []string `json:"unrevealed,omitempty"`
}

type DeclineRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (r *APIServer) sendRequest(w http.ResponseWriter, req *http.Request) {
	body := &SendRequestRequest{}
	if !decode(w, req, body) {
		return
	}

	if body.ConnectionID == "" || body.ProofRequest == nil {
		util.WriteStatusError(w, http.StatusBadRequest, "connection_id and proof_request are required")
		return
	}

	ex, err := r.presentations.SendRequest(req.Context(), body.ConnectionID, body.ProofRequest, body.Comment)
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) present(w http.ResponseWriter, req *http.Request) {
	body := &PresentRequest{}
	if !decode(w, req, body) {
		return
	}

	var opts []presentproof.PresentOption
	if len(body.Unrevealed) > 0 {
		opts = append(opts, presentproof.WithUnrevealed(body.Unrevealed...))
	}

	ex, err := r.presentations.SelectAndPresent(req.Context(), param(req), body.Credentials, opts...)
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) verify(w http.ResponseWriter, req *http.Request) {
	ex, err := r.presentations.Verify(req.Context(), param(req))
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) decline(w http.ResponseWriter, req *http.Request) {
	body := &DeclineRequest{}
	if !decodeOptional(w, req, body) {
		return
	}

	ex, err := r.presentations.Decline(req.Context(), param(req), body.Reason)
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) abandonPresentationExchange(w http.ResponseWriter, req *http.Request) {
	ex, err := r.presentations.Abandon(req.Context(), param(req))
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) credentialsForRequest(w http.ResponseWriter, req *http.Request) {
	m, err := r.presentations.CredentialsForRequest(req.Context(), param(req))
	r.respond(w, m, err)
}

func (r *APIServer) revealedAttributes(w http.ResponseWriter, req *http.Request) {
	attrs, err := r.presentations.RevealedAttributes(param(req))
	r.respond(w, attrs, err)
}

func (r *APIServer) listPresentationExchanges(w http.ResponseWriter, req *http.Request) {
	l, err := r.presentations.List(exchangeCriteria(req))
	r.respond(w, l, err)
}

func (r *APIServer) getPresentationExchange(w http.ResponseWriter, req *http.Request) {
	ex, err := r.presentations.Get(param(req))
	r.respond(w, ex, err)
}

func (r *APIServer) deletePresentationExchange(w http.ResponseWriter, req *http.Request) {
	r.deleted(w, r.presentations.Delete(req.Context(), param(req)))
}
