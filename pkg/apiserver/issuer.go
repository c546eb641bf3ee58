/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package apiserver

import (
	"net/http"
	"strconv"

	"github.com/scoir/credex/pkg/credential"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/util"
)

type SendOfferRequest struct {
	ConnectionID string            `json:"connection_id"`
	CredDefID    string            `json:"cred_def_id"`
	Attributes   map[string]string `json:"attributes"`
	Comment      string            `json:"comment,omitempty"`
}

type SendProposalRequest struct {
	ConnectionID string            `json:"connection_id"`
	SchemaID     string            `json:"schema_id"`
	CredDefID    string            `json:"cred_def_id,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Comment      string            `json:"comment,omitempty"`
}

type RespondRequest struct {
	CredDefID  string            `json:"cred_def_id"`
	Attributes map[string]string `json:"attributes"`
}

type StoreRequest struct {
	CredentialID string `json:"credential_id,omitempty"`
}

type RevokeRequest struct {
	Reason string `json:"reason,omitempty"`
	// Notify sends the holder a revocation notification.
	Notify bool `json:"notify,omitempty"`
}

func (r *APIServer) sendOffer(w http.ResponseWriter, req *http.Request) {
	body := &SendOfferRequest{}
	if !decode(w, req, body) {
		return
	}

	if body.ConnectionID == "" || body.CredDefID == "" {
		util.WriteStatusError(w, http.StatusBadRequest, "connection_id and cred_def_id are required")
		return
	}

	ex, err := r.credentials.Offer(req.Context(), body.ConnectionID, body.CredDefID, body.Attributes, body.Comment)
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) sendProposal(w http.ResponseWriter, req *http.Request) {
	body := &SendProposalRequest{}
	if !decode(w, req, body) {
		return
	}

	if body.ConnectionID == "" || body.SchemaID == "" {
		util.WriteStatusError(w, http.StatusBadRequest, "connection_id and schema_id are required")
		return
	}

	var opts []credential.ProposeOption
	if body.CredDefID != "" {
		opts = append(opts, credential.WithCredDef(body.CredDefID))
	}
	if body.Comment != "" {
		opts = append(opts, credential.WithComment(body.Comment))
	}

	ex, err := r.credentials.Propose(req.Context(), body.ConnectionID, body.SchemaID, body.Attributes, opts...)
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) respondToProposal(w http.ResponseWriter, req *http.Request) {
	body := &RespondRequest{}
	if !decode(w, req, body) {
		return
	}

	ex, err := r.credentials.RespondToProposal(req.Context(), param(req), body.CredDefID, body.Attributes)
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) acceptOffer(w http.ResponseWriter, req *http.Request) {
	ex, err := r.credentials.AcceptOffer(req.Context(), param(req))
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) issue(w http.ResponseWriter, req *http.Request) {
	ex, err := r.credentials.Issue(req.Context(), param(req))
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) store(w http.ResponseWriter, req *http.Request) {
	body := &StoreRequest{}
	if !decodeOptional(w, req, body) {
		return
	}

	var opts []credential.StoreOption
	if body.CredentialID != "" {
		opts = append(opts, credential.WithCredentialID(body.CredentialID))
	}

	ex, err := r.credentials.Store(req.Context(), param(req), opts...)
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) revoke(w http.ResponseWriter, req *http.Request) {
	body := &RevokeRequest{}
	if !decodeOptional(w, req, body) {
		return
	}

	var opts []credential.RevokeOption
	if body.Notify {
		opts = append(opts, credential.WithHolderNotification())
	}

	ex, err := r.credentials.Revoke(req.Context(), param(req), body.Reason, opts...)
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) abandonCredentialExchange(w http.ResponseWriter, req *http.Request) {
	ex, err := r.credentials.Abandon(req.Context(), param(req))
	r.record(w, ex, ex != nil, err)
}

func (r *APIServer) listCredentialExchanges(w http.ResponseWriter, req *http.Request) {
	l, err := r.credentials.List(exchangeCriteria(req))
	r.respond(w, l, err)
}

func (r *APIServer) getCredentialExchange(w http.ResponseWriter, req *http.Request) {
	ex, err := r.credentials.Get(param(req))
	r.respond(w, ex, err)
}

func (r *APIServer) deleteCredentialExchange(w http.ResponseWriter, req *http.Request) {
	r.deleted(w, r.credentials.Delete(req.Context(), param(req)))
}

func (r *APIServer) listCredentials(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	start, size := page(req)
	revoked, _ := strconv.ParseBool(q.Get("include_revoked"))

	l, err := r.credentials.Credentials(&datastore.CredentialCriteria{
		CredDefID:      q.Get("cred_def_id"),
		SchemaID:       q.Get("schema_id"),
		IncludeRevoked: revoked,
		Start:          start,
		PageSize:       size,
	})
	r.respond(w, l, err)
}

func (r *APIServer) getCredential(w http.ResponseWriter, req *http.Request) {
	c, err := r.credentials.Credential(param(req))
	r.respond(w, c, err)
}

func (r *APIServer) deleteCredential(w http.ResponseWriter, req *http.Request) {
	r.deleted(w, r.credentials.DeleteCredential(param(req)))
}
