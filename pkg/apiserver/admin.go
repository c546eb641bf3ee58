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
	"github.com/scoir/credex/pkg/didexchange"
	"github.com/scoir/credex/pkg/util"
)

type CreateInvitationRequest struct {
	Label    string `json:"label,omitempty"`
	Alias    string `json:"alias,omitempty"`
	MultiUse bool   `json:"multi_use,omitempty"`
	// Public invites with the agent's public DID instead of a fresh pairwise one.
	Public bool `json:"public,omitempty"`
}

type InvitationResponse struct {
	*datastore.Connection
	InvitationURL string `json:"invitation_url"`
}

type ReceiveInvitationRequest struct {
	// Invitation is an invitation URL or the invitation JSON.
	Invitation string `json:"invitation"`
	Alias      string `json:"alias,omitempty"`
}

type CreateSchemaRequest struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Attributes []string `json:"attributes"`
}

type CreateCredentialDefinitionRequest struct {
	SchemaID string `json:"schema_id"`
	Tag      string `json:"tag,omitempty"`
	// RevocationRegistrySize enables revocation with room for that many credentials.
	RevocationRegistrySize int64 `json:"revocation_registry_size,omitempty"`
}

func (r *APIServer) createInvitation(w http.ResponseWriter, req *http.Request) {
	body := &CreateInvitationRequest{}
	if !decode(w, req, body) {
		return
	}

	var opts []didexchange.InvitationOption
	if body.Alias != "" {
		opts = append(opts, didexchange.WithAlias(body.Alias))
	}
	if body.MultiUse {
		opts = append(opts, didexchange.WithMultiUse())
	}
	if body.Public {
		opts = append(opts, didexchange.WithPublicDID(r.publicDID))
	}

	conn, err := r.connections.CreateInvitation(req.Context(), body.Label, opts...)
	if err != nil {
		r.fail(w, err)
		return
	}

	url, err := r.connections.InvitationURL(conn)
	r.respond(w, &InvitationResponse{Connection: conn, InvitationURL: url}, err)
}

func (r *APIServer) receiveInvitation(w http.ResponseWriter, req *http.Request) {
	body := &ReceiveInvitationRequest{}
	if !decode(w, req, body) {
		return
	}

	if body.Invitation == "" {
		util.WriteStatusError(w, http.StatusBadRequest, "invitation is required")
		return
	}

	var opts []didexchange.InvitationOption
	if body.Alias != "" {
		opts = append(opts, didexchange.WithAlias(body.Alias))
	}

	conn, err := r.connections.ReceiveInvitation(req.Context(), body.Invitation, opts...)
	r.record(w, conn, conn != nil, err)
}

func (r *APIServer) listConnections(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	start, size := page(req)
	archived, _ := strconv.ParseBool(q.Get("include_archived"))

	l, err := r.connections.List(&datastore.ConnectionCriteria{
		State:           q.Get("state"),
		Role:            q.Get("role"),
		Alias:           q.Get("alias"),
		IncludeArchived: archived,
		Start:           start,
		PageSize:        size,
	})
	r.respond(w, l, err)
}

func (r *APIServer) getConnection(w http.ResponseWriter, req *http.Request) {
	conn, err := r.connections.Get(param(req))
	r.respond(w, conn, err)
}

func (r *APIServer) deleteConnection(w http.ResponseWriter, req *http.Request) {
	r.deleted(w, r.connections.Delete(req.Context(), param(req)))
}

func (r *APIServer) abandonConnection(w http.ResponseWriter, req *http.Request) {
	conn, err := r.connections.Abandon(req.Context(), param(req))
	r.record(w, conn, conn != nil, err)
}

func (r *APIServer) createSchema(w http.ResponseWriter, req *http.Request) {
	body := &CreateSchemaRequest{}
	if !decode(w, req, body) {
		return
	}

	if body.Name == "" || body.Version == "" || len(body.Attributes) == 0 {
		util.WriteStatusError(w, http.StatusBadRequest, "name, version and attributes are required fields")
		return
	}

	s, err := r.credentials.CreateSchema(req.Context(), body.Name, body.Version, body.Attributes)
	r.respond(w, s, err)
}

func (r *APIServer) createCredentialDefinition(w http.ResponseWriter, req *http.Request) {
	body := &CreateCredentialDefinitionRequest{}
	if !decode(w, req, body) {
		return
	}

	if body.SchemaID == "" {
		util.WriteStatusError(w, http.StatusBadRequest, "schema_id is required")
		return
	}

	var opts []credential.DefinitionOption
	if body.Tag != "" {
		opts = append(opts, credential.WithTag(body.Tag))
	}
	if body.RevocationRegistrySize > 0 {
		opts = append(opts, credential.WithRevocation(body.RevocationRegistrySize))
	}

	cd, err := r.credentials.CreateCredentialDefinition(req.Context(), body.SchemaID, opts...)
	r.respond(w, cd, err)
}
