/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	goji "goji.io"
	"goji.io/pat"

	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/util"
)

// Server exposes a ledger.Client over the REST protocol spoken by Client.
type Server struct {
	ledger ledger.Client
	token  string
}

func NewServer(l ledger.Client, token string) *Server {
	return &Server{ledger: l, token: token}
}

// Handler returns the gateway routes.
func (r *Server) Handler() http.Handler {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/did/:id"), r.resolveDID)
	mux.HandleFunc(pat.Get("/schema/:id"), r.readSchema)
	mux.HandleFunc(pat.Get("/cred_def/:id"), r.readCredDef)
	mux.HandleFunc(pat.Get("/rev_reg/:id/delta"), r.readDelta)
	mux.HandleFunc(pat.Post("/did"), r.writeDID)
	mux.HandleFunc(pat.Post("/schema"), r.writeSchema)
	mux.HandleFunc(pat.Post("/cred_def"), r.writeCredDef)
	mux.HandleFunc(pat.Post("/rev_reg"), r.writeRegistry)
	mux.HandleFunc(pat.Post("/rev_reg/:id/revoke"), r.revoke)

	if r.token != "" {
		mux.Use(r.auth)
	}

	return mux
}

func (r *Server) auth(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		given := sha256.Sum256([]byte(req.Header.Get(TokenHeader)))
		required := sha256.Sum256([]byte(r.token))
		if subtle.ConstantTimeCompare(given[:], required[:]) != 1 {
			util.WriteStatusError(w, http.StatusUnauthorized, "not authorized")
			return
		}

		h.ServeHTTP(w, req)
	})
}

func param(req *http.Request) string {
	p := pat.Param(req, "id")
	if u, err := url.PathUnescape(p); err == nil {
		return u
	}

	return p
}

func (r *Server) resolveDID(w http.ResponseWriter, req *http.Request) {
	ep, err := r.ledger.ResolveDID(req.Context(), param(req))
	respond(w, ep, err)
}

func (r *Server) readSchema(w http.ResponseWriter, req *http.Request) {
	s, err := r.ledger.ReadSchema(req.Context(), param(req))
	respond(w, s, err)
}

func (r *Server) readCredDef(w http.ResponseWriter, req *http.Request) {
	cd, err := r.ledger.ReadCredDef(req.Context(), param(req))
	respond(w, cd, err)
}

func (r *Server) readDelta(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	index, err := strconv.ParseInt(q.Get("index"), 10, 64)
	if err != nil {
		util.WriteStatusError(w, http.StatusBadRequest, "index is required")
		return
	}
	from, _ := strconv.ParseInt(q.Get("from"), 10, 64)
	to, _ := strconv.ParseInt(q.Get("to"), 10, 64)

	status, err := r.ledger.ReadRevocationDelta(req.Context(), param(req), index, from, to)
	respond(w, status, err)
}

func (r *Server) writeDID(w http.ResponseWriter, req *http.Request) {
	ep := &ledger.ServiceEndpoint{}
	if !decode(w, req, ep) {
		return
	}

	respond(w, struct{}{}, r.ledger.WriteDID(req.Context(), ep))
}

func (r *Server) writeSchema(w http.ResponseWriter, req *http.Request) {
	s := &ledger.Schema{}
	if !decode(w, req, s) {
		return
	}

	id, err := r.ledger.WriteSchema(req.Context(), s)
	respond(w, &idResponse{ID: id}, err)
}

func (r *Server) writeCredDef(w http.ResponseWriter, req *http.Request) {
	cd := &ledger.CredentialDefinition{}
	if !decode(w, req, cd) {
		return
	}

	id, err := r.ledger.WriteCredDef(req.Context(), cd)
	respond(w, &idResponse{ID: id}, err)
}

func (r *Server) writeRegistry(w http.ResponseWriter, req *http.Request) {
	reg := &ledger.RevocationRegistry{}
	if !decode(w, req, reg) {
		return
	}

	id, err := r.ledger.WriteRevocationRegistry(req.Context(), reg)
	respond(w, &idResponse{ID: id}, err)
}

func (r *Server) revoke(w http.ResponseWriter, req *http.Request) {
	rr := &revokeRequest{}
	if !decode(w, req, rr) {
		return
	}

	respond(w, struct{}{}, r.ledger.WriteRevocation(req.Context(), param(req), rr.Indexes...))
}

func decode(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	err := json.NewDecoder(req.Body).Decode(v)
	if err != nil {
		util.WriteStatusError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}

	return true
}

func respond(w http.ResponseWriter, v interface{}, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrUnresolvableDID):
		util.WriteStatusError(w, http.StatusNotFound, err.Error())
	case err != nil:
		util.WriteStatusError(w, http.StatusBadRequest, err.Error())
	default:
		util.WriteJSON(w, http.StatusOK, v)
	}
}
