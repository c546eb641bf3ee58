/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package apiserver is the admin HTTP API of an agent, plus the /inbound route of its HTTP transport.
package apiserver

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	goji "goji.io"
	"goji.io/pat"

	"github.com/scoir/credex/pkg/controller"
	"github.com/scoir/credex/pkg/credential"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/didexchange"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/presentproof"
	"github.com/scoir/credex/pkg/util"
)

// MaxInboundSize bounds the body of an inbound message.
const MaxInboundSize = 1 << 20

type provider interface {
	Connections() *didexchange.Supervisor
	Credentials() *credential.Supervisor
	Presentations() *presentproof.Supervisor
	Handle(ctx context.Context, payload []byte) error
	PublicDID() string
}

type Option func(*APIServer)

// WithToken requires every admin request to carry token in the X-API-Key header.
func WithToken(token string) Option {
	return func(r *APIServer) {
		r.token = token
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *APIServer) {
		r.log = l.Named("apiserver")
	}
}

type APIServer struct {
	connections   *didexchange.Supervisor
	credentials   *credential.Supervisor
	presentations *presentproof.Supervisor
	handle        func(ctx context.Context, payload []byte) error
	publicDID     string
	token         string
	log           *zap.Logger

	inflight sync.WaitGroup
	base     context.Context
}

func New(ctx provider, opts ...Option) *APIServer {
	r := &APIServer{
		connections:   ctx.Connections(),
		credentials:   ctx.Credentials(),
		presentations: ctx.Presentations(),
		handle:        ctx.Handle,
		publicDID:     ctx.PublicDID(),
		log:           zap.NewNop(),
		base:          context.Background(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Handler returns every route. /inbound is open to counterparties; the rest require the API key
// when one is configured.
func (r *APIServer) Handler() http.Handler {
	root := goji.NewMux()
	root.Use(controller.Logger(r.log))
	root.HandleFunc(pat.Post("/inbound"), r.inbound)

	admin := goji.SubMux()
	admin.Use(controller.CorsHandler())
	if r.token != "" {
		admin.Use(controller.TokenAuth(r.token))
	}

	admin.HandleFunc(pat.Post("/connections/create-invitation"), r.createInvitation)
	admin.HandleFunc(pat.Post("/connections/receive-invitation"), r.receiveInvitation)
	admin.HandleFunc(pat.Get("/connections"), r.listConnections)
	admin.HandleFunc(pat.Get("/connections/:id"), r.getConnection)
	admin.HandleFunc(pat.Delete("/connections/:id"), r.deleteConnection)
	admin.HandleFunc(pat.Post("/connections/:id/abandon"), r.abandonConnection)

	admin.HandleFunc(pat.Post("/schemas"), r.createSchema)
	admin.HandleFunc(pat.Post("/credential-definitions"), r.createCredentialDefinition)

	admin.HandleFunc(pat.Post("/issue-credential/send-offer"), r.sendOffer)
	admin.HandleFunc(pat.Post("/issue-credential/send-proposal"), r.sendProposal)
	admin.HandleFunc(pat.Get("/issue-credential/records"), r.listCredentialExchanges)
	admin.HandleFunc(pat.Get("/issue-credential/records/:id"), r.getCredentialExchange)
	admin.HandleFunc(pat.Delete("/issue-credential/records/:id"), r.deleteCredentialExchange)
	admin.HandleFunc(pat.Post("/issue-credential/records/:id/respond"), r.respondToProposal)
	admin.HandleFunc(pat.Post("/issue-credential/records/:id/accept-offer"), r.acceptOffer)
	admin.HandleFunc(pat.Post("/issue-credential/records/:id/issue"), r.issue)
	admin.HandleFunc(pat.Post("/issue-credential/records/:id/store"), r.store)
	admin.HandleFunc(pat.Post("/issue-credential/records/:id/revoke"), r.revoke)
	admin.HandleFunc(pat.Post("/issue-credential/records/:id/abandon"), r.abandonCredentialExchange)

	admin.HandleFunc(pat.Get("/credentials"), r.listCredentials)
	admin.HandleFunc(pat.Get("/credentials/:id"), r.getCredential)
	admin.HandleFunc(pat.Delete("/credentials/:id"), r.deleteCredential)

	admin.HandleFunc(pat.Post("/present-proof/send-request"), r.sendRequest)
	admin.HandleFunc(pat.Get("/present-proof/records"), r.listPresentationExchanges)
	admin.HandleFunc(pat.Get("/present-proof/records/:id"), r.getPresentationExchange)
	admin.HandleFunc(pat.Delete("/present-proof/records/:id"), r.deletePresentationExchange)
	admin.HandleFunc(pat.Get("/present-proof/records/:id/credentials"), r.credentialsForRequest)
	admin.HandleFunc(pat.Get("/present-proof/records/:id/revealed"), r.revealedAttributes)
	admin.HandleFunc(pat.Post("/present-proof/records/:id/present"), r.present)
	admin.HandleFunc(pat.Post("/present-proof/records/:id/verify"), r.verify)
	admin.HandleFunc(pat.Post("/present-proof/records/:id/decline"), r.decline)
	admin.HandleFunc(pat.Post("/present-proof/records/:id/abandon"), r.abandonPresentationExchange)

	root.Handle(pat.New("/*"), admin)
	return root
}

// inbound accepts a message for the dispatcher and processes it in the background.
func (r *APIServer) inbound(w http.ResponseWriter, req *http.Request) {
	payload, err := ioutil.ReadAll(http.MaxBytesReader(w, req.Body, MaxInboundSize))
	if err != nil {
		util.WriteStatusError(w, http.StatusBadRequest, "unable to read message")
		return
	}

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		err := r.handle(r.base, payload)
		if err != nil {
			r.log.Error("unable to process inbound message", zap.Error(err))
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// Wait blocks until every accepted inbound message has been processed.
func (r *APIServer) Wait() {
	r.inflight.Wait()
}

// StatusCode maps a coordinator error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, datastore.ErrNotFound), errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, exchange.ErrInvalidTransition), errors.Is(err, datastore.ErrDuplicate),
		errors.Is(err, datastore.ErrConflict), errors.Is(err, datastore.ErrReferenced):
		return http.StatusConflict
	case errors.Is(err, exchange.ErrNoMatchingCredential):
		return http.StatusUnprocessableEntity
	case exchange.IsProtocolError(err):
		return http.StatusBadRequest
	case exchange.IsDependencyError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (r *APIServer) respond(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		r.fail(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, v)
}

// record answers with the exchange when a step saved it but failed on a dependency, such as
// delivery, so the caller sees the recorded failure.
func (r *APIServer) record(w http.ResponseWriter, v interface{}, present bool, err error) {
	if err != nil && (!present || !exchange.IsDependencyError(err)) {
		r.fail(w, err)
		return
	}
	if err != nil {
		r.log.Warn("step failed", zap.Error(err))
		util.WriteJSON(w, StatusCode(err), v)
		return
	}

	util.WriteJSON(w, http.StatusOK, v)
}

func (r *APIServer) fail(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		r.log.Error("request failed", zap.Error(err))
	}

	util.WriteStatusError(w, status, err.Error())
}

func (r *APIServer) deleted(w http.ResponseWriter, err error) {
	if err != nil {
		r.fail(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	err := json.NewDecoder(req.Body).Decode(v)
	if err != nil {
		util.WriteStatusError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}

	return true
}

// decodeOptional is decode for routes whose body may be left empty.
func decodeOptional(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	err := json.NewDecoder(req.Body).Decode(v)
	if err != nil && err != io.EOF {
		util.WriteStatusError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}

	return true
}

func param(req *http.Request) string {
	return pat.Param(req, "id")
}

func page(req *http.Request) (int, int) {
	q := req.URL.Query()
	start, _ := strconv.Atoi(q.Get("start"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return start, size
}

func exchangeCriteria(req *http.Request) *datastore.ExchangeCriteria {
	q := req.URL.Query()
	start, size := page(req)
	return &datastore.ExchangeCriteria{
		ConnectionID: q.Get("connection_id"),
		State:        q.Get("state"),
		Role:         q.Get("role"),
		Start:        start,
		PageSize:     size,
	}
}
