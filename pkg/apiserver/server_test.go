/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/agent"
	"github.com/scoir/credex/pkg/controller"
	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/datastore/mem"
	"github.com/scoir/credex/pkg/didcomm/transport"
	httpsender "github.com/scoir/credex/pkg/didcomm/transport/http"
	"github.com/scoir/credex/pkg/exchange"
	"github.com/scoir/credex/pkg/ledger"
	lmem "github.com/scoir/credex/pkg/ledger/mem"
)

const token = "secret"

type node struct {
	agent *agent.Agent
	api   *APIServer
	srv   *httptest.Server
}

// newNode starts an agent whose admin API and inbound endpoint share one test server.
func newNode(t *testing.T, name string, l ledger.Client) *node {
	var h http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.ServeHTTP(w, req)
	}))
	t.Cleanup(srv.Close)

	ds, err := mem.NewProvider().OpenStore(name)
	require.NoError(t, err)

	a, err := agent.New(context.Background(),
		agent.WithName(name),
		agent.WithEndpoint(srv.URL+"/inbound"),
		agent.WithStore(ds),
		agent.WithLedger(l),
		agent.WithMessenger(transport.NewRouter(l, transport.WithSender("http", httpsender.NewSender(5*time.Second)))),
	)
	require.NoError(t, err)

	api := New(a, WithToken(token))
	h = api.Handler()

	return &node{agent: a, api: api, srv: srv}
}

func (n *node) call(t *testing.T, method, path string, body, out interface{}) int {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, n.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set(controller.APIKeyHeaderName, token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (n *node) connection(t *testing.T, id string) *datastore.Connection {
	conn := &datastore.Connection{}
	require.Equal(t, http.StatusOK, n.call(t, http.MethodGet, "/connections/"+id, nil, conn))
	return conn
}

// connect has faber invite alice through the API and waits for both sides to complete.
func connect(t *testing.T, faber, alice *node) (string, string) {
	inv := &InvitationResponse{}
	require.Equal(t, http.StatusOK, faber.call(t, http.MethodPost, "/connections/create-invitation",
		&CreateInvitationRequest{Alias: "alice"}, inv))
	require.NotEmpty(t, inv.InvitationURL)

	conn := &datastore.Connection{}
	require.Equal(t, http.StatusOK, alice.call(t, http.MethodPost, "/connections/receive-invitation",
		&ReceiveInvitationRequest{Invitation: inv.InvitationURL}, conn))

	require.Eventually(t, func() bool {
		return faber.connection(t, inv.ConnectionID).State == datastore.ConnectionComplete &&
			alice.connection(t, conn.ConnectionID).State == datastore.ConnectionComplete
	}, 5*time.Second, 10*time.Millisecond)

	return inv.ConnectionID, conn.ConnectionID
}

func TestHandler_Auth(t *testing.T) {
	n := newNode(t, "faber", lmem.New())

	resp, err := http.Get(n.srv.URL + "/connections")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, http.StatusOK, n.call(t, http.MethodGet, "/connections", nil, &datastore.ConnectionList{}))

	resp, err = http.Post(n.srv.URL+"/inbound", "application/json", bytes.NewBufferString("not a message"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	n.api.Wait()
}

func TestHandler_Errors(t *testing.T) {
	n := newNode(t, "faber", lmem.New())

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{name: "unknown connection", method: http.MethodGet, path: "/connections/nope", status: http.StatusNotFound},
		{name: "unknown exchange", method: http.MethodPost, path: "/issue-credential/records/nope/issue", status: http.StatusNotFound},
		{name: "unknown credential", method: http.MethodDelete, path: "/credentials/nope", status: http.StatusNotFound},
		{name: "bad invitation", method: http.MethodPost, path: "/connections/receive-invitation",
			body: &ReceiveInvitationRequest{Invitation: "garbage"}, status: http.StatusBadRequest},
		{name: "missing invitation", method: http.MethodPost, path: "/connections/receive-invitation",
			body: &ReceiveInvitationRequest{}, status: http.StatusBadRequest},
		{name: "incomplete schema", method: http.MethodPost, path: "/schemas",
			body: &CreateSchemaRequest{Name: "degree"}, status: http.StatusBadRequest},
		{name: "unknown schema", method: http.MethodPost, path: "/credential-definitions",
			body: &CreateCredentialDefinitionRequest{SchemaID: "nope"}, status: http.StatusNotFound},
		{name: "offer without connection", method: http.MethodPost, path: "/issue-credential/send-offer",
			body: &SendOfferRequest{CredDefID: "x"}, status: http.StatusBadRequest},
		{name: "request without proof request", method: http.MethodPost, path: "/present-proof/send-request",
			body: &SendRequestRequest{ConnectionID: "x"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.status, n.call(t, tt.method, tt.path, tt.body, nil))
		})
	}
}

func TestStatusCode(t *testing.T) {
	require.Equal(t, http.StatusNotFound, StatusCode(errors.Wrap(datastore.ErrNotFound, "x")))
	require.Equal(t, http.StatusConflict, StatusCode(exchange.InvalidTransition("credential", "x", "issued")))
	require.Equal(t, http.StatusUnprocessableEntity, StatusCode(exchange.Protocol(exchange.ErrNoMatchingCredential, "x")))
	require.Equal(t, http.StatusBadRequest, StatusCode(exchange.Protocol(exchange.ErrInvalidProofRequest, "x")))
	require.Equal(t, http.StatusServiceUnavailable, StatusCode(exchange.Dependency(exchange.ErrTimeout, "x")))
	require.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("disk full")))
}
