/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/ledger"
	"github.com/scoir/credex/pkg/ledger/mem"
)

func setup(t *testing.T, token string) (*Client, func()) {
	srv := httptest.NewServer(NewServer(mem.New(), token).Handler())
	return New(srv.URL, WithToken(token)), srv.Close
}

func TestClient_RoundTrip(t *testing.T) {
	client, cleanup := setup(t, "secret")
	defer cleanup()
	ctx := context.Background()

	err := client.WriteDID(ctx, &ledger.ServiceEndpoint{DID: "Th7MpTaRZVRYnPiabds81Y", Endpoint: "http://issuer"})
	require.NoError(t, err)

	ep, err := client.ResolveDID(ctx, "did:sov:Th7MpTaRZVRYnPiabds81Y")
	require.NoError(t, err)
	require.Equal(t, "http://issuer", ep.Endpoint)

	schemaID, err := client.WriteSchema(ctx, &ledger.Schema{IssuerDID: "Th7MpTaRZVRYnPiabds81Y", Name: "degree",
		Version: "1.0", AttrNames: []string{"name", "degree"}})
	require.NoError(t, err)
	require.Equal(t, "Th7MpTaRZVRYnPiabds81Y:2:degree:1.0", schemaID)

	s, err := client.ReadSchema(ctx, schemaID)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "degree"}, s.AttrNames)

	credDefID, err := client.WriteCredDef(ctx, &ledger.CredentialDefinition{SchemaID: schemaID,
		IssuerDID: "Th7MpTaRZVRYnPiabds81Y", Tag: "default"})
	require.NoError(t, err)

	regID, err := client.WriteRevocationRegistry(ctx, &ledger.RevocationRegistry{CredDefID: credDefID,
		IssuerDID: "Th7MpTaRZVRYnPiabds81Y", Tag: "1", MaxCredNum: 5})
	require.NoError(t, err)

	cd, err := client.ReadCredDef(ctx, credDefID)
	require.NoError(t, err)
	require.Equal(t, regID, cd.RevocationRegistryID)

	require.NoError(t, client.WriteRevocation(ctx, regID, 2))

	status, err := client.ReadRevocationDelta(ctx, regID, 2, 0, 0)
	require.NoError(t, err)
	require.True(t, status.Revoked)

	status, err = client.ReadRevocationDelta(ctx, regID, 3, 0, 0)
	require.NoError(t, err)
	require.False(t, status.Revoked)
}

func TestClient_Errors(t *testing.T) {
	t.Run("unresolvable DID", func(t *testing.T) {
		client, cleanup := setup(t, "")
		defer cleanup()

		_, err := client.ResolveDID(context.Background(), "did:sov:nobody")
		require.True(t, errors.Is(err, ledger.ErrUnresolvableDID))
	})

	t.Run("not found", func(t *testing.T) {
		client, cleanup := setup(t, "")
		defer cleanup()

		_, err := client.ReadCredDef(context.Background(), "cred_def:degree:1")
		require.True(t, errors.Is(err, ledger.ErrNotFound))
	})

	t.Run("bad token", func(t *testing.T) {
		srv := httptest.NewServer(NewServer(mem.New(), "secret").Handler())
		defer srv.Close()

		_, err := New(srv.URL, WithToken("wrong")).ReadSchema(context.Background(), "s1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "(401)")
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("pool offline"))
		}))
		defer srv.Close()

		_, err := New(srv.URL).ReadSchema(context.Background(), "s1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "pool offline")
	})

	t.Run("cancelled context", func(t *testing.T) {
		client, cleanup := setup(t, "")
		defer cleanup()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.ReadSchema(ctx, "s1")
		require.True(t, errors.Is(err, context.Canceled))
	})
}
