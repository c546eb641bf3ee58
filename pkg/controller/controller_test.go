/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"context"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/framework"
)

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func TestNew(t *testing.T) {
	_, err := New(nil, ok())
	require.Error(t, err)

	_, err = New(&framework.Endpoint{Host: "0.0.0.0"}, ok())
	require.Error(t, err)

	r, err := New(&framework.Endpoint{Host: "0.0.0.0", Port: 7779}, ok())
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7779", r.addr)
}

func TestTokenAuth(t *testing.T) {
	h := TokenAuth("secret")(ok())

	tests := []struct {
		name   string
		key    string
		status int
	}{
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong", key: "guess", status: http.StatusUnauthorized},
		{name: "right", key: "secret", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/connections", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeaderName, tt.key)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCorsHandler(t *testing.T) {
	h := CorsHandler()(ok())

	req := httptest.NewRequest(http.MethodOptions, "/connections", nil)
	req.Header.Set("Origin", "http://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", APIKeyHeaderName)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, "http://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRunner_Serve(t *testing.T) {
	t.Run("serves until cancelled", func(t *testing.T) {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		stopped := make(chan struct{})
		r, err := New(&framework.Endpoint{Host: "127.0.0.1", Port: 1}, ok(), WithTask(func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		}))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			done <- r.Serve(ctx, lis)
		}()

		resp, err := http.Get(fmt.Sprintf("http://%s/", lis.Addr()))
		require.NoError(t, err)
		body, err := ioutil.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, "ok", string(body))

		cancel()
		require.NoError(t, <-done)
		<-stopped
	})

	t.Run("task failure stops the server", func(t *testing.T) {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		r, err := New(&framework.Endpoint{Host: "127.0.0.1", Port: 1}, ok(), WithTask(func(context.Context) error {
			return errors.New("broker gone")
		}))
		require.NoError(t, err)

		err = r.Serve(context.Background(), lis)
		require.EqualError(t, err, "broker gone")
	})
}
