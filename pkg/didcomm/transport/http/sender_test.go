/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSender_Send(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, ContentType, r.Header.Get("Content-Type"))
		body, _ = ioutil.ReadAll(r.Body)
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSender(time.Second)

	err := s.Send(context.Background(), srv.URL+"/inbound", []byte(`{"@id":"1"}`))
	require.NoError(t, err)
	require.Equal(t, `{"@id":"1"}`, string(body))

	err = s.Send(context.Background(), srv.URL+"/fail", []byte(`{}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")

	err = s.Send(context.Background(), "http://127.0.0.1:1/inbound", []byte(`{}`))
	require.Error(t, err)
}
