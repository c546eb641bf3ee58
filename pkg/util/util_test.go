/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package util

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("default level", func(t *testing.T) {
		l, err := NewLogger("")
		require.NoError(t, err)
		require.NotNil(t, l)
	})

	t.Run("dev", func(t *testing.T) {
		l, err := NewLogger("dev")
		require.NoError(t, err)
		require.NotNil(t, l)
	})

	t.Run("bad level", func(t *testing.T) {
		l, err := NewLogger("loud")
		require.Error(t, err)
		require.Nil(t, l)
	})
}

func TestWriteStatusError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteStatusError(w, http.StatusConflict, "nope")

	require.Equal(t, http.StatusConflict, w.Code)
	require.JSONEq(t, `{"error":"nope"}`, w.Body.String())
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"id": "123"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"id":"123"}`, w.Body.String())
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
}
