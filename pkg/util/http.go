/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package util

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// WriteJSON marshals v and writes it with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	d, err := json.Marshal(v)
	if err != nil {
		WriteError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(d)
}

func WriteError(w http.ResponseWriter, msg string) {
	WriteStatusError(w, http.StatusInternalServerError, msg)
}

func WriteErrorf(w http.ResponseWriter, msg string, args ...interface{}) {
	WriteStatusError(w, http.StatusInternalServerError, fmt.Sprintf(msg, args...))
}

// WriteStatusError writes msg as a JSON error body with the given status.
func WriteStatusError(w http.ResponseWriter, status int, msg string) {
	d, _ := json.Marshal(errorResponse{Error: msg})

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(d)
}
