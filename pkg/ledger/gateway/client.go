/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package gateway talks to a ledger through a REST gateway in front of the pool.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/ledger"
)

const TokenHeader = "X-API-Key"

type Client struct {
	base  string
	token string
	http  *http.Client
}

type Option func(c *Client)

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type idResponse struct {
	ID string `json:"id"`
}

type revokeRequest struct {
	Indexes []int64 `json:"indexes"`
}

func (r *Client) ResolveDID(ctx context.Context, did string) (*ledger.ServiceEndpoint, error) {
	out := &ledger.ServiceEndpoint{}
	err := r.get(ctx, "/did/"+url.PathEscape(did), nil, out)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, errors.Wrap(ledger.ErrUnresolvableDID, did)
	}

	return out, err
}

func (r *Client) ReadSchema(ctx context.Context, id string) (*ledger.Schema, error) {
	out := &ledger.Schema{}
	err := r.get(ctx, "/schema/"+url.PathEscape(id), nil, out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Client) ReadCredDef(ctx context.Context, id string) (*ledger.CredentialDefinition, error) {
	out := &ledger.CredentialDefinition{}
	err := r.get(ctx, "/cred_def/"+url.PathEscape(id), nil, out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Client) ReadRevocationDelta(ctx context.Context, registryID string, index, from, to int64) (*ledger.RevocationStatus, error) {
	q := url.Values{}
	q.Set("index", strconv.FormatInt(index, 10))
	q.Set("from", strconv.FormatInt(from, 10))
	q.Set("to", strconv.FormatInt(to, 10))

	out := &ledger.RevocationStatus{}
	err := r.get(ctx, "/rev_reg/"+url.PathEscape(registryID)+"/delta", q, out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Client) WriteDID(ctx context.Context, ep *ledger.ServiceEndpoint) error {
	return r.post(ctx, "/did", ep, nil)
}

func (r *Client) WriteSchema(ctx context.Context, s *ledger.Schema) (string, error) {
	out := &idResponse{}
	err := r.post(ctx, "/schema", s, out)
	return out.ID, err
}

func (r *Client) WriteCredDef(ctx context.Context, cd *ledger.CredentialDefinition) (string, error) {
	out := &idResponse{}
	err := r.post(ctx, "/cred_def", cd, out)
	return out.ID, err
}

func (r *Client) WriteRevocationRegistry(ctx context.Context, reg *ledger.RevocationRegistry) (string, error) {
	out := &idResponse{}
	err := r.post(ctx, "/rev_reg", reg, out)
	return out.ID, err
}

func (r *Client) WriteRevocation(ctx context.Context, registryID string, indexes ...int64) error {
	return r.post(ctx, "/rev_reg/"+url.PathEscape(registryID)+"/revoke", &revokeRequest{Indexes: indexes}, nil)
}

func (r *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := r.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "unable to build ledger request")
	}

	return r.do(req, out)
}

func (r *Client) post(ctx context.Context, path string, body, out interface{}) error {
	d, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "unable to marshal ledger request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+path, bytes.NewReader(d))
	if err != nil {
		return errors.Wrap(err, "unable to build ledger request")
	}
	req.Header.Set("Content-Type", "application/json")

	return r.do(req, out)
}

func (r *Client) do(req *http.Request, out interface{}) error {
	if r.token != "" {
		req.Header.Set(TokenHeader, r.token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "ledger gateway request %s failed", req.URL.Path)
	}
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "unable to read ledger response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrap(ledger.ErrNotFound, req.URL.Path)
	case resp.StatusCode >= 300:
		return errors.Errorf("ledger gateway returned (%d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if out == nil || len(b) == 0 {
		return nil
	}

	err = json.Unmarshal(b, out)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("unable to decode ledger response for %s", req.URL.Path))
	}

	return nil
}
