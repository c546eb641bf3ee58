/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"time"

	"github.com/bluele/gcache"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = time.Hour
)

// CachingReader memoizes schemas and credential definitions, which are immutable once written.
// DID resolution and revocation state always go to the ledger.
type CachingReader struct {
	Reader
	schemas  gcache.Cache
	credDefs gcache.Cache
}

// NewCachingReader wraps r. A zero size or ttl selects the defaults.
func NewCachingReader(r Reader, size int, ttl time.Duration) *CachingReader {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &CachingReader{
		Reader:   r,
		schemas:  gcache.New(size).LRU().Expiration(ttl).Build(),
		credDefs: gcache.New(size).LRU().Expiration(ttl).Build(),
	}
}

func (r *CachingReader) ReadSchema(ctx context.Context, id string) (*Schema, error) {
	if v, err := r.schemas.Get(id); err == nil {
		return v.(*Schema), nil
	}

	s, err := r.Reader.ReadSchema(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = r.schemas.Set(id, s)
	return s, nil
}

func (r *CachingReader) ReadCredDef(ctx context.Context, id string) (*CredentialDefinition, error) {
	if v, err := r.credDefs.Get(id); err == nil {
		return v.(*CredentialDefinition), nil
	}

	cd, err := r.Reader.ReadCredDef(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = r.credDefs.Set(id, cd)
	return cd, nil
}

// CachingClient pairs a CachingReader with the writer of the same client.
type CachingClient struct {
	*CachingReader
	Writer
}

func NewCachingClient(c Client, size int, ttl time.Duration) *CachingClient {
	return &CachingClient{
		CachingReader: NewCachingReader(c, size, ttl),
		Writer:        c,
	}
}
