/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package datastore

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("record was modified concurrently")
	ErrDuplicate  = errors.New("record already exists")
	ErrReferenced = errors.New("record is referenced by an exchange")
)

// Provider storage provider interface
type Provider interface {
	// OpenStore opens a store with given name space and returns the handle
	OpenStore(name string) (Store, error)

	// Close closes all stores created under this store provider
	Close() error
}

// Store is the single writer of record for connections, exchanges and wallet records.
//
// Every Update* call is optimistic: the record's Version must match the stored version or ErrConflict
// is returned, and on success Version is incremented. Lock serializes read-validate-write cycles on a
// single id within the process.
//go:generate mockery -name=Store
type Store interface {
	Lock(ctx context.Context, id string) (func(), error)

	InsertConnection(c *Connection) error
	GetConnection(id string) (*Connection, error)
	GetConnectionByInvitation(invitationID string) (*Connection, error)
	GetConnectionByThread(threadID string) (*Connection, error)
	GetConnectionByTheirDID(did string) (*Connection, error)
	ListConnections(c *ConnectionCriteria) (*ConnectionList, error)
	UpdateConnection(c *Connection) error
	DeleteConnection(id string) error

	InsertCredentialExchange(e *CredentialExchange) error
	GetCredentialExchange(id string) (*CredentialExchange, error)
	GetCredentialExchangeByThread(connectionID, threadID string) (*CredentialExchange, error)
	ListCredentialExchanges(c *ExchangeCriteria) (*CredentialExchangeList, error)
	UpdateCredentialExchange(e *CredentialExchange) error
	DeleteCredentialExchange(id string) error

	InsertPresentationExchange(e *PresentationExchange) error
	GetPresentationExchange(id string) (*PresentationExchange, error)
	GetPresentationExchangeByThread(connectionID, threadID string) (*PresentationExchange, error)
	ListPresentationExchanges(c *ExchangeCriteria) (*PresentationExchangeList, error)
	UpdatePresentationExchange(e *PresentationExchange) error
	DeletePresentationExchange(id string) error

	InsertCredential(c *HeldCredential) error
	GetCredential(id string) (*HeldCredential, error)
	ListCredentials(c *CredentialCriteria) (*CredentialList, error)
	UpdateCredential(c *HeldCredential) error
	DeleteCredential(id string) error

	InsertKey(k *KeyPair) error
	GetKey(id string) (*KeyPair, error)

	// NextRevocationIndex atomically allocates the next index (starting at 1) in a revocation registry.
	NextRevocationIndex(registryID string) (int64, error)

	InsertWebhook(hook *Webhook) error
	ListWebhooks(typ string) ([]*Webhook, error)
	DeleteWebhook(typ, url string) error
}
