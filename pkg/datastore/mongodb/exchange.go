/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/scoir/credex/pkg/datastore"
)

func exchangeFilter(c *datastore.ExchangeCriteria) bson.M {
	bc := bson.M{}
	if c.ConnectionID != "" {
		bc["connection_id"] = c.ConnectionID
	}
	if c.State != "" {
		bc["state"] = c.State
	}
	if c.Role != "" {
		bc["role"] = c.Role
	}
	return bc
}

func (r *mongoDBStore) InsertCredentialExchange(e *datastore.CredentialExchange) error {
	stamp(&e.Status)
	e.Version = 1
	return r.insert(CredentialExchangeC, e, "credential exchange")
}

func (r *mongoDBStore) GetCredentialExchange(id string) (*datastore.CredentialExchange, error) {
	e := &datastore.CredentialExchange{}
	if err := r.findOne(CredentialExchangeC, bson.M{"exchange_id": id}, e, "credential exchange"); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *mongoDBStore) GetCredentialExchangeByThread(connectionID, threadID string) (*datastore.CredentialExchange, error) {
	e := &datastore.CredentialExchange{}
	filter := bson.M{"connection_id": connectionID, "thread_id": threadID}
	if err := r.findOne(CredentialExchangeC, filter, e, "credential exchange"); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *mongoDBStore) ListCredentialExchanges(c *datastore.ExchangeCriteria) (*datastore.CredentialExchangeList, error) {
	if c == nil {
		c = &datastore.ExchangeCriteria{}
	}

	out := &datastore.CredentialExchangeList{Exchanges: []*datastore.CredentialExchange{}}
	count, err := r.list(CredentialExchangeC, exchangeFilter(c), c.Start, c.PageSize, &out.Exchanges, "credential exchanges")
	if err != nil {
		return nil, err
	}
	out.Count = count

	return out, nil
}

func (r *mongoDBStore) UpdateCredentialExchange(e *datastore.CredentialExchange) error {
	version := e.Version
	e.Version++
	stamp(&e.Status)

	err := r.replace(CredentialExchangeC, "exchange_id", e.ExchangeID, version, e, "credential exchange")
	if err != nil {
		e.Version = version
		return err
	}

	return nil
}

func (r *mongoDBStore) DeleteCredentialExchange(id string) error {
	return r.remove(CredentialExchangeC, bson.M{"exchange_id": id}, "credential exchange")
}

func (r *mongoDBStore) InsertPresentationExchange(e *datastore.PresentationExchange) error {
	stamp(&e.Status)
	e.Version = 1
	return r.insert(PresentationExchangeC, e, "presentation exchange")
}

func (r *mongoDBStore) GetPresentationExchange(id string) (*datastore.PresentationExchange, error) {
	e := &datastore.PresentationExchange{}
	if err := r.findOne(PresentationExchangeC, bson.M{"exchange_id": id}, e, "presentation exchange"); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *mongoDBStore) GetPresentationExchangeByThread(connectionID, threadID string) (*datastore.PresentationExchange, error) {
	e := &datastore.PresentationExchange{}
	filter := bson.M{"connection_id": connectionID, "thread_id": threadID}
	if err := r.findOne(PresentationExchangeC, filter, e, "presentation exchange"); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *mongoDBStore) ListPresentationExchanges(c *datastore.ExchangeCriteria) (*datastore.PresentationExchangeList, error) {
	if c == nil {
		c = &datastore.ExchangeCriteria{}
	}

	out := &datastore.PresentationExchangeList{Exchanges: []*datastore.PresentationExchange{}}
	count, err := r.list(PresentationExchangeC, exchangeFilter(c), c.Start, c.PageSize, &out.Exchanges, "presentation exchanges")
	if err != nil {
		return nil, err
	}
	out.Count = count

	return out, nil
}

func (r *mongoDBStore) UpdatePresentationExchange(e *datastore.PresentationExchange) error {
	version := e.Version
	e.Version++
	stamp(&e.Status)

	err := r.replace(PresentationExchangeC, "exchange_id", e.ExchangeID, version, e, "presentation exchange")
	if err != nil {
		e.Version = version
		return err
	}

	return nil
}

func (r *mongoDBStore) DeletePresentationExchange(id string) error {
	return r.remove(PresentationExchangeC, bson.M{"exchange_id": id}, "presentation exchange")
}

func (r *mongoDBStore) InsertCredential(c *datastore.HeldCredential) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Version = 1
	return r.insert(CredentialC, c, "credential")
}

func (r *mongoDBStore) GetCredential(id string) (*datastore.HeldCredential, error) {
	c := &datastore.HeldCredential{}
	if err := r.findOne(CredentialC, bson.M{"credential_id": id}, c, "credential"); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *mongoDBStore) ListCredentials(c *datastore.CredentialCriteria) (*datastore.CredentialList, error) {
	if c == nil {
		c = &datastore.CredentialCriteria{}
	}

	bc := bson.M{}
	if c.CredDefID != "" {
		bc["cred_def_id"] = c.CredDefID
	}
	if c.SchemaID != "" {
		bc["schema_id"] = c.SchemaID
	}
	if !c.IncludeRevoked {
		bc["revoked"] = false
	}

	out := &datastore.CredentialList{Credentials: []*datastore.HeldCredential{}}
	count, err := r.list(CredentialC, bc, c.Start, c.PageSize, &out.Credentials, "credentials")
	if err != nil {
		return nil, err
	}
	out.Count = count

	return out, nil
}

func (r *mongoDBStore) UpdateCredential(c *datastore.HeldCredential) error {
	version := c.Version
	c.Version++

	err := r.replace(CredentialC, "credential_id", c.CredentialID, version, c, "credential")
	if err != nil {
		c.Version = version
		return err
	}

	return nil
}

func (r *mongoDBStore) DeleteCredential(id string) error {
	return r.remove(CredentialC, bson.M{"credential_id": id}, "credential")
}
