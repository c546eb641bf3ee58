/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/scoir/credex/pkg/datastore"
)

func (r *mongoDBStore) InsertConnection(c *datastore.Connection) error {
	stamp(&c.Status)
	c.Version = 1
	return r.insert(ConnectionC, c, "connection")
}

func (r *mongoDBStore) getConnection(filter bson.M) (*datastore.Connection, error) {
	c := &datastore.Connection{}
	if err := r.findOne(ConnectionC, filter, c, "connection"); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *mongoDBStore) GetConnection(id string) (*datastore.Connection, error) {
	return r.getConnection(bson.M{"connection_id": id})
}

func (r *mongoDBStore) GetConnectionByInvitation(invitationID string) (*datastore.Connection, error) {
	return r.getConnection(bson.M{"invitation_id": invitationID})
}

func (r *mongoDBStore) GetConnectionByThread(threadID string) (*datastore.Connection, error) {
	return r.getConnection(bson.M{"thread_id": threadID})
}

func (r *mongoDBStore) GetConnectionByTheirDID(did string) (*datastore.Connection, error) {
	return r.getConnection(bson.M{"their_did": did, "archived": false})
}

func (r *mongoDBStore) ListConnections(c *datastore.ConnectionCriteria) (*datastore.ConnectionList, error) {
	if c == nil {
		c = &datastore.ConnectionCriteria{}
	}

	bc := bson.M{}
	if c.State != "" {
		bc["state"] = c.State
	}
	if c.Role != "" {
		bc["role"] = c.Role
	}
	if c.Alias != "" {
		bc["alias"] = c.Alias
	}
	if !c.IncludeArchived {
		bc["archived"] = false
	}

	out := &datastore.ConnectionList{Connections: []*datastore.Connection{}}
	count, err := r.list(ConnectionC, bc, c.Start, c.PageSize, &out.Connections, "connections")
	if err != nil {
		return nil, err
	}
	out.Count = count

	return out, nil
}

func (r *mongoDBStore) UpdateConnection(c *datastore.Connection) error {
	version := c.Version
	c.Version++
	stamp(&c.Status)

	err := r.replace(ConnectionC, "connection_id", c.ConnectionID, version, c, "connection")
	if err != nil {
		c.Version = version
		return err
	}

	return nil
}

func (r *mongoDBStore) DeleteConnection(id string) error {
	ctx := context.Background()
	for _, coll := range []string{CredentialExchangeC, PresentationExchangeC} {
		n, err := r.c(coll).CountDocuments(ctx, bson.M{"connection_id": id})
		if err != nil {
			return errors.Wrap(err, "unable to check connection references")
		}
		if n > 0 {
			return errors.Wrapf(datastore.ErrReferenced, "connection %s", id)
		}
	}

	return r.remove(ConnectionC, bson.M{"connection_id": id}, "connection")
}
