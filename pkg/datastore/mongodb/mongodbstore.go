/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/locker"
)

type mongoDBStore struct {
	db     *mongo.Database
	prefix string
	locks  *locker.Keyed
}

func (r *mongoDBStore) c(name string) *mongo.Collection {
	return r.db.Collection(r.prefix + name)
}

func isDuplicate(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}

func stamp(s *datastore.Status) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// Lock is process local. Writers in other processes are still caught by the version check.
func (r *mongoDBStore) Lock(ctx context.Context, id string) (func(), error) {
	unlock, err := r.locks.LockContext(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to lock %s", id)
	}
	return unlock, nil
}

func (r *mongoDBStore) insert(coll string, doc interface{}, what string) error {
	_, err := r.c(coll).InsertOne(context.Background(), doc)
	if isDuplicate(err) {
		return errors.Wrapf(datastore.ErrDuplicate, "unable to insert %s", what)
	}
	if err != nil {
		return errors.Wrapf(err, "unable to insert %s", what)
	}
	return nil
}

func (r *mongoDBStore) findOne(coll string, filter bson.M, out interface{}, what string) error {
	err := r.c(coll).FindOne(context.Background(), filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Wrapf(datastore.ErrNotFound, "unable to load %s", what)
	}
	if err != nil {
		return errors.Wrapf(err, "unable to load %s", what)
	}
	return nil
}

// replace writes doc only if the stored version is still version.
func (r *mongoDBStore) replace(coll, key, id string, version int64, doc interface{}, what string) error {
	ctx := context.Background()
	res, err := r.c(coll).ReplaceOne(ctx, bson.M{key: id, "version": version}, doc)
	if err != nil {
		return errors.Wrapf(err, "unable to update %s", what)
	}

	if res.MatchedCount == 0 {
		n, err := r.c(coll).CountDocuments(ctx, bson.M{key: id})
		if err != nil {
			return errors.Wrapf(err, "unable to update %s", what)
		}
		if n == 0 {
			return errors.Wrapf(datastore.ErrNotFound, "unable to update %s", what)
		}
		return errors.Wrapf(datastore.ErrConflict, "unable to update %s", what)
	}

	return nil
}

func (r *mongoDBStore) remove(coll string, filter bson.M, what string) error {
	res, err := r.c(coll).DeleteOne(context.Background(), filter)
	if err != nil {
		return errors.Wrapf(err, "unable to delete %s", what)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(datastore.ErrNotFound, "unable to delete %s", what)
	}
	return nil
}

// list decodes one page of matches into out and returns the total match count.
func (r *mongoDBStore) list(coll string, filter bson.M, start, size int, out interface{}, what string) (int, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetSkip(int64(start))
	if size > 0 {
		opts = opts.SetLimit(int64(size))
	}

	ctx := context.Background()
	count, err := r.c(coll).CountDocuments(ctx, filter)
	if err != nil {
		return 0, errors.Wrapf(err, "error trying to count %s", what)
	}

	results, err := r.c(coll).Find(ctx, filter, opts)
	if err != nil {
		return 0, errors.Wrapf(err, "error trying to find %s", what)
	}

	err = results.All(ctx, out)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to decode %s", what)
	}

	return int(count), nil
}

func (r *mongoDBStore) NextRevocationIndex(registryID string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	out := struct {
		Next int64 `bson:"next"`
	}{}

	err := r.c(RevocationIndexC).FindOneAndUpdate(context.Background(),
		bson.M{"_id": registryID}, bson.M{"$inc": bson.M{"next": 1}}, opts).Decode(&out)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to allocate revocation index in %s", registryID)
	}

	return out.Next, nil
}

func (r *mongoDBStore) InsertKey(k *datastore.KeyPair) error {
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now().UTC()
	}
	return r.insert(KeyC, k, "key")
}

func (r *mongoDBStore) GetKey(id string) (*datastore.KeyPair, error) {
	k := &datastore.KeyPair{}
	if err := r.findOne(KeyC, bson.M{"id": id}, k, "key"); err != nil {
		return nil, err
	}
	return k, nil
}

func (r *mongoDBStore) InsertWebhook(hook *datastore.Webhook) error {
	filter := bson.M{"type": hook.Type, "url": hook.URL}
	_, err := r.c(WebhookC).UpdateOne(context.Background(), filter, bson.M{"$set": hook}, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "unable to insert webhook")
	}
	return nil
}

func (r *mongoDBStore) ListWebhooks(typ string) ([]*datastore.Webhook, error) {
	filter := bson.M{}
	if typ != "" {
		filter["type"] = typ
	}

	ctx := context.Background()
	results, err := r.c(WebhookC).Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "error trying to find webhooks")
	}

	out := []*datastore.Webhook{}
	err = results.All(ctx, &out)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode webhooks")
	}

	return out, nil
}

func (r *mongoDBStore) DeleteWebhook(typ, url string) error {
	return r.remove(WebhookC, bson.M{"type": typ, "url": url}, "webhook")
}
