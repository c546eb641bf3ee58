/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/locker"
	"github.com/scoir/credex/pkg/util"
)

const (
	ConnectionC           = "connections"
	CredentialExchangeC   = "credential_exchanges"
	PresentationExchangeC = "presentation_exchanges"
	CredentialC           = "credentials"
	KeyC                  = "keys"
	RevocationIndexC      = "revocation_indexes"
	WebhookC              = "webhooks"
)

type Config struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
	// ConnectTimeout bounds the initial connection retries.
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
}

// Provider represents a Mongo DB implementation of the datastore.Provider interface
type Provider struct {
	db     *mongo.Database
	stores map[string]*mongoDBStore
	sync.RWMutex
}

// NewProvider connects to mongo, retrying with exponential backoff until ConnectTimeout elapses.
func NewProvider(config *Config) (*Provider, error) {
	if config == nil {
		return nil, errors.New("config missing")
	}

	tM := reflect.TypeOf(bson.M{})
	reg := bson.NewRegistryBuilder().RegisterTypeMapEntry(bsontype.EmbeddedDocument, tM).Build()
	clientOpts := options.Client().SetRegistry(reg).ApplyURI(config.URL)

	mongoClient, err := mongo.NewClient(clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "error creating mongo client")
	}

	err = mongoClient.Connect(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to mongo")
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = config.ConnectTimeout
	if bo.MaxElapsedTime == 0 {
		bo.MaxElapsedTime = 30 * time.Second
	}

	err = backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return mongoClient.Ping(ctx, readpref.Primary())
	}, bo, util.Logger)
	if err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, errors.Wrap(err, "unable to reach mongo")
	}

	p := &Provider{
		db:     mongoClient.Database(config.Database),
		stores: map[string]*mongoDBStore{},
	}

	return p, nil
}

// OpenStore opens the collections for the given name space, creating their indexes on first use.
func (p *Provider) OpenStore(name string) (datastore.Store, error) {
	p.Lock()
	defer p.Unlock()

	if name == "" {
		return nil, errors.New("store name is required")
	}

	if store, ok := p.stores[name]; ok {
		return store, nil
	}

	store := &mongoDBStore{
		db:     p.db,
		prefix: name + "_",
		locks:  locker.NewKeyed(),
	}

	if err := store.ensureIndexes(); err != nil {
		return nil, err
	}

	p.stores[name] = store

	return store, nil
}

// Close disconnects from mongo.
func (p *Provider) Close() error {
	p.Lock()
	defer p.Unlock()

	p.stores = make(map[string]*mongoDBStore)

	return p.db.Client().Disconnect(context.Background())
}

func (r *mongoDBStore) ensureIndexes() error {
	unique := func(keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d, Options: options.Index().SetUnique(true)}
	}
	plain := func(key string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: key, Value: 1}}}
	}

	indexes := map[string][]mongo.IndexModel{
		ConnectionC:           {unique("connection_id"), plain("invitation_id"), plain("thread_id"), plain("their_did")},
		CredentialExchangeC:   {unique("exchange_id"), plain("connection_id"), plain("thread_id")},
		PresentationExchangeC: {unique("exchange_id"), plain("connection_id"), plain("thread_id")},
		CredentialC:           {unique("credential_id")},
		KeyC:                  {unique("id")},
		WebhookC:              {unique("type", "url")},
	}

	ctx := context.Background()
	for name, models := range indexes {
		_, err := r.c(name).Indexes().CreateMany(ctx, models)
		if err != nil {
			return errors.Wrapf(err, "unable to create indexes for %s", name)
		}
	}

	return nil
}
