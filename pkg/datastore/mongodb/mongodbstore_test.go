/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/schema"
)

const (
	mongoStoreDBURL = "mongodb://localhost:27017"
)

// For these unit tests to run, you must ensure you have a Mongo DB instance running at the URL specified in
// mongoStoreDBURL.
// To run the tests manually, start an instance by running the following command in the terminal
// docker run -p 27017:27017 --name MongoStoreTest -d mongo:4.2.8
// delete using
//   docker kill MongoStoreTest
//   docker rm MongoStoreTest
func TestMain(m *testing.M) {
	err := waitForMongoDBToStart()
	if err != nil {
		fmt.Printf(err.Error() +
			". Make sure you start a mongo instance using" +
			" 'docker run -p 27017:27017 mongo:4.2.8' before running the unit tests")
		os.Exit(0)
	}

	os.Exit(m.Run())
}

func waitForMongoDBToStart() error {
	client, err := mongo.NewClient(options.Client().ApplyURI(mongoStoreDBURL))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	return client.Ping(ctx, readpref.Primary())
}

func setup(t *testing.T) (datastore.Store, func()) {
	p, err := NewProvider(&Config{URL: mongoStoreDBURL, Database: "credex_test", ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)

	name := "t" + uuid.New().String()[0:8]
	s, err := p.OpenStore(name)
	require.NoError(t, err)

	return s, func() {
		ms := s.(*mongoDBStore)
		for _, c := range []string{ConnectionC, CredentialExchangeC, PresentationExchangeC, CredentialC, KeyC,
			RevocationIndexC, WebhookC} {
			_ = ms.c(c).Drop(context.Background())
		}
		_ = p.Close()
	}
}

func TestConnectionRoundTrip(t *testing.T) {
	s, cleanup := setup(t)
	defer cleanup()

	conn := &datastore.Connection{
		ConnectionID: "c1",
		Role:         datastore.RoleInviter,
		InvitationID: "inv1",
		Invitation:   []byte(`{"@id":"inv1"}`),
		Status:       datastore.Status{State: datastore.ConnectionInvited},
	}
	require.NoError(t, s.InsertConnection(conn))
	require.True(t, errors.Is(s.InsertConnection(conn), datastore.ErrDuplicate))

	got, err := s.GetConnectionByInvitation("inv1")
	require.NoError(t, err)
	require.JSONEq(t, `{"@id":"inv1"}`, string(got.Invitation))

	got.State = datastore.ConnectionRequested
	require.NoError(t, s.UpdateConnection(got))

	got.Version = 1
	require.True(t, errors.Is(s.UpdateConnection(got), datastore.ErrConflict))
	require.EqualValues(t, 1, got.Version)

	_, err = s.GetConnection("nope")
	require.True(t, errors.Is(err, datastore.ErrNotFound))

	list, err := s.ListConnections(nil)
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
}

func TestExchangeRoundTrip(t *testing.T) {
	s, cleanup := setup(t)
	defer cleanup()

	idx := int64(3)
	ex := &datastore.CredentialExchange{
		ExchangeID:      "x1",
		ConnectionID:    "c1",
		ThreadID:        "t1",
		Role:            datastore.RoleIssuer,
		Attributes:      map[string]string{"degree": "BSc"},
		Offer:           &schema.CredentialOffer{SchemaID: "s1", CredDefID: "cd1", Nonce: "42"},
		RevocationIndex: &idx,
		Status:          datastore.Status{State: datastore.CredentialOffered},
	}
	require.NoError(t, s.InsertCredentialExchange(ex))
	require.NoError(t, s.InsertConnection(&datastore.Connection{ConnectionID: "c1"}))
	require.True(t, errors.Is(s.DeleteConnection("c1"), datastore.ErrReferenced))

	got, err := s.GetCredentialExchangeByThread("c1", "t1")
	require.NoError(t, err)
	require.Equal(t, "BSc", got.Attributes["degree"])
	require.EqualValues(t, 3, *got.RevocationIndex)

	list, err := s.ListCredentialExchanges(&datastore.ExchangeCriteria{State: datastore.CredentialOffered})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)

	i, err := s.NextRevocationIndex("reg1")
	require.NoError(t, err)
	require.EqualValues(t, 1, i)
	i, err = s.NextRevocationIndex("reg1")
	require.NoError(t, err)
	require.EqualValues(t, 2, i)
}
