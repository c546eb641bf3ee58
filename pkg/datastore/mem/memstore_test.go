/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/schema"
)

func openStore(t *testing.T) datastore.Store {
	p := NewProvider()
	s, err := p.OpenStore("test")
	require.NoError(t, err)
	return s
}

func TestProvider(t *testing.T) {
	p := NewProvider()

	_, err := p.OpenStore("")
	require.Error(t, err)

	a, err := p.OpenStore("alice")
	require.NoError(t, err)
	again, err := p.OpenStore("alice")
	require.NoError(t, err)
	require.Same(t, a, again)

	b, err := p.OpenStore("bob")
	require.NoError(t, err)

	require.NoError(t, a.InsertConnection(&datastore.Connection{ConnectionID: "c1"}))
	_, err = b.GetConnection("c1")
	require.True(t, errors.Is(err, datastore.ErrNotFound))

	require.NoError(t, p.Close())
}

func TestConnections(t *testing.T) {
	s := openStore(t)

	conn := &datastore.Connection{
		ConnectionID: "c1",
		Role:         datastore.RoleInviter,
		InvitationID: "inv1",
		Alias:        "faber",
		Status:       datastore.Status{State: datastore.ConnectionInvited},
	}
	require.NoError(t, s.InsertConnection(conn))
	require.EqualValues(t, 1, conn.Version)
	require.False(t, conn.CreatedAt.IsZero())

	err := s.InsertConnection(conn)
	require.True(t, errors.Is(err, datastore.ErrDuplicate))

	byInv, err := s.GetConnectionByInvitation("inv1")
	require.NoError(t, err)
	require.Equal(t, "c1", byInv.ConnectionID)

	byInv.TheirDID = "did:alice"
	byInv.ThreadID = "th1"
	byInv.State = datastore.ConnectionRequested
	require.NoError(t, s.UpdateConnection(byInv))
	require.EqualValues(t, 2, byInv.Version)

	t.Run("stale update conflicts", func(t *testing.T) {
		stale, err := s.GetConnection("c1")
		require.NoError(t, err)
		stale.Version = 1
		err = s.UpdateConnection(stale)
		require.True(t, errors.Is(err, datastore.ErrConflict))
	})

	t.Run("lookups", func(t *testing.T) {
		c, err := s.GetConnectionByThread("th1")
		require.NoError(t, err)
		require.Equal(t, datastore.ConnectionRequested, c.State)

		c, err = s.GetConnectionByTheirDID("did:alice")
		require.NoError(t, err)
		require.Equal(t, "c1", c.ConnectionID)

		_, err = s.GetConnection("missing")
		require.True(t, errors.Is(err, datastore.ErrNotFound))
	})

	t.Run("returned records are copies", func(t *testing.T) {
		c, err := s.GetConnection("c1")
		require.NoError(t, err)
		c.Alias = "changed"

		c, err = s.GetConnection("c1")
		require.NoError(t, err)
		require.Equal(t, "faber", c.Alias)
	})

	t.Run("list filters archived", func(t *testing.T) {
		require.NoError(t, s.InsertConnection(&datastore.Connection{ConnectionID: "c2", Archived: true}))

		list, err := s.ListConnections(nil)
		require.NoError(t, err)
		require.Equal(t, 1, list.Count)

		list, err = s.ListConnections(&datastore.ConnectionCriteria{IncludeArchived: true, PageSize: 1})
		require.NoError(t, err)
		require.Equal(t, 2, list.Count)
		require.Len(t, list.Connections, 1)
	})

	t.Run("delete refused while referenced", func(t *testing.T) {
		require.NoError(t, s.InsertCredentialExchange(&datastore.CredentialExchange{ExchangeID: "x1", ConnectionID: "c1"}))
		err := s.DeleteConnection("c1")
		require.True(t, errors.Is(err, datastore.ErrReferenced))

		require.NoError(t, s.DeleteCredentialExchange("x1"))
		require.NoError(t, s.DeleteConnection("c1"))
	})
}

func TestExchanges(t *testing.T) {
	s := openStore(t)

	ex := &datastore.CredentialExchange{
		ExchangeID:   "x1",
		ConnectionID: "c1",
		ThreadID:     "t1",
		Role:         datastore.RoleIssuer,
		Attributes:   map[string]string{"degree": "BSc"},
		Offer:        &schema.CredentialOffer{SchemaID: "s1", CredDefID: "cd1", Nonce: "123"},
		Status:       datastore.Status{State: datastore.CredentialOffered},
	}
	require.NoError(t, s.InsertCredentialExchange(ex))
	require.NoError(t, s.InsertCredentialExchange(&datastore.CredentialExchange{
		ExchangeID: "x2", ConnectionID: "c2", ThreadID: "t1", Role: datastore.RoleHolder,
	}))

	got, err := s.GetCredentialExchangeByThread("c1", "t1")
	require.NoError(t, err)
	require.Equal(t, "x1", got.ExchangeID)
	require.Equal(t, "123", got.Offer.Nonce)

	_, err = s.GetCredentialExchangeByThread("c3", "t1")
	require.True(t, errors.Is(err, datastore.ErrNotFound))

	list, err := s.ListCredentialExchanges(&datastore.ExchangeCriteria{Role: datastore.RoleHolder})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	require.Equal(t, "x2", list.Exchanges[0].ExchangeID)

	verified := true
	pex := &datastore.PresentationExchange{
		ExchangeID:   "p1",
		ConnectionID: "c1",
		ThreadID:     "t9",
		ProofRequest: &schema.ProofRequest{Name: "proof", Version: "1.0", Nonce: "1"},
		Status:       datastore.Status{State: datastore.PresentationRequested},
	}
	require.NoError(t, s.InsertPresentationExchange(pex))

	pex.Verified = &verified
	pex.Checks = []datastore.VerificationCheck{{Check: "signature", Passed: true}}
	pex.State = datastore.PresentationVerified
	require.NoError(t, s.UpdatePresentationExchange(pex))

	gotP, err := s.GetPresentationExchangeByThread("c1", "t9")
	require.NoError(t, err)
	require.True(t, *gotP.Verified)
	require.Len(t, gotP.Checks, 1)
	require.EqualValues(t, 2, gotP.Version)

	require.NoError(t, s.DeletePresentationExchange("p1"))
	_, err = s.GetPresentationExchange("p1")
	require.True(t, errors.Is(err, datastore.ErrNotFound))
}

func TestCredentialsAndKeys(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.InsertCredential(&datastore.HeldCredential{CredentialID: "a", CredDefID: "cd1"}))
	require.NoError(t, s.InsertCredential(&datastore.HeldCredential{CredentialID: "b", CredDefID: "cd2", Revoked: true}))

	list, err := s.ListCredentials(&datastore.CredentialCriteria{})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)

	list, err = s.ListCredentials(&datastore.CredentialCriteria{IncludeRevoked: true})
	require.NoError(t, err)
	require.Equal(t, 2, list.Count)

	c, err := s.GetCredential("a")
	require.NoError(t, err)
	c.Revoked = true
	now := time.Now().UTC()
	c.RevokedAt = &now
	require.NoError(t, s.UpdateCredential(c))

	c.Version = 1
	require.True(t, errors.Is(s.UpdateCredential(c), datastore.ErrConflict))

	require.NoError(t, s.InsertKey(&datastore.KeyPair{ID: "k1", PublicKey: "pub", PrivateKey: "priv"}))
	k, err := s.GetKey("k1")
	require.NoError(t, err)
	require.Equal(t, "priv", k.PrivateKey)

	i, err := s.NextRevocationIndex("reg")
	require.NoError(t, err)
	require.EqualValues(t, 1, i)
	i, err = s.NextRevocationIndex("reg")
	require.NoError(t, err)
	require.EqualValues(t, 2, i)
}

func TestWebhooks(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.InsertWebhook(&datastore.Webhook{Type: "credentials", URL: "http://a"}))
	require.NoError(t, s.InsertWebhook(&datastore.Webhook{Type: "credentials", URL: "http://a"}))
	require.NoError(t, s.InsertWebhook(&datastore.Webhook{Type: "connections", URL: "http://b"}))

	hooks, err := s.ListWebhooks("credentials")
	require.NoError(t, err)
	require.Len(t, hooks, 1)

	require.NoError(t, s.DeleteWebhook("credentials", "http://a"))
	require.Error(t, s.DeleteWebhook("credentials", "http://a"))

	hooks, err = s.ListWebhooks("")
	require.NoError(t, err)
	require.Len(t, hooks, 1)
}

func TestLock(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.InsertCredentialExchange(&datastore.CredentialExchange{ExchangeID: "x1"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := s.Lock(context.Background(), "x1")
			require.NoError(t, err)
			defer unlock()

			ex, err := s.GetCredentialExchange("x1")
			require.NoError(t, err)
			ex.Comment += "."
			require.NoError(t, s.UpdateCredentialExchange(ex))
		}()
	}
	wg.Wait()

	ex, err := s.GetCredentialExchange("x1")
	require.NoError(t, err)
	require.Len(t, ex.Comment, 20)
	require.EqualValues(t, 21, ex.Version)

	unlock, err := s.Lock(context.Background(), "x1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Lock(ctx, "x1")
	require.Error(t, err)
}
