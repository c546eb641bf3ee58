/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/locker"
)

// Provider keeps stores in process memory. Each named store is independent.
type Provider struct {
	sync.Mutex
	stores map[string]*store
}

// NewProvider instantiates Provider
func NewProvider() *Provider {
	return &Provider{stores: map[string]*store{}}
}

// OpenStore returns the store for name, creating it on first use.
func (p *Provider) OpenStore(name string) (datastore.Store, error) {
	p.Lock()
	defer p.Unlock()

	if name == "" {
		return nil, errors.New("store name is required")
	}

	s, ok := p.stores[name]
	if !ok {
		s = newStore()
		p.stores[name] = s
	}

	return s, nil
}

// Close drops every store.
func (p *Provider) Close() error {
	p.Lock()
	defer p.Unlock()

	p.stores = map[string]*store{}
	return nil
}

type store struct {
	locks *locker.Keyed

	mu          sync.RWMutex
	connections map[string]*datastore.Connection
	credEx      map[string]*datastore.CredentialExchange
	presEx      map[string]*datastore.PresentationExchange
	credentials map[string]*datastore.HeldCredential
	keys        map[string]*datastore.KeyPair
	revIndexes  map[string]int64
	webhooks    []*datastore.Webhook
}

func newStore() *store {
	return &store{
		locks:       locker.NewKeyed(),
		connections: map[string]*datastore.Connection{},
		credEx:      map[string]*datastore.CredentialExchange{},
		presEx:      map[string]*datastore.PresentationExchange{},
		credentials: map[string]*datastore.HeldCredential{},
		keys:        map[string]*datastore.KeyPair{},
		revIndexes:  map[string]int64{},
	}
}

// records leave and enter the store as deep copies so callers never share state with it
func clone(in, out interface{}) {
	d, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(d, out); err != nil {
		panic(err)
	}
}

func page(count, start, size int) (int, int) {
	if start > count {
		start = count
	}
	end := count
	if size > 0 && start+size < count {
		end = start + size
	}
	return start, end
}

func stamp(s *datastore.Status) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

func (r *store) Lock(ctx context.Context, id string) (func(), error) {
	unlock, err := r.locks.LockContext(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to lock %s", id)
	}
	return unlock, nil
}

func (r *store) InsertConnection(c *datastore.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[c.ConnectionID]; ok {
		return errors.Wrapf(datastore.ErrDuplicate, "connection %s", c.ConnectionID)
	}

	stamp(&c.Status)
	c.Version = 1
	out := &datastore.Connection{}
	clone(c, out)
	r.connections[c.ConnectionID] = out
	return nil
}

func (r *store) GetConnection(id string) (*datastore.Connection, error) {
	return r.findConnection(func(c *datastore.Connection) bool { return c.ConnectionID == id })
}

func (r *store) GetConnectionByInvitation(invitationID string) (*datastore.Connection, error) {
	return r.findConnection(func(c *datastore.Connection) bool { return c.InvitationID == invitationID })
}

func (r *store) GetConnectionByThread(threadID string) (*datastore.Connection, error) {
	return r.findConnection(func(c *datastore.Connection) bool { return c.ThreadID == threadID })
}

func (r *store) GetConnectionByTheirDID(did string) (*datastore.Connection, error) {
	return r.findConnection(func(c *datastore.Connection) bool { return c.TheirDID == did && !c.Archived })
}

func (r *store) findConnection(match func(*datastore.Connection) bool) (*datastore.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.connections {
		if match(c) {
			out := &datastore.Connection{}
			clone(c, out)
			return out, nil
		}
	}

	return nil, errors.Wrap(datastore.ErrNotFound, "unable to load connection")
}

func (r *store) ListConnections(c *datastore.ConnectionCriteria) (*datastore.ConnectionList, error) {
	if c == nil {
		c = &datastore.ConnectionCriteria{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*datastore.Connection
	for _, conn := range r.connections {
		if (c.State != "" && conn.State != c.State) || (c.Role != "" && conn.Role != c.Role) ||
			(c.Alias != "" && conn.Alias != c.Alias) || (conn.Archived && !c.IncludeArchived) {
			continue
		}
		all = append(all, conn)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	start, end := page(len(all), c.Start, c.PageSize)
	out := &datastore.ConnectionList{Count: len(all), Connections: []*datastore.Connection{}}
	for _, conn := range all[start:end] {
		cp := &datastore.Connection{}
		clone(conn, cp)
		out.Connections = append(out.Connections, cp)
	}

	return out, nil
}

func (r *store) UpdateConnection(c *datastore.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.connections[c.ConnectionID]
	if !ok {
		return errors.Wrapf(datastore.ErrNotFound, "connection %s", c.ConnectionID)
	}
	if cur.Version != c.Version {
		return errors.Wrapf(datastore.ErrConflict, "connection %s", c.ConnectionID)
	}

	stamp(&c.Status)
	c.Version++
	out := &datastore.Connection{}
	clone(c, out)
	r.connections[c.ConnectionID] = out
	return nil
}

func (r *store) DeleteConnection(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[id]; !ok {
		return errors.Wrapf(datastore.ErrNotFound, "connection %s", id)
	}

	for _, ex := range r.credEx {
		if ex.ConnectionID == id {
			return errors.Wrapf(datastore.ErrReferenced, "connection %s", id)
		}
	}
	for _, ex := range r.presEx {
		if ex.ConnectionID == id {
			return errors.Wrapf(datastore.ErrReferenced, "connection %s", id)
		}
	}

	delete(r.connections, id)
	return nil
}

func (r *store) InsertCredentialExchange(e *datastore.CredentialExchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.credEx[e.ExchangeID]; ok {
		return errors.Wrapf(datastore.ErrDuplicate, "credential exchange %s", e.ExchangeID)
	}

	stamp(&e.Status)
	e.Version = 1
	out := &datastore.CredentialExchange{}
	clone(e, out)
	r.credEx[e.ExchangeID] = out
	return nil
}

func (r *store) GetCredentialExchange(id string) (*datastore.CredentialExchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ex, ok := r.credEx[id]
	if !ok {
		return nil, errors.Wrapf(datastore.ErrNotFound, "credential exchange %s", id)
	}

	out := &datastore.CredentialExchange{}
	clone(ex, out)
	return out, nil
}

func (r *store) GetCredentialExchangeByThread(connectionID, threadID string) (*datastore.CredentialExchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ex := range r.credEx {
		if ex.ConnectionID == connectionID && ex.ThreadID == threadID {
			out := &datastore.CredentialExchange{}
			clone(ex, out)
			return out, nil
		}
	}

	return nil, errors.Wrapf(datastore.ErrNotFound, "credential exchange for thread %s", threadID)
}

func (r *store) ListCredentialExchanges(c *datastore.ExchangeCriteria) (*datastore.CredentialExchangeList, error) {
	if c == nil {
		c = &datastore.ExchangeCriteria{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*datastore.CredentialExchange
	for _, ex := range r.credEx {
		if matchExchange(c, ex.ConnectionID, ex.State, ex.Role) {
			all = append(all, ex)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	start, end := page(len(all), c.Start, c.PageSize)
	out := &datastore.CredentialExchangeList{Count: len(all), Exchanges: []*datastore.CredentialExchange{}}
	for _, ex := range all[start:end] {
		cp := &datastore.CredentialExchange{}
		clone(ex, cp)
		out.Exchanges = append(out.Exchanges, cp)
	}

	return out, nil
}

func matchExchange(c *datastore.ExchangeCriteria, connectionID, state, role string) bool {
	return (c.ConnectionID == "" || c.ConnectionID == connectionID) &&
		(c.State == "" || c.State == state) &&
		(c.Role == "" || c.Role == role)
}

func (r *store) UpdateCredentialExchange(e *datastore.CredentialExchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.credEx[e.ExchangeID]
	if !ok {
		return errors.Wrapf(datastore.ErrNotFound, "credential exchange %s", e.ExchangeID)
	}
	if cur.Version != e.Version {
		return errors.Wrapf(datastore.ErrConflict, "credential exchange %s", e.ExchangeID)
	}

	stamp(&e.Status)
	e.Version++
	out := &datastore.CredentialExchange{}
	clone(e, out)
	r.credEx[e.ExchangeID] = out
	return nil
}

func (r *store) DeleteCredentialExchange(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.credEx[id]; !ok {
		return errors.Wrapf(datastore.ErrNotFound, "credential exchange %s", id)
	}

	delete(r.credEx, id)
	return nil
}

func (r *store) InsertPresentationExchange(e *datastore.PresentationExchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.presEx[e.ExchangeID]; ok {
		return errors.Wrapf(datastore.ErrDuplicate, "presentation exchange %s", e.ExchangeID)
	}

	stamp(&e.Status)
	e.Version = 1
	out := &datastore.PresentationExchange{}
	clone(e, out)
	r.presEx[e.ExchangeID] = out
	return nil
}

func (r *store) GetPresentationExchange(id string) (*datastore.PresentationExchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ex, ok := r.presEx[id]
	if !ok {
		return nil, errors.Wrapf(datastore.ErrNotFound, "presentation exchange %s", id)
	}

	out := &datastore.PresentationExchange{}
	clone(ex, out)
	return out, nil
}

func (r *store) GetPresentationExchangeByThread(connectionID, threadID string) (*datastore.PresentationExchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ex := range r.presEx {
		if ex.ConnectionID == connectionID && ex.ThreadID == threadID {
			out := &datastore.PresentationExchange{}
			clone(ex, out)
			return out, nil
		}
	}

	return nil, errors.Wrapf(datastore.ErrNotFound, "presentation exchange for thread %s", threadID)
}

func (r *store) ListPresentationExchanges(c *datastore.ExchangeCriteria) (*datastore.PresentationExchangeList, error) {
	if c == nil {
		c = &datastore.ExchangeCriteria{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*datastore.PresentationExchange
	for _, ex := range r.presEx {
		if matchExchange(c, ex.ConnectionID, ex.State, ex.Role) {
			all = append(all, ex)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	start, end := page(len(all), c.Start, c.PageSize)
	out := &datastore.PresentationExchangeList{Count: len(all), Exchanges: []*datastore.PresentationExchange{}}
	for _, ex := range all[start:end] {
		cp := &datastore.PresentationExchange{}
		clone(ex, cp)
		out.Exchanges = append(out.Exchanges, cp)
	}

	return out, nil
}

func (r *store) UpdatePresentationExchange(e *datastore.PresentationExchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.presEx[e.ExchangeID]
	if !ok {
		return errors.Wrapf(datastore.ErrNotFound, "presentation exchange %s", e.ExchangeID)
	}
	if cur.Version != e.Version {
		return errors.Wrapf(datastore.ErrConflict, "presentation exchange %s", e.ExchangeID)
	}

	stamp(&e.Status)
	e.Version++
	out := &datastore.PresentationExchange{}
	clone(e, out)
	r.presEx[e.ExchangeID] = out
	return nil
}

func (r *store) DeletePresentationExchange(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.presEx[id]; !ok {
		return errors.Wrapf(datastore.ErrNotFound, "presentation exchange %s", id)
	}

	delete(r.presEx, id)
	return nil
}

func (r *store) InsertCredential(c *datastore.HeldCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.credentials[c.CredentialID]; ok {
		return errors.Wrapf(datastore.ErrDuplicate, "credential %s", c.CredentialID)
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Version = 1
	out := &datastore.HeldCredential{}
	clone(c, out)
	r.credentials[c.CredentialID] = out
	return nil
}

func (r *store) GetCredential(id string) (*datastore.HeldCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.credentials[id]
	if !ok {
		return nil, errors.Wrapf(datastore.ErrNotFound, "credential %s", id)
	}

	out := &datastore.HeldCredential{}
	clone(c, out)
	return out, nil
}

func (r *store) ListCredentials(c *datastore.CredentialCriteria) (*datastore.CredentialList, error) {
	if c == nil {
		c = &datastore.CredentialCriteria{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*datastore.HeldCredential
	for _, cred := range r.credentials {
		if (c.CredDefID != "" && cred.CredDefID != c.CredDefID) || (c.SchemaID != "" && cred.SchemaID != c.SchemaID) ||
			(cred.Revoked && !c.IncludeRevoked) {
			continue
		}
		all = append(all, cred)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CredentialID < all[j].CredentialID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	start, end := page(len(all), c.Start, c.PageSize)
	out := &datastore.CredentialList{Count: len(all), Credentials: []*datastore.HeldCredential{}}
	for _, cred := range all[start:end] {
		cp := &datastore.HeldCredential{}
		clone(cred, cp)
		out.Credentials = append(out.Credentials, cp)
	}

	return out, nil
}

func (r *store) UpdateCredential(c *datastore.HeldCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.credentials[c.CredentialID]
	if !ok {
		return errors.Wrapf(datastore.ErrNotFound, "credential %s", c.CredentialID)
	}
	if cur.Version != c.Version {
		return errors.Wrapf(datastore.ErrConflict, "credential %s", c.CredentialID)
	}

	c.Version++
	out := &datastore.HeldCredential{}
	clone(c, out)
	r.credentials[c.CredentialID] = out
	return nil
}

func (r *store) DeleteCredential(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.credentials[id]; !ok {
		return errors.Wrapf(datastore.ErrNotFound, "credential %s", id)
	}

	delete(r.credentials, id)
	return nil
}

func (r *store) InsertKey(k *datastore.KeyPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[k.ID]; ok {
		return errors.Wrapf(datastore.ErrDuplicate, "key %s", k.ID)
	}

	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now().UTC()
	}
	out := *k
	r.keys[k.ID] = &out
	return nil
}

func (r *store) GetKey(id string) (*datastore.KeyPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.keys[id]
	if !ok {
		return nil, errors.Wrapf(datastore.ErrNotFound, "key %s", id)
	}

	out := *k
	return &out, nil
}

func (r *store) NextRevocationIndex(registryID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.revIndexes[registryID]++
	return r.revIndexes[registryID], nil
}

func (r *store) InsertWebhook(hook *datastore.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.webhooks {
		if h.Type == hook.Type && h.URL == hook.URL {
			return nil
		}
	}

	out := *hook
	r.webhooks = append(r.webhooks, &out)
	return nil
}

func (r *store) ListWebhooks(typ string) ([]*datastore.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*datastore.Webhook{}
	for _, h := range r.webhooks {
		if typ == "" || h.Type == typ {
			cp := *h
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (r *store) DeleteWebhook(typ, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, h := range r.webhooks {
		if h.Type == typ && h.URL == url {
			r.webhooks = append(r.webhooks[:i], r.webhooks[i+1:]...)
			return nil
		}
	}

	return errors.Wrapf(datastore.ErrNotFound, "webhook %s", url)
}
