// Package sessionstore implements the session registry: one active
// record per identity, keyed by UID, so a forced sign-out is visible to
// every subsequent request.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/yair681/pirhei-aharon/core"
)

type memStore struct {
	mu   sync.RWMutex
	recs map[string]core.SessionRecord
}

var _ core.SessionRegistry = (*memStore)(nil)

func NewMemStore() core.SessionRegistry {
	return &memStore{recs: make(map[string]core.SessionRecord)}
}

func (st *memStore) Put(_ context.Context, rec core.SessionRecord) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.recs[rec.UID] = rec
	return nil
}

func (st *memStore) Get(_ context.Context, uid string) (core.SessionRecord, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	rec, ok := st.recs[uid]
	if !ok || time.Now().UTC().After(rec.ExpiresAt) {
		return core.SessionRecord{}, core.ErrSessionNotFound
	}
	return rec, nil
}

func (st *memStore) Delete(_ context.Context, uid string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.recs, uid)
	return nil
}
