// Package credstore provides an in-process implementation of the
// credential-verification contract. Passwords are bcrypt-hashed; the
// signed-in flag models the provider's authentication state so that a
// forced invalidation is observable.
package credstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yair681/pirhei-aharon/core"
)

const minPasswordLen = 6

type record struct {
	uid      string
	email    string
	hash     []byte
	signedIn bool
}

type inmemStore struct {
	mu      sync.RWMutex
	byEmail map[string]*record
	byUID   map[string]*record
}

var _ core.CredentialStore = (*inmemStore)(nil)

func NewInmemStore() core.CredentialStore {
	return &inmemStore{
		byEmail: make(map[string]*record),
		byUID:   make(map[string]*record),
	}
}

func (st *inmemStore) Verify(_ context.Context, email, password string) (core.Identity, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, ok := st.byEmail[email]
	if !ok {
		return core.Identity{}, core.ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(rec.hash, []byte(password)); err != nil {
		return core.Identity{}, core.ErrInvalidCredential
	}
	rec.signedIn = true
	return core.Identity{UID: rec.uid, Email: rec.email}, nil
}

func (st *inmemStore) Create(_ context.Context, email, password string) (core.Identity, error) {
	if len(password) < minPasswordLen {
		return core.Identity{}, core.ErrWeakCredential
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.byEmail[email]; ok {
		return core.Identity{}, core.ErrAlreadyRegistered
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.Identity{}, err
	}
	rec := &record{
		uid:      uuid.NewString(),
		email:    email,
		hash:     hash,
		signedIn: true,
	}
	st.byEmail[email] = rec
	st.byUID[rec.uid] = rec
	return core.Identity{UID: rec.uid, Email: rec.email}, nil
}

func (st *inmemStore) CreateAnonymous(_ context.Context) (core.Identity, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec := &record{uid: uuid.NewString(), signedIn: true}
	st.byUID[rec.uid] = rec
	return core.Identity{UID: rec.uid, Anonymous: true}, nil
}

func (st *inmemStore) Invalidate(_ context.Context, ident core.Identity) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if rec, ok := st.byUID[ident.UID]; ok {
		rec.signedIn = false
	}
	return nil
}

func (st *inmemStore) IsAuthenticated(_ context.Context, ident core.Identity) (bool, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	rec, ok := st.byUID[ident.UID]
	return ok && rec.signedIn, nil
}
