package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Identity is the opaque credential-verified principal issued by the
// credential store. It is bound 1:1 to a profile; the profile record is
// keyed by UID.
type Identity struct {
	UID       string
	Email     string
	Anonymous bool
}

// CredentialStore is the observable contract of the external
// authentication provider. Identity lifecycle belongs to it; profiles
// belong to the profile store.
type CredentialStore interface {
	// Verify checks an email/password pair and signs the identity in.
	// Fails with ErrInvalidCredential.
	Verify(ctx context.Context, email, password string) (Identity, error)

	// Create binds a new identity to the email. Fails with
	// ErrAlreadyRegistered or ErrWeakCredential.
	Create(ctx context.Context, email, password string) (Identity, error)

	// CreateAnonymous issues an unprivileged identity for public-scope
	// reads.
	CreateAnonymous(ctx context.Context) (Identity, error)

	// Invalidate signs the identity out. Deleting the identity itself
	// requires administrative access the client does not have.
	Invalidate(ctx context.Context, ident Identity) error

	// IsAuthenticated reports whether the identity is currently signed
	// in.
	IsAuthenticated(ctx context.Context, ident Identity) (bool, error)
}

// SessionRecord is the server-side trace of an authorized session. One
// active session per identity; a new login replaces the previous record.
type SessionRecord struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	ExpiresAt time.Time `json:"expires_at"`
}

var ErrSessionNotFound = errors.New("session not found")

// SessionRegistry stores session records keyed by identity UID so that
// a forced invalidation is observable by subsequent requests.
type SessionRegistry interface {
	Put(ctx context.Context, rec SessionRecord) error
	Get(ctx context.Context, uid string) (SessionRecord, error)
	Delete(ctx context.Context, uid string) error
}
