// Package auth implements the session/authorization gate: it maps a
// verified credential identity to a profile record and refuses sessions
// whose identity was never provisioned by an administrator. The profile
// store, not the credential store, is the source of authorization truth.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/profile"
)

// State is the position of a session in the gate's state machine.
type State string

const (
	Unauthenticated    State = "unauthenticated"
	CredentialVerified State = "credential_verified"
	Authorized         State = "authorized"
	Rejected           State = "rejected"
)

// Session is the outcome of a login attempt. Authorized sessions carry
// the identity and its profile; rejected sessions carry neither.
type Session struct {
	State    State
	Identity core.Identity
	Profile  profile.Profile

	// RecordID keys the server-side session record. A login that does
	// not reach Authorized has none.
	RecordID string
}

// Gate drives Unauthenticated -> CredentialVerified -> Authorized|Rejected.
type Gate struct {
	conf     *core.Config
	creds    core.CredentialStore
	profiles profile.Repository
	sessions core.SessionRegistry
	log      core.Logger
}

func NewGate(
	conf *core.Config,
	creds core.CredentialStore,
	profiles profile.Repository,
	sessions core.SessionRegistry,
	log core.Logger,
) *Gate {
	return &Gate{
		conf:     conf,
		creds:    creds,
		profiles: profiles,
		sessions: sessions,
		log:      log,
	}
}

// Login verifies the credential and authorizes the session against the
// profile store. A verified identity without a profile is a security
// event: the identity is forcibly signed out and ErrNotApproved is
// returned.
func (g *Gate) Login(ctx context.Context, email, password string) (Session, error) {
	ident, err := g.creds.Verify(ctx, core.CleanString(email), password)
	if err != nil {
		return Session{State: Unauthenticated}, err
	}

	prof, err := g.profiles.GetProfile(ctx, ident.UID)
	if err != nil {
		if errors.Cause(err) != profile.ErrNotFound {
			return Session{State: CredentialVerified, Identity: ident}, errors.Wrap(err, "resolving profile")
		}
		// Identity exists in the credential store but was never
		// provisioned by an admin: sign it out before surfacing.
		g.log.Error("unapproved signup rejected", core.ErrNotApproved, ident.UID)
		if ierr := g.creds.Invalidate(ctx, ident); ierr != nil {
			g.log.Error("invalidating unapproved identity", ierr, ident.UID)
		}
		_ = g.sessions.Delete(ctx, ident.UID)
		return Session{State: Rejected, Identity: ident}, core.ErrNotApproved
	}

	rec := core.SessionRecord{
		ID:        uuid.NewString(),
		UID:       ident.UID,
		ExpiresAt: time.Now().UTC().Add(g.conf.Server.JWTExpirationDelta),
	}
	if err := g.sessions.Put(ctx, rec); err != nil {
		return Session{State: CredentialVerified, Identity: ident}, errors.Wrap(err, "registering session")
	}
	return Session{State: Authorized, Identity: ident, Profile: prof, RecordID: rec.ID}, nil
}

// Verify reports whether an authorized session is still live: the
// registry holds a record for the identity and it is this session's.
func (g *Gate) Verify(ctx context.Context, uid, recordID string) error {
	rec, err := g.sessions.Get(ctx, uid)
	if err != nil {
		return err
	}
	if rec.ID != recordID || time.Now().UTC().After(rec.ExpiresAt) {
		return core.ErrSessionNotFound
	}
	return nil
}

// Logout invalidates the identity and returns the session to
// Unauthenticated. With anonymous access enabled an unprivileged
// identity is established immediately so public reads keep working.
func (g *Gate) Logout(ctx context.Context, sess Session) (core.Identity, error) {
	if sess.Identity.UID != "" {
		if err := g.sessions.Delete(ctx, sess.Identity.UID); err != nil && errors.Cause(err) != core.ErrSessionNotFound {
			return core.Identity{}, errors.Wrap(err, "deleting session record")
		}
		if err := g.creds.Invalidate(ctx, sess.Identity); err != nil {
			return core.Identity{}, errors.Wrap(err, "invalidating identity")
		}
	}
	if !g.conf.AnonymousAccess {
		return core.Identity{}, nil
	}
	ident, err := g.creds.CreateAnonymous(ctx)
	if err != nil {
		return core.Identity{}, errors.Wrap(err, "establishing anonymous identity")
	}
	return ident, nil
}
