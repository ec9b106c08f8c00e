package auth_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/auth"
	"github.com/yair681/pirhei-aharon/core/profile"
	logsvc "github.com/yair681/pirhei-aharon/services/logger"
	"github.com/yair681/pirhei-aharon/storage/credential"
	inmemdb "github.com/yair681/pirhei-aharon/storage/database/inmem"
	sessionstore "github.com/yair681/pirhei-aharon/storage/session"
)

func setup(t *testing.T) (*auth.Gate, core.CredentialStore, profile.Repository) {
	t.Helper()

	conf := &core.Config{AnonymousAccess: true}
	conf.Server.JWTExpirationDelta = time.Hour

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	creds := credstore.NewInmemStore()
	profiles := inmemdb.NewProfileRepository(db)
	std := log.New(os.Stdout, "TEST : ", log.LstdFlags)
	gate := auth.NewGate(conf, creds, profiles, sessionstore.NewMemStore(), logsvc.NewStdLogger(std))
	return gate, creds, profiles
}

// provision creates an identity and, when approved, its profile record.
func provision(t *testing.T, creds core.CredentialStore, profiles profile.Repository, email string, approved bool) core.Identity {
	t.Helper()
	ctx := context.Background()

	ident, err := creds.Create(ctx, email, "s3cr3t!")
	if err != nil {
		t.Fatalf("provision() failed: %v", err)
	}
	if approved {
		now := time.Now().UTC()
		if _, err := profiles.CreateProfile(ctx, profile.Profile{
			ID: ident.UID, Email: email, Name: "Someone", Role: profile.RoleStudent, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("provision() failed: %v", err)
		}
	}
	return ident
}

func TestGate_Login_unknownCredential(t *testing.T) {
	gate, _, _ := setup(t)

	sess, err := gate.Login(context.Background(), "lol@test.il", "nope")
	if errors.Cause(err) != core.ErrInvalidCredential {
		t.Fatalf("Login() error = %v, want %v", err, core.ErrInvalidCredential)
	}
	if sess.State != auth.Unauthenticated {
		t.Errorf("State = %v, want %v", sess.State, auth.Unauthenticated)
	}
}

func TestGate_Login_unapprovedIdentityIsSignedOut(t *testing.T) {
	gate, creds, _ := setup(t)
	ctx := context.Background()

	ident := provision(t, creds, nil, "rogue@test.il", false)
	_ = ident

	sess, err := gate.Login(ctx, "rogue@test.il", "s3cr3t!")
	if errors.Cause(err) != core.ErrNotApproved {
		t.Fatalf("Login() error = %v, want %v", err, core.ErrNotApproved)
	}
	if sess.State != auth.Rejected {
		t.Errorf("State = %v, want %v", sess.State, auth.Rejected)
	}

	// the identity must be forcibly signed out
	authed, err := creds.IsAuthenticated(ctx, sess.Identity)
	if err != nil {
		t.Fatalf("IsAuthenticated() failed: %v", err)
	}
	if authed {
		t.Error("unapproved identity still authenticated after rejection")
	}
}

func TestGate_Login_approved(t *testing.T) {
	gate, creds, profiles := setup(t)
	ctx := context.Background()

	provision(t, creds, profiles, "moshe@test.il", true)

	sess, err := gate.Login(ctx, "moshe@test.il", "s3cr3t!")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if sess.State != auth.Authorized {
		t.Fatalf("State = %v, want %v", sess.State, auth.Authorized)
	}
	if sess.Profile.Email != "moshe@test.il" || sess.RecordID == "" {
		t.Errorf("Session = %+v", sess)
	}

	if err := gate.Verify(ctx, sess.Identity.UID, sess.RecordID); err != nil {
		t.Errorf("Verify() failed: %v", err)
	}
	if err := gate.Verify(ctx, sess.Identity.UID, "stale-record"); errors.Cause(err) != core.ErrSessionNotFound {
		t.Errorf("Verify() with stale record error = %v, want %v", err, core.ErrSessionNotFound)
	}
}

func TestGate_Login_supersedesPreviousSession(t *testing.T) {
	gate, creds, profiles := setup(t)
	ctx := context.Background()

	provision(t, creds, profiles, "moshe@test.il", true)

	first, err := gate.Login(ctx, "moshe@test.il", "s3cr3t!")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	second, err := gate.Login(ctx, "moshe@test.il", "s3cr3t!")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	// one record per identity: the first session is revoked
	if err := gate.Verify(ctx, first.Identity.UID, first.RecordID); errors.Cause(err) != core.ErrSessionNotFound {
		t.Errorf("Verify() of superseded session error = %v, want %v", err, core.ErrSessionNotFound)
	}
	if err := gate.Verify(ctx, second.Identity.UID, second.RecordID); err != nil {
		t.Errorf("Verify() of live session failed: %v", err)
	}
}

func TestGate_Logout(t *testing.T) {
	gate, creds, profiles := setup(t)
	ctx := context.Background()

	provision(t, creds, profiles, "moshe@test.il", true)
	sess, err := gate.Login(ctx, "moshe@test.il", "s3cr3t!")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	anon, err := gate.Logout(ctx, sess)
	if err != nil {
		t.Fatalf("Logout() failed: %v", err)
	}
	if !anon.Anonymous {
		t.Errorf("Logout() identity = %+v; want anonymous", anon)
	}

	if err := gate.Verify(ctx, sess.Identity.UID, sess.RecordID); errors.Cause(err) != core.ErrSessionNotFound {
		t.Errorf("Verify() after logout error = %v, want %v", err, core.ErrSessionNotFound)
	}
	authed, err := creds.IsAuthenticated(ctx, sess.Identity)
	if err != nil {
		t.Fatalf("IsAuthenticated() failed: %v", err)
	}
	if authed {
		t.Error("identity still authenticated after logout")
	}
}
