package credstore

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/yair681/pirhei-aharon/core"
)

func sqlStoreSetup(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`DROP TABLE IF EXISTS credential`)
		_ = db.Close()
	})
	return db
}

func TestSQLStore(t *testing.T) {
	db := sqlStoreSetup(t)
	ctx := context.Background()

	st, err := NewSQLStore(db)
	if err != nil {
		t.Fatalf("NewSQLStore() failed: %v", err)
	}

	ident, err := st.Create(ctx, "moshe@test.il", "s3cr3t!")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := st.Create(ctx, "moshe@test.il", "s3cr3t!"); err != core.ErrAlreadyRegistered {
		t.Errorf("duplicate Create() error = %v, want %v", err, core.ErrAlreadyRegistered)
	}
	if _, err := st.Verify(ctx, "moshe@test.il", "nope"); err != core.ErrInvalidCredential {
		t.Errorf("Verify() with wrong password error = %v, want %v", err, core.ErrInvalidCredential)
	}

	// a fresh store over the same database still verifies: identities
	// survive a process restart
	st2, err := NewSQLStore(db)
	if err != nil {
		t.Fatalf("NewSQLStore() failed: %v", err)
	}
	got, err := st2.Verify(ctx, "moshe@test.il", "s3cr3t!")
	if err != nil {
		t.Fatalf("Verify() after reopen failed: %v", err)
	}
	if got.UID != ident.UID {
		t.Errorf("Verify() UID = %s, want %s", got.UID, ident.UID)
	}

	if err := st2.Invalidate(ctx, ident); err != nil {
		t.Fatalf("Invalidate() failed: %v", err)
	}
	authed, err := st.IsAuthenticated(ctx, ident)
	if err != nil || authed {
		t.Errorf("IsAuthenticated() after Invalidate() = %v, %v; want false", authed, err)
	}

	anon, err := st.CreateAnonymous(ctx)
	if err != nil {
		t.Fatalf("CreateAnonymous() failed: %v", err)
	}
	if !anon.Anonymous || anon.UID == "" {
		t.Errorf("CreateAnonymous() = %+v", anon)
	}
}
