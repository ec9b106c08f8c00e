package credstore

import (
	"context"
	"testing"

	"github.com/yair681/pirhei-aharon/core"
)

func TestInmemStore(t *testing.T) {
	st := NewInmemStore()
	ctx := context.Background()

	if _, err := st.Create(ctx, "moshe@test.il", "lol"); err != core.ErrWeakCredential {
		t.Errorf("Create() with weak password error = %v, want %v", err, core.ErrWeakCredential)
	}

	ident, err := st.Create(ctx, "moshe@test.il", "s3cr3t!")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if ident.UID == "" || ident.Email != "moshe@test.il" || ident.Anonymous {
		t.Errorf("Create() = %+v", ident)
	}

	if _, err := st.Create(ctx, "moshe@test.il", "s3cr3t!"); err != core.ErrAlreadyRegistered {
		t.Errorf("duplicate Create() error = %v, want %v", err, core.ErrAlreadyRegistered)
	}

	if _, err := st.Verify(ctx, "moshe@test.il", "nope"); err != core.ErrInvalidCredential {
		t.Errorf("Verify() with wrong password error = %v, want %v", err, core.ErrInvalidCredential)
	}
	if _, err := st.Verify(ctx, "Moshe@test.il", "s3cr3t!"); err != core.ErrInvalidCredential {
		t.Errorf("Verify() with differently cased email error = %v, want %v", err, core.ErrInvalidCredential)
	}
	got, err := st.Verify(ctx, "moshe@test.il", "s3cr3t!")
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if got.UID != ident.UID {
		t.Errorf("Verify() UID = %s, want %s", got.UID, ident.UID)
	}

	authed, err := st.IsAuthenticated(ctx, ident)
	if err != nil || !authed {
		t.Errorf("IsAuthenticated() = %v, %v; want true", authed, err)
	}

	if err := st.Invalidate(ctx, ident); err != nil {
		t.Fatalf("Invalidate() failed: %v", err)
	}
	authed, err = st.IsAuthenticated(ctx, ident)
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
