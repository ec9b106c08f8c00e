package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/yair681/pirhei-aharon/core/profile"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createProfile(t *testing.T, repo profile.Repository, id, name, role string) profile.Profile {
	t.Helper()
	now := time.Now().UTC()
	prof, err := repo.CreateProfile(context.Background(), profile.Profile{
		ID: id, Email: name + "@test.il", Name: name, Role: role, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return prof
}

func recv(t *testing.T, ch <-chan []profile.Profile) []profile.Profile {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func TestSubscribeProfiles_snapshots(t *testing.T) {
	db := openDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	createProfile(t, repo, "1", "moshe", profile.RoleStudent)

	ch, release, err := repo.SubscribeProfiles(ctx, profile.QueryFilter{})
	if err != nil {
		t.Fatalf("SubscribeProfiles() failed: %v", err)
	}
	defer release()

	// initial snapshot carries existing state
	snap := recv(t, ch)
	if len(snap) != 1 || snap[0].ID != "1" {
		t.Fatalf("initial snapshot = %+v", snap)
	}

	// every change re-emits the full set, not a delta
	createProfile(t, repo, "2", "rivka", profile.RoleTeacher)
	snap = recv(t, ch)
	if len(snap) != 2 {
		t.Fatalf("snapshot after create = %+v; want full set of 2", snap)
	}

	if err := repo.DeleteProfile(ctx, "1"); err != nil {
		t.Fatalf("DeleteProfile() failed: %v", err)
	}
	snap = recv(t, ch)
	if len(snap) != 1 || snap[0].ID != "2" {
		t.Fatalf("snapshot after delete = %+v", snap)
	}
}

func TestSubscribeProfiles_filtered(t *testing.T) {
	db := openDB(t)
	repo := NewProfileRepository(db)

	ch, release, err := repo.SubscribeProfiles(context.Background(), profile.QueryFilter{Role: profile.RoleTeacher})
	if err != nil {
		t.Fatalf("SubscribeProfiles() failed: %v", err)
	}
	defer release()

	if snap := recv(t, ch); len(snap) != 0 {
		t.Fatalf("initial snapshot = %+v; want empty", snap)
	}

	createProfile(t, repo, "1", "moshe", profile.RoleStudent)
	createProfile(t, repo, "2", "rivka", profile.RoleTeacher)

	// a filtered subscriber only ever sees matching records; the student
	// write may be conflated away by the teacher write
	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-ch:
			for _, prof := range snap {
				if prof.Role != profile.RoleTeacher {
					t.Fatalf("filtered snapshot contains %+v", prof)
				}
			}
			if len(snap) == 1 && snap[0].ID == "2" {
				return
			}
		case <-deadline:
			t.Fatal("never observed the teacher snapshot")
		}
	}
}

func TestSubscribeProfiles_conflation(t *testing.T) {
	db := openDB(t)
	repo := NewProfileRepository(db)

	ch, release, err := repo.SubscribeProfiles(context.Background(), profile.QueryFilter{})
	if err != nil {
		t.Fatalf("SubscribeProfiles() failed: %v", err)
	}
	defer release()

	// a slow consumer: several writes land before the first read
	for _, name := range []string{"a", "b", "c", "d"} {
		createProfile(t, repo, name, name, profile.RoleStudent)
	}

	// the pending snapshot must be the latest state, stale ones dropped
	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-ch:
			if len(snap) == 4 {
				return
			}
		case <-deadline:
			t.Fatal("never observed the latest snapshot")
		}
	}
}

func TestSubscribeProfiles_releaseIsIdempotent(t *testing.T) {
	db := openDB(t)
	repo := NewProfileRepository(db)

	ch, release, err := repo.SubscribeProfiles(context.Background(), profile.QueryFilter{})
	if err != nil {
		t.Fatalf("SubscribeProfiles() failed: %v", err)
	}

	release()
	release() // must not panic

	if _, ok := <-ch; ok {
		// drain the buffered initial snapshot, then expect closed
		if _, ok := <-ch; ok {
			t.Error("channel still open after release")
		}
	}

	// writes after release do not block or panic
	createProfile(t, repo, "1", "moshe", profile.RoleStudent)
}

func TestDB_Close_releasesSubscriptions(t *testing.T) {
	db := openDB(t)
	repo := NewProfileRepository(db)

	ch, _, err := repo.SubscribeProfiles(context.Background(), profile.QueryFilter{})
	if err != nil {
		t.Fatalf("SubscribeProfiles() failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// drain any buffered snapshot; the channel must end up closed
	for i := 0; i < 2; i++ {
		if _, ok := <-ch; !ok {
			return
		}
	}
	t.Error("channel still open after Close()")
}
