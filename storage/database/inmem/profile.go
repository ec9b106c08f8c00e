package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/yair681/pirhei-aharon/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetProfile(_ context.Context, id string) (profile.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if prof, ok := repo.db.profiles[id]; ok {
		return prof, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) GetProfileByEmail(_ context.Context, email string) (profile.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	// email is matched exactly as stored
	for _, prof := range repo.db.profiles {
		if prof.Email == email {
			return prof, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) CreateProfile(_ context.Context, prof profile.Profile) (profile.Profile, error) {
	repo.db.mu.Lock()
	repo.db.profiles[prof.ID] = prof
	repo.db.mu.Unlock()

	repo.db.notifyProfiles()
	return prof, nil
}

func (repo *profileRepository) UpdateProfile(_ context.Context, prof profile.Profile) (profile.Profile, error) {
	repo.db.mu.Lock()
	if _, ok := repo.db.profiles[prof.ID]; !ok {
		repo.db.mu.Unlock()
		return profile.Profile{}, profile.ErrNotFound
	}
	repo.db.profiles[prof.ID] = prof
	repo.db.mu.Unlock()

	repo.db.notifyProfiles()
	return prof, nil
}

func (repo *profileRepository) DeleteProfile(_ context.Context, id string) error {
	repo.db.mu.Lock()
	delete(repo.db.profiles, id)
	repo.db.mu.Unlock()

	repo.db.notifyProfiles()
	return nil
}

func (repo *profileRepository) FilterProfiles(_ context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.filterProfiles(filter), nil
}

func (repo *profileRepository) SubscribeProfiles(_ context.Context, filter profile.QueryFilter) (<-chan []profile.Profile, func(), error) {
	repo.db.subMu.Lock()
	defer repo.db.subMu.Unlock()
	if repo.db.closed {
		return nil, nil, errClosed
	}

	sub := &profileSub{filter: filter, ch: make(chan []profile.Profile, 1)}
	id := repo.db.nextSubID
	repo.db.nextSubID++
	repo.db.profileSubs[id] = sub

	// initial snapshot
	repo.db.mu.RLock()
	push(sub.ch, repo.db.filterProfiles(filter))
	repo.db.mu.RUnlock()

	release := func() {
		repo.db.subMu.Lock()
		delete(repo.db.profileSubs, id)
		repo.db.subMu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
	}
	return sub.ch, release, nil
}

func (db *DB) filterProfiles(filter profile.QueryFilter) []profile.Profile {
	out := make([]profile.Profile, 0, len(db.profiles))
	for _, prof := range db.profiles {
		if filter.IsEmpty() || matchProfile(filter, prof) {
			out = append(out, prof)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (db *DB) notifyProfiles() {
	db.subMu.Lock()
	defer db.subMu.Unlock()
	if db.closed {
		return
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, sub := range db.profileSubs {
		push(sub.ch, db.filterProfiles(sub.filter))
	}
}

func matchProfile(filter profile.QueryFilter, prof profile.Profile) bool {
	if filter.Role != "" && prof.Role != filter.Role {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(prof.Name), needle) &&
			!strings.Contains(strings.ToLower(prof.Email), needle) {
			return false
		}
	}
	return true
}
