package inmemdb

import (
	"context"
	"sort"

	"github.com/yair681/pirhei-aharon/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) GetClass(_ context.Context, id string) (class.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return copyClass(cls), nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mu.Lock()
	repo.db.classes[cls.ID] = copyClass(cls)
	repo.db.mu.Unlock()

	repo.db.notifyClasses()
	return cls, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mu.Lock()
	if _, ok := repo.db.classes[cls.ID]; !ok {
		repo.db.mu.Unlock()
		return class.Class{}, class.ErrNotFound
	}
	repo.db.classes[cls.ID] = copyClass(cls)
	repo.db.mu.Unlock()

	repo.db.notifyClasses()
	return cls, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mu.Lock()
	delete(repo.db.classes, id)
	repo.db.mu.Unlock()

	repo.db.notifyClasses()
	return nil
}

func (repo *classRepository) QueryAllClasses(_ context.Context) ([]class.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.allClasses(), nil
}

func (repo *classRepository) SubscribeClasses(_ context.Context) (<-chan []class.Class, func(), error) {
	repo.db.subMu.Lock()
	defer repo.db.subMu.Unlock()
	if repo.db.closed {
		return nil, nil, errClosed
	}

	sub := &classSub{ch: make(chan []class.Class, 1)}
	id := repo.db.nextSubID
	repo.db.nextSubID++
	repo.db.classSubs[id] = sub

	repo.db.mu.RLock()
	push(sub.ch, repo.db.allClasses())
	repo.db.mu.RUnlock()

	release := func() {
		repo.db.subMu.Lock()
		delete(repo.db.classSubs, id)
		repo.db.subMu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
	}
	return sub.ch, release, nil
}

func (db *DB) allClasses() []class.Class {
	out := make([]class.Class, 0, len(db.classes))
	for _, cls := range db.classes {
		out = append(out, copyClass(cls))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (db *DB) notifyClasses() {
	db.subMu.Lock()
	defer db.subMu.Unlock()
	if db.closed {
		return
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, sub := range db.classSubs {
		push(sub.ch, db.allClasses())
	}
}

// copyClass guards the stored membership slices from aliasing by
// callers that mutate their copy.
func copyClass(cls class.Class) class.Class {
	cls.TeacherIDs = append([]string(nil), cls.TeacherIDs...)
	cls.StudentIDs = append([]string(nil), cls.StudentIDs...)
	return cls
}
