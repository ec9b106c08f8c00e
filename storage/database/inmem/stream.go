package inmemdb

import (
	"context"

	"github.com/yair681/pirhei-aharon/core/stream"
)

type streamRepository struct {
	db *DB
}

var _ stream.Repository = (*streamRepository)(nil)

func NewStreamRepository(db *DB) stream.Repository {
	return &streamRepository{db: db}
}

func (repo *streamRepository) GetAnnouncement(_ context.Context, id string) (stream.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ann, ok := repo.db.announcements[id]; ok {
		return ann, nil
	}
	return stream.Announcement{}, stream.ErrNotFound
}

func (repo *streamRepository) CreateAnnouncement(_ context.Context, ann stream.Announcement) (stream.Announcement, error) {
	repo.db.mu.Lock()
	repo.db.announcements[ann.ID] = ann
	repo.db.mu.Unlock()

	repo.db.notifyAnnouncements()
	return ann, nil
}

func (repo *streamRepository) DeleteAnnouncement(_ context.Context, id string) error {
	repo.db.mu.Lock()
	delete(repo.db.announcements, id)
	repo.db.mu.Unlock()

	repo.db.notifyAnnouncements()
	return nil
}

func (repo *streamRepository) FilterAnnouncements(_ context.Context, filter stream.AnnouncementFilter) ([]stream.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.filterAnnouncements(filter), nil
}

func (repo *streamRepository) SubscribeAnnouncements(_ context.Context, filter stream.AnnouncementFilter) (<-chan []stream.Announcement, func(), error) {
	repo.db.subMu.Lock()
	defer repo.db.subMu.Unlock()
	if repo.db.closed {
		return nil, nil, errClosed
	}

	sub := &annSub{filter: filter, ch: make(chan []stream.Announcement, 1)}
	id := repo.db.nextSubID
	repo.db.nextSubID++
	repo.db.annSubs[id] = sub

	repo.db.mu.RLock()
	push(sub.ch, repo.db.filterAnnouncements(filter))
	repo.db.mu.RUnlock()

	release := func() {
		repo.db.subMu.Lock()
		delete(repo.db.annSubs, id)
		repo.db.subMu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
	}
	return sub.ch, release, nil
}

func (repo *streamRepository) GetAssignment(_ context.Context, id string) (stream.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return asg, nil
	}
	return stream.Assignment{}, stream.ErrNotFound
}

func (repo *streamRepository) CreateAssignment(_ context.Context, asg stream.Assignment) (stream.Assignment, error) {
	repo.db.mu.Lock()
	repo.db.assignments[asg.ID] = asg
	repo.db.mu.Unlock()

	repo.db.notifyAssignments()
	return asg, nil
}

func (repo *streamRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.mu.Lock()
	delete(repo.db.assignments, id)
	repo.db.mu.Unlock()

	repo.db.notifyAssignments()
	return nil
}

func (repo *streamRepository) ClassAssignments(_ context.Context, classID string) ([]stream.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.classAssignments(classID), nil
}

func (repo *streamRepository) SubscribeAssignments(_ context.Context, classID string) (<-chan []stream.Assignment, func(), error) {
	repo.db.subMu.Lock()
	defer repo.db.subMu.Unlock()
	if repo.db.closed {
		return nil, nil, errClosed
	}

	sub := &asgSub{classID: classID, ch: make(chan []stream.Assignment, 1)}
	id := repo.db.nextSubID
	repo.db.nextSubID++
	repo.db.asgSubs[id] = sub

	repo.db.mu.RLock()
	push(sub.ch, repo.db.classAssignments(classID))
	repo.db.mu.RUnlock()

	release := func() {
		repo.db.subMu.Lock()
		delete(repo.db.asgSubs, id)
		repo.db.subMu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
	}
	return sub.ch, release, nil
}

func (db *DB) filterAnnouncements(filter stream.AnnouncementFilter) []stream.Announcement {
	out := make([]stream.Announcement, 0, len(db.announcements))
	for _, ann := range db.announcements {
		if filter.Scope != "" && ann.Scope != filter.Scope {
			continue
		}
		if filter.ClassID != "" && ann.ClassID != filter.ClassID {
			continue
		}
		out = append(out, ann)
	}
	sortNewestFirst(out, func(a stream.Announcement) sortKey { return sortKey{a.CreatedAt, a.ID} })
	return out
}

func (db *DB) classAssignments(classID string) []stream.Assignment {
	out := make([]stream.Assignment, 0, len(db.assignments))
	for _, asg := range db.assignments {
		if asg.ClassID == classID {
			out = append(out, asg)
		}
	}
	sortNewestFirst(out, func(a stream.Assignment) sortKey { return sortKey{a.CreatedAt, a.ID} })
	return out
}

func (db *DB) notifyAnnouncements() {
	db.subMu.Lock()
	defer db.subMu.Unlock()
	if db.closed {
		return
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, sub := range db.annSubs {
		push(sub.ch, db.filterAnnouncements(sub.filter))
	}
}

func (db *DB) notifyAssignments() {
	db.subMu.Lock()
	defer db.subMu.Unlock()
	if db.closed {
		return
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, sub := range db.asgSubs {
		push(sub.ch, db.classAssignments(sub.classID))
	}
}
