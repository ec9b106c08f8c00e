// Package inmemdb is an in-memory document store with the same
// observable contract as the hosted backend: point reads and writes,
// filtered scans and push-based full-snapshot change subscriptions.
// It backs tests and DSN-less development runs.
package inmemdb

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core/class"
	"github.com/yair681/pirhei-aharon/core/profile"
	"github.com/yair681/pirhei-aharon/core/stream"
)

var errClosed = errors.New("inmemdb: store closed")

type (
	profileSub struct {
		filter profile.QueryFilter
		ch     chan []profile.Profile
		once   sync.Once
	}
	classSub struct {
		ch   chan []class.Class
		once sync.Once
	}
	annSub struct {
		filter stream.AnnouncementFilter
		ch     chan []stream.Announcement
		once   sync.Once
	}
	asgSub struct {
		classID string
		ch      chan []stream.Assignment
		once    sync.Once
	}

	DB struct {
		mu            sync.RWMutex
		profiles      map[string]profile.Profile
		classes       map[string]class.Class
		announcements map[string]stream.Announcement
		assignments   map[string]stream.Assignment

		subMu       sync.Mutex
		nextSubID   int
		profileSubs map[int]*profileSub
		classSubs   map[int]*classSub
		annSubs     map[int]*annSub
		asgSubs     map[int]*asgSub
		closed      bool
	}
)

func Open() (*DB, error) {
	return &DB{
		profiles:      make(map[string]profile.Profile),
		classes:       make(map[string]class.Class),
		announcements: make(map[string]stream.Announcement),
		assignments:   make(map[string]stream.Assignment),
		profileSubs:   make(map[int]*profileSub),
		classSubs:     make(map[int]*classSub),
		annSubs:       make(map[int]*annSub),
		asgSubs:       make(map[int]*asgSub),
	}, nil
}

// Close releases every live subscription.
func (db *DB) Close() error {
	db.subMu.Lock()
	defer db.subMu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	for _, sub := range db.profileSubs {
		sub.once.Do(func() { close(sub.ch) })
	}
	for _, sub := range db.classSubs {
		sub.once.Do(func() { close(sub.ch) })
	}
	for _, sub := range db.annSubs {
		sub.once.Do(func() { close(sub.ch) })
	}
	for _, sub := range db.asgSubs {
		sub.once.Do(func() { close(sub.ch) })
	}
	db.profileSubs = map[int]*profileSub{}
	db.classSubs = map[int]*classSub{}
	db.annSubs = map[int]*annSub{}
	db.asgSubs = map[int]*asgSub{}
	return nil
}

type sortKey struct {
	t  time.Time
	id string
}

func sortNewestFirst[T any](items []T, key func(T) sortKey) {
	sort.Slice(items, func(i, j int) bool {
		ki, kj := key(items[i]), key(items[j])
		if !ki.t.Equal(kj.t) {
			return ki.t.After(kj.t)
		}
		return ki.id < kj.id
	})
}

// push delivers a snapshot without ever blocking a writer: with a
// one-slot buffer the stale snapshot is dropped and replaced.
func push[T any](ch chan []T, snap []T) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
