// Package sqlxrepos implements the storage repositories over Postgres.
// Change subscriptions ride on LISTEN/NOTIFY: statement triggers notify a
// shared channel with the table name, and each subscriber re-queries its
// snapshot when its table changes.
package sqlxrepos

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
)

const (
	listenMinReconnect = 10 * time.Second
	listenMaxReconnect = time.Minute
	listenPingInterval = 90 * time.Second
)

// subscribe opens a dedicated listener connection and emits a fresh
// snapshot whenever table changes. The channel is buffered with a single
// slot and a pending snapshot is replaced rather than queued, so a slow
// consumer only ever sees the latest state.
func subscribe[T any](dsn, table string, fetch func(context.Context) ([]T, error), log core.Logger) (<-chan []T, func(), error) {
	listener := pq.NewListener(dsn, listenMinReconnect, listenMaxReconnect, nil)
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, nil, errors.Wrapf(err, "listening on %s", notifyChannel)
	}

	ch := make(chan []T, 1)
	done := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			_ = listener.Close()
		})
	}

	emit := func() {
		snap, err := fetch(context.Background())
		if err != nil {
			log.Error("subscription snapshot query failed", err, "table", table)
			return
		}
		for {
			select {
			case ch <- snap:
				return
			default:
			}
			select {
			case <-ch: // drop the stale snapshot
			default:
			}
		}
	}

	go func() {
		defer close(ch)
		emit()
		for {
			select {
			case <-done:
				return
			case n := <-listener.Notify:
				// n is nil after a reconnect; re-query to be safe.
				if n != nil && n.Extra != table {
					continue
				}
				emit()
			case <-time.After(listenPingInterval):
				if err := listener.Ping(); err != nil {
					log.Error("subscription listener ping failed", err, "table", table)
				}
			}
		}
	}()
	return ch, release, nil
}
