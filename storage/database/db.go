package database

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
)

// Open connects to Postgres with the configured DSN and verifies the
// connection.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", conf.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}
	return db, nil
}
