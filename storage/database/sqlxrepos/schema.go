package sqlxrepos

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// notifyChannel is the single LISTEN/NOTIFY channel; the payload names
// the table that changed.
const notifyChannel = "pirhei_changed"

const schema = `
CREATE TABLE IF NOT EXISTS profile (
	id             TEXT PRIMARY KEY,
	email          TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	role           TEXT NOT NULL,
	is_super_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS class (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	owner_name  TEXT NOT NULL,
	teacher_ids TEXT[] NOT NULL DEFAULT '{}',
	student_ids TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS announcement (
	id          TEXT PRIMARY KEY,
	content     TEXT NOT NULL,
	author_id   TEXT NOT NULL,
	author_name TEXT NOT NULL,
	scope       TEXT NOT NULL,
	class_id    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assignment (
	id          TEXT PRIMARY KEY,
	class_id    TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	author_id   TEXT NOT NULL,
	author_name TEXT NOT NULL,
	due_date    TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE OR REPLACE FUNCTION pirhei_notify_changed() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('pirhei_changed', TG_TABLE_NAME);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS profile_changed ON profile;
CREATE TRIGGER profile_changed AFTER INSERT OR UPDATE OR DELETE ON profile
	FOR EACH STATEMENT EXECUTE PROCEDURE pirhei_notify_changed();

DROP TRIGGER IF EXISTS class_changed ON class;
CREATE TRIGGER class_changed AFTER INSERT OR UPDATE OR DELETE ON class
	FOR EACH STATEMENT EXECUTE PROCEDURE pirhei_notify_changed();

DROP TRIGGER IF EXISTS announcement_changed ON announcement;
CREATE TRIGGER announcement_changed AFTER INSERT OR UPDATE OR DELETE ON announcement
	FOR EACH STATEMENT EXECUTE PROCEDURE pirhei_notify_changed();

DROP TRIGGER IF EXISTS assignment_changed ON assignment;
CREATE TRIGGER assignment_changed AFTER INSERT OR UPDATE OR DELETE ON assignment
	FOR EACH STATEMENT EXECUTE PROCEDURE pirhei_notify_changed();
`

// EnsureSchema creates the tables and change-notification triggers.
func EnsureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "ensuring schema")
	}
	return nil
}
