package credstore

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/yair681/pirhei-aharon/core"
)

const credentialSchema = `
CREATE TABLE IF NOT EXISTS credential (
	uid       TEXT PRIMARY KEY,
	email     TEXT UNIQUE,
	hash      BYTEA,
	signed_in BOOLEAN NOT NULL DEFAULT TRUE
);`

type credentialRow struct {
	UID      string         `db:"uid"`
	Email    sql.NullString `db:"email"` // NULL for anonymous identities
	Hash     []byte         `db:"hash"`
	SignedIn bool           `db:"signed_in"`
}

type sqlStore struct {
	db *sqlx.DB
}

var _ core.CredentialStore = (*sqlStore)(nil)

// NewSQLStore persists identities in Postgres alongside the rest of the
// data, so credentials survive process restarts and are shared between
// the API and the admin CLI. The in-memory store remains for DSN-less
// development and tests.
func NewSQLStore(db *sqlx.DB) (core.CredentialStore, error) {
	if _, err := db.Exec(credentialSchema); err != nil {
		return nil, errors.Wrap(err, "ensuring credential table")
	}
	return &sqlStore{db: db}, nil
}

func (st *sqlStore) Verify(ctx context.Context, email, password string) (core.Identity, error) {
	var row credentialRow
	err := st.db.GetContext(ctx, &row, `SELECT * FROM credential WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Identity{}, core.ErrInvalidCredential
		}
		return core.Identity{}, errors.Wrap(err, "reading credential")
	}
	if bcrypt.CompareHashAndPassword(row.Hash, []byte(password)) != nil {
		return core.Identity{}, core.ErrInvalidCredential
	}
	if _, err := st.db.ExecContext(ctx, `UPDATE credential SET signed_in = TRUE WHERE uid = $1`, row.UID); err != nil {
		return core.Identity{}, errors.Wrap(err, "signing in")
	}
	return core.Identity{UID: row.UID, Email: row.Email.String}, nil
}

func (st *sqlStore) Create(ctx context.Context, email, password string) (core.Identity, error) {
	if len(password) < minPasswordLen {
		return core.Identity{}, core.ErrWeakCredential
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.Identity{}, err
	}

	uid := uuid.NewString()
	_, err = st.db.ExecContext(ctx, `
		INSERT INTO credential (uid, email, hash, signed_in)
		VALUES ($1, $2, $3, TRUE)`,
		uid, email, hash,
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return core.Identity{}, core.ErrAlreadyRegistered
		}
		return core.Identity{}, errors.Wrap(err, "creating credential")
	}
	return core.Identity{UID: uid, Email: email}, nil
}

func (st *sqlStore) CreateAnonymous(ctx context.Context) (core.Identity, error) {
	uid := uuid.NewString()
	_, err := st.db.ExecContext(ctx, `INSERT INTO credential (uid, signed_in) VALUES ($1, TRUE)`, uid)
	if err != nil {
		return core.Identity{}, errors.Wrap(err, "creating anonymous credential")
	}
	return core.Identity{UID: uid, Anonymous: true}, nil
}

func (st *sqlStore) Invalidate(ctx context.Context, ident core.Identity) error {
	_, err := st.db.ExecContext(ctx, `UPDATE credential SET signed_in = FALSE WHERE uid = $1`, ident.UID)
	return errors.Wrap(err, "invalidating credential")
}

func (st *sqlStore) IsAuthenticated(ctx context.Context, ident core.Identity) (bool, error) {
	var signedIn bool
	err := st.db.GetContext(ctx, &signedIn, `SELECT signed_in FROM credential WHERE uid = $1`, ident.UID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "reading credential state")
	}
	return signedIn, nil
}
