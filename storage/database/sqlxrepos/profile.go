package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/profile"
)

type profileRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`
	IsSuperAdmin bool      `db:"is_super_admin"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row profileRow) toProfile() profile.Profile {
	return profile.Profile{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		Role:         row.Role,
		IsSuperAdmin: row.IsSuperAdmin,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func newProfileRow(prof profile.Profile) profileRow {
	return profileRow{
		ID:           prof.ID,
		Email:        prof.Email,
		Name:         prof.Name,
		Role:         prof.Role,
		IsSuperAdmin: prof.IsSuperAdmin,
		CreatedAt:    prof.CreatedAt,
		UpdatedAt:    prof.UpdatedAt,
	}
}

type profileRepository struct {
	db  *sqlx.DB
	dsn string
	log core.Logger
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *sqlx.DB, dsn string, log core.Logger) profile.Repository {
	return &profileRepository{db: db, dsn: dsn, log: log}
}

func (repo *profileRepository) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	var row profileRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM profile WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, errors.Wrap(err, "getting profile")
	}
	return row.toProfile(), nil
}

func (repo *profileRepository) GetProfileByEmail(ctx context.Context, email string) (profile.Profile, error) {
	var row profileRow
	// email is matched exactly as stored
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM profile WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, errors.Wrap(err, "getting profile by email")
	}
	return row.toProfile(), nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, prof profile.Profile) (profile.Profile, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO profile (id, email, name, role, is_super_admin, created_at, updated_at)
		VALUES (:id, :email, :name, :role, :is_super_admin, :created_at, :updated_at)`,
		newProfileRow(prof),
	)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "creating profile")
	}
	return prof, nil
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, prof profile.Profile) (profile.Profile, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE profile
		SET email = :email, name = :name, role = :role,
			is_super_admin = :is_super_admin, updated_at = :updated_at
		WHERE id = :id`,
		newProfileRow(prof),
	)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "updating profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return prof, nil
}

func (repo *profileRepository) DeleteProfile(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM profile WHERE id = $1`, id)
	return errors.Wrap(err, "deleting profile")
}

func (repo *profileRepository) FilterProfiles(ctx context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	var rows []profileRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM profile
		WHERE ($1 = '' OR role = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY created_at, id`,
		filter.Role, filter.Search,
	)
	if err != nil {
		return nil, errors.Wrap(err, "filtering profiles")
	}
	out := make([]profile.Profile, len(rows))
	for i, row := range rows {
		out[i] = row.toProfile()
	}
	return out, nil
}

func (repo *profileRepository) SubscribeProfiles(ctx context.Context, filter profile.QueryFilter) (<-chan []profile.Profile, func(), error) {
	return subscribe(repo.dsn, "profile", func(ctx context.Context) ([]profile.Profile, error) {
		return repo.FilterProfiles(ctx, filter)
	}, repo.log)
}
