package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/class"
)

type classRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	OwnerID    string         `db:"owner_id"`
	OwnerName  string         `db:"owner_name"`
	TeacherIDs pq.StringArray `db:"teacher_ids"`
	StudentIDs pq.StringArray `db:"student_ids"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (row classRow) toClass() class.Class {
	return class.Class{
		ID:         row.ID,
		Name:       row.Name,
		OwnerID:    row.OwnerID,
		OwnerName:  row.OwnerName,
		TeacherIDs: []string(row.TeacherIDs),
		StudentIDs: []string(row.StudentIDs),
		CreatedAt:  row.CreatedAt,
	}
}

func newClassRow(cls class.Class) classRow {
	return classRow{
		ID:         cls.ID,
		Name:       cls.Name,
		OwnerID:    cls.OwnerID,
		OwnerName:  cls.OwnerName,
		TeacherIDs: pq.StringArray(cls.TeacherIDs),
		StudentIDs: pq.StringArray(cls.StudentIDs),
		CreatedAt:  cls.CreatedAt,
	}
}

type classRepository struct {
	db  *sqlx.DB
	dsn string
	log core.Logger
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *sqlx.DB, dsn string, log core.Logger) class.Repository {
	return &classRepository{db: db, dsn: dsn, log: log}
}

func (repo *classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	var row classRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM class WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "getting class")
	}
	return row.toClass(), nil
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO class (id, name, owner_id, owner_name, teacher_ids, student_ids, created_at)
		VALUES (:id, :name, :owner_id, :owner_name, :teacher_ids, :student_ids, :created_at)`,
		newClassRow(cls),
	)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE class
		SET name = :name, owner_id = :owner_id, owner_name = :owner_name,
			teacher_ids = :teacher_ids, student_ids = :student_ids
		WHERE id = :id`,
		newClassRow(cls),
	)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}

func (repo *classRepository) DeleteClass(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id)
	return errors.Wrap(err, "deleting class")
}

func (repo *classRepository) QueryAllClasses(ctx context.Context) ([]class.Class, error) {
	var rows []classRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM class ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	out := make([]class.Class, len(rows))
	for i, row := range rows {
		out[i] = row.toClass()
	}
	return out, nil
}

func (repo *classRepository) SubscribeClasses(ctx context.Context) (<-chan []class.Class, func(), error) {
	return subscribe(repo.dsn, "class", repo.QueryAllClasses, repo.log)
}
