package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/stream"
)

type announcementRow struct {
	ID         string    `db:"id"`
	Content    string    `db:"content"`
	AuthorID   string    `db:"author_id"`
	AuthorName string    `db:"author_name"`
	Scope      string    `db:"scope"`
	ClassID    string    `db:"class_id"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row announcementRow) toAnnouncement() stream.Announcement {
	return stream.Announcement{
		ID:         row.ID,
		Content:    row.Content,
		AuthorID:   row.AuthorID,
		AuthorName: row.AuthorName,
		Scope:      row.Scope,
		ClassID:    row.ClassID,
		CreatedAt:  row.CreatedAt,
	}
}

type assignmentRow struct {
	ID          string     `db:"id"`
	ClassID     string     `db:"class_id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	AuthorID    string     `db:"author_id"`
	AuthorName  string     `db:"author_name"`
	DueDate     *time.Time `db:"due_date"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (row assignmentRow) toAssignment() stream.Assignment {
	return stream.Assignment{
		ID:          row.ID,
		ClassID:     row.ClassID,
		Title:       row.Title,
		Description: row.Description,
		AuthorID:    row.AuthorID,
		AuthorName:  row.AuthorName,
		DueDate:     row.DueDate,
		CreatedAt:   row.CreatedAt,
	}
}

type streamRepository struct {
	db  *sqlx.DB
	dsn string
	log core.Logger
}

var _ stream.Repository = (*streamRepository)(nil)

func NewStreamRepository(db *sqlx.DB, dsn string, log core.Logger) stream.Repository {
	return &streamRepository{db: db, dsn: dsn, log: log}
}

func (repo *streamRepository) GetAnnouncement(ctx context.Context, id string) (stream.Announcement, error) {
	var row announcementRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM announcement WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stream.Announcement{}, stream.ErrNotFound
		}
		return stream.Announcement{}, errors.Wrap(err, "getting announcement")
	}
	return row.toAnnouncement(), nil
}

func (repo *streamRepository) CreateAnnouncement(ctx context.Context, ann stream.Announcement) (stream.Announcement, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO announcement (id, content, author_id, author_name, scope, class_id, created_at)
		VALUES (:id, :content, :author_id, :author_name, :scope, :class_id, :created_at)`,
		announcementRow{
			ID:         ann.ID,
			Content:    ann.Content,
			AuthorID:   ann.AuthorID,
			AuthorName: ann.AuthorName,
			Scope:      ann.Scope,
			ClassID:    ann.ClassID,
			CreatedAt:  ann.CreatedAt,
		},
	)
	if err != nil {
		return stream.Announcement{}, errors.Wrap(err, "creating announcement")
	}
	return ann, nil
}

func (repo *streamRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM announcement WHERE id = $1`, id)
	return errors.Wrap(err, "deleting announcement")
}

func (repo *streamRepository) FilterAnnouncements(ctx context.Context, filter stream.AnnouncementFilter) ([]stream.Announcement, error) {
	var rows []announcementRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM announcement
		WHERE ($1 = '' OR scope = $1)
		  AND ($2 = '' OR class_id = $2)
		ORDER BY created_at DESC, id DESC`,
		filter.Scope, filter.ClassID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "filtering announcements")
	}
	out := make([]stream.Announcement, len(rows))
	for i, row := range rows {
		out[i] = row.toAnnouncement()
	}
	return out, nil
}

func (repo *streamRepository) SubscribeAnnouncements(ctx context.Context, filter stream.AnnouncementFilter) (<-chan []stream.Announcement, func(), error) {
	return subscribe(repo.dsn, "announcement", func(ctx context.Context) ([]stream.Announcement, error) {
		return repo.FilterAnnouncements(ctx, filter)
	}, repo.log)
}

func (repo *streamRepository) GetAssignment(ctx context.Context, id string) (stream.Assignment, error) {
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM assignment WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stream.Assignment{}, stream.ErrNotFound
		}
		return stream.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *streamRepository) CreateAssignment(ctx context.Context, asg stream.Assignment) (stream.Assignment, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO assignment (id, class_id, title, description, author_id, author_name, due_date, created_at)
		VALUES (:id, :class_id, :title, :description, :author_id, :author_name, :due_date, :created_at)`,
		assignmentRow{
			ID:          asg.ID,
			ClassID:     asg.ClassID,
			Title:       asg.Title,
			Description: asg.Description,
			AuthorID:    asg.AuthorID,
			AuthorName:  asg.AuthorName,
			DueDate:     asg.DueDate,
			CreatedAt:   asg.CreatedAt,
		},
	)
	if err != nil {
		return stream.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *streamRepository) DeleteAssignment(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM assignment WHERE id = $1`, id)
	return errors.Wrap(err, "deleting assignment")
}

func (repo *streamRepository) ClassAssignments(ctx context.Context, classID string) ([]stream.Assignment, error) {
	var rows []assignmentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM assignment WHERE class_id = $1
		ORDER BY created_at DESC, id DESC`,
		classID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying class assignments")
	}
	out := make([]stream.Assignment, len(rows))
	for i, row := range rows {
		out[i] = row.toAssignment()
	}
	return out, nil
}

func (repo *streamRepository) SubscribeAssignments(ctx context.Context, classID string) (<-chan []stream.Assignment, func(), error) {
	return subscribe(repo.dsn, "assignment", func(ctx context.Context) ([]stream.Assignment, error) {
		return repo.ClassAssignments(ctx, classID)
	}, repo.log)
}
