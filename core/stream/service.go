package stream

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/class"
	"github.com/yair681/pirhei-aharon/core/profile"
)

var (
	// errors
	ErrNotFound = errors.New("post not found")
)

type (
	Repository interface {
		GetAnnouncement(ctx context.Context, id string) (Announcement, error)
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error
		// FilterAnnouncements returns matches sorted newest first.
		FilterAnnouncements(ctx context.Context, filter AnnouncementFilter) ([]Announcement, error)
		SubscribeAnnouncements(ctx context.Context, filter AnnouncementFilter) (<-chan []Announcement, func(), error)

		GetAssignment(ctx context.Context, id string) (Assignment, error)
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		// ClassAssignments returns the class's assignments newest first.
		ClassAssignments(ctx context.Context, classID string) ([]Assignment, error)
		SubscribeAssignments(ctx context.Context, classID string) (<-chan []Assignment, func(), error)
	}

	// Service posts and deletes announcements and assignments,
	// enforcing scope-based posting rights and author/staff deletion.
	Service interface {
		PostAnnouncement(ctx context.Context, actor profile.Profile, na NewAnnouncement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, actor profile.Profile, id string) error
		// PublicAnnouncements serves the global board; readable without
		// an authorized session.
		PublicAnnouncements(ctx context.Context) ([]Announcement, error)
		ClassStream(ctx context.Context, actor profile.Profile, classID string) ([]Announcement, error)

		CreateAssignment(ctx context.Context, actor profile.Profile, na NewAssignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, actor profile.Profile, id string) error
		ClassAssignments(ctx context.Context, actor profile.Profile, classID string) ([]Assignment, error)
	}

	service struct {
		repo     Repository
		classes  class.Repository
		validate *validator.Validate
		log      core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, classes class.Repository, validate *validator.Validate, log core.Logger) Service {
	return &service{
		repo:     repo,
		classes:  classes,
		validate: validate,
		log:      log,
	}
}

// PostAnnouncement publishes to the global board (teachers and admins)
// or to a class stream (class staff).
func (svc *service) PostAnnouncement(ctx context.Context, actor profile.Profile, na NewAnnouncement) (Announcement, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Announcement{}, err
	}
	switch na.Scope {
	case ScopeGlobal:
		if !(actor.IsAdmin() || actor.IsTeacher()) {
			return Announcement{}, core.ErrForbidden
		}
	case ScopeClass:
		if _, err := svc.staffClass(ctx, actor, na.ClassID); err != nil {
			return Announcement{}, err
		}
	}
	ann := Announcement{
		ID:         uuid.NewString(),
		Content:    na.Content,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Scope:      na.Scope,
		ClassID:    na.ClassID,
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateAnnouncement(ctx, ann)
}

// DeleteAnnouncement is allowed for the author and for staff of the
// announcement's scope.
func (svc *service) DeleteAnnouncement(ctx context.Context, actor profile.Profile, id string) error {
	ann, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return err
	}
	if ann.AuthorID != actor.ID {
		switch ann.Scope {
		case ScopeGlobal:
			if !(actor.IsAdmin() || actor.IsTeacher()) {
				return core.ErrForbidden
			}
		case ScopeClass:
			if _, err := svc.staffClass(ctx, actor, ann.ClassID); err != nil {
				return err
			}
		}
	}
	return svc.repo.DeleteAnnouncement(ctx, id)
}

func (svc *service) PublicAnnouncements(ctx context.Context) ([]Announcement, error) {
	return svc.repo.FilterAnnouncements(ctx, AnnouncementFilter{Scope: ScopeGlobal})
}

// ClassStream lists a class's announcements; members and staff only.
func (svc *service) ClassStream(ctx context.Context, actor profile.Profile, classID string) ([]Announcement, error) {
	if err := svc.memberClass(ctx, actor, classID); err != nil {
		return nil, err
	}
	return svc.repo.FilterAnnouncements(ctx, AnnouncementFilter{Scope: ScopeClass, ClassID: classID})
}

// CreateAssignment posts an assignment to a class; class staff only.
func (svc *service) CreateAssignment(ctx context.Context, actor profile.Profile, na NewAssignment) (Assignment, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Assignment{}, err
	}
	if _, err := svc.staffClass(ctx, actor, na.ClassID); err != nil {
		return Assignment{}, err
	}
	asg := Assignment{
		ID:          uuid.NewString(),
		ClassID:     na.ClassID,
		Title:       na.Title,
		Description: na.Description,
		AuthorID:    actor.ID,
		AuthorName:  actor.Name,
		DueDate:     na.DueDate,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *service) DeleteAssignment(ctx context.Context, actor profile.Profile, id string) error {
	asg, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if asg.AuthorID != actor.ID {
		if _, err := svc.staffClass(ctx, actor, asg.ClassID); err != nil {
			return err
		}
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

func (svc *service) ClassAssignments(ctx context.Context, actor profile.Profile, classID string) ([]Assignment, error) {
	if err := svc.memberClass(ctx, actor, classID); err != nil {
		return nil, err
	}
	return svc.repo.ClassAssignments(ctx, classID)
}

func (svc *service) staffClass(ctx context.Context, actor profile.Profile, classID string) (class.Class, error) {
	cls, err := svc.classes.GetClass(ctx, classID)
	if err != nil {
		return class.Class{}, err
	}
	if !(actor.IsAdmin() || cls.HasTeacher(actor.ID)) {
		return class.Class{}, core.ErrForbidden
	}
	return cls, nil
}

func (svc *service) memberClass(ctx context.Context, actor profile.Profile, classID string) error {
	cls, err := svc.classes.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	if !(actor.IsAdmin() || cls.HasMember(actor.ID)) {
		return core.ErrForbidden
	}
	return nil
}
