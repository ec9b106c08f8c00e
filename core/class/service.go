package class

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/profile"
)

var (
	// errors
	ErrNotFound    = errors.New("class not found")
	ErrMemberMixed = errors.New("already a member of this class in another role")
	ErrBadRole     = errors.New("membership role must be student or teacher")
)

type (
	Repository interface {
		GetClass(ctx context.Context, id string) (Class, error)
		CreateClass(ctx context.Context, cls Class) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClass(ctx context.Context, id string) error
		QueryAllClasses(ctx context.Context) ([]Class, error)
		// SubscribeClasses yields the full class set again after every
		// change; the release func is safe on every exit path.
		SubscribeClasses(ctx context.Context) (<-chan []Class, func(), error)
	}

	// Service is the membership workflow plus class lifecycle.
	Service interface {
		Create(ctx context.Context, actor profile.Profile, nc NewClass) (Class, error)
		Delete(ctx context.Context, actor profile.Profile, id string) error
		Get(ctx context.Context, id string) (Class, error)
		VisibleTo(ctx context.Context, actor profile.Profile) ([]Class, error)
		AddMember(ctx context.Context, actor profile.Profile, classID, userID, role string) (Class, error)
		RemoveMember(ctx context.Context, actor profile.Profile, classID, userID, role string) (Class, error)
		EligibleMembers(ctx context.Context, classID, role string) ([]profile.Profile, error)
		Subscribe(ctx context.Context) (<-chan []Class, func(), error)
	}

	service struct {
		repo     Repository
		profiles profile.Repository
		validate *validator.Validate
		log      core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, profiles profile.Repository, validate *validator.Validate, log core.Logger) Service {
	return &service{
		repo:     repo,
		profiles: profiles,
		validate: validate,
		log:      log,
	}
}

// Create makes a new class; teachers and admins only. The creator
// becomes the owner and is seeded into the teacher set.
func (svc *service) Create(ctx context.Context, actor profile.Profile, nc NewClass) (Class, error) {
	if !(actor.IsAdmin() || actor.IsTeacher()) {
		return Class{}, core.ErrForbidden
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Class{}, err
	}
	cls := Class{
		ID:         uuid.NewString(),
		Name:       nc.Name,
		OwnerID:    actor.ID,
		OwnerName:  actor.Name,
		TeacherIDs: []string{actor.ID},
		StudentIDs: []string{},
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateClass(ctx, cls)
}

// Delete removes a class; admins and the owner only.
func (svc *service) Delete(ctx context.Context, actor profile.Profile, id string) error {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if !(actor.IsAdmin() || actor.ID == cls.OwnerID) {
		return core.ErrForbidden
	}
	return svc.repo.DeleteClass(ctx, id)
}

func (svc *service) Get(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

// VisibleTo narrows the class list to what the actor may see: students
// their member classes, teachers their owned or co-taught classes,
// admins everything.
func (svc *service) VisibleTo(ctx context.Context, actor profile.Profile) ([]Class, error) {
	all, err := svc.repo.QueryAllClasses(ctx)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return all, nil
	}
	visible := make([]Class, 0, len(all))
	for _, cls := range all {
		switch {
		case actor.IsTeacher() && (cls.OwnerID == actor.ID || cls.HasTeacher(actor.ID)):
			visible = append(visible, cls)
		case actor.IsStudent() && cls.HasStudent(actor.ID):
			visible = append(visible, cls)
		}
	}
	return visible, nil
}

// AddMember inserts userID into the role-appropriate set. Idempotent:
// re-adding a present member is a no-op. A member may not hold both
// roles in one class.
func (svc *service) AddMember(ctx context.Context, actor profile.Profile, classID, userID, role string) (Class, error) {
	cls, err := svc.staffClass(ctx, actor, classID)
	if err != nil {
		return Class{}, err
	}
	target, err := svc.profiles.GetProfile(ctx, userID)
	if err != nil {
		return Class{}, err
	}

	switch role {
	case profile.RoleStudent:
		if cls.HasStudent(userID) {
			return cls, nil
		}
		if cls.HasTeacher(userID) {
			return Class{}, core.NewValidationError(ErrMemberMixed)
		}
		if !target.IsStudent() {
			return Class{}, core.NewValidationError(errors.Errorf("profile %s is not a student", userID))
		}
		cls.StudentIDs = append(cls.StudentIDs, userID)
	case profile.RoleTeacher:
		if cls.HasTeacher(userID) {
			return cls, nil
		}
		if cls.HasStudent(userID) {
			return Class{}, core.NewValidationError(ErrMemberMixed)
		}
		if !target.IsTeacher() && !target.IsAdmin() {
			return Class{}, core.NewValidationError(errors.Errorf("profile %s is not a teacher", userID))
		}
		cls.TeacherIDs = append(cls.TeacherIDs, userID)
	default:
		return Class{}, core.NewValidationError(ErrBadRole)
	}
	return svc.repo.UpdateClass(ctx, cls)
}

// RemoveMember removes userID from the role-appropriate set. The owner
// can never be removed. Removing an absent member is a no-op.
func (svc *service) RemoveMember(ctx context.Context, actor profile.Profile, classID, userID, role string) (Class, error) {
	cls, err := svc.staffClass(ctx, actor, classID)
	if err != nil {
		return Class{}, err
	}
	if userID == cls.OwnerID {
		return Class{}, core.ErrProtectedEntity
	}

	switch role {
	case profile.RoleStudent:
		if !cls.HasStudent(userID) {
			return cls, nil
		}
		cls.StudentIDs = without(cls.StudentIDs, userID)
	case profile.RoleTeacher:
		if !cls.HasTeacher(userID) {
			return cls, nil
		}
		cls.TeacherIDs = without(cls.TeacherIDs, userID)
	default:
		return Class{}, core.NewValidationError(ErrBadRole)
	}
	return svc.repo.UpdateClass(ctx, cls)
}

// EligibleMembers returns profiles of the given role that belong to
// neither membership set of the class. Consumers recompute this from
// every snapshot rather than patching old state.
func (svc *service) EligibleMembers(ctx context.Context, classID, role string) ([]profile.Profile, error) {
	if role != profile.RoleStudent && role != profile.RoleTeacher {
		return nil, core.NewValidationError(ErrBadRole)
	}
	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	candidates, err := svc.profiles.FilterProfiles(ctx, profile.QueryFilter{Role: role})
	if err != nil {
		return nil, err
	}
	eligible := make([]profile.Profile, 0, len(candidates))
	for _, prof := range candidates {
		if !cls.HasMember(prof.ID) {
			eligible = append(eligible, prof)
		}
	}
	return eligible, nil
}

func (svc *service) Subscribe(ctx context.Context) (<-chan []Class, func(), error) {
	return svc.repo.SubscribeClasses(ctx)
}

// staffClass loads the class and checks the actor is staff for it:
// admin, or present in the teacher set.
func (svc *service) staffClass(ctx context.Context, actor profile.Profile, classID string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return Class{}, err
	}
	if !(actor.IsAdmin() || cls.HasTeacher(actor.ID)) {
		return Class{}, core.ErrForbidden
	}
	return cls, nil
}
