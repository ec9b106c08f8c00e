package profile

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
)

var (
	// errors
	ErrNotFound    = errors.New("profile not found")
	ErrEmailExists = errors.New("a profile with this email already exists")
)

// defaultSuperAdminName is the display name given to the bootstrapped
// super-admin, matching the original portal.
const defaultSuperAdminName = "מנהל ראשי"

type (
	// Repository is the observable contract of the profile store: point
	// reads and writes, filtered scans and push-based change
	// subscriptions.
	Repository interface {
		GetProfile(ctx context.Context, id string) (Profile, error)
		GetProfileByEmail(ctx context.Context, email string) (Profile, error)
		CreateProfile(ctx context.Context, prof Profile) (Profile, error)
		UpdateProfile(ctx context.Context, prof Profile) (Profile, error)
		DeleteProfile(ctx context.Context, id string) error
		// FilterProfiles applies AND on available QueryFilter fields.
		// QueryFilter.Search matches name or email case-insensitively.
		FilterProfiles(ctx context.Context, filter QueryFilter) ([]Profile, error)
		// SubscribeProfiles yields the full matching set again after
		// every change. The release func must be safe to call on every
		// exit path and more than once.
		SubscribeProfiles(ctx context.Context, filter QueryFilter) (<-chan []Profile, func(), error)
	}

	// Service is the provisioning workflow: bootstrap decision,
	// super-admin registration and role-gated user lifecycle.
	Service interface {
		BootstrapRequired(ctx context.Context) (bool, error)
		RegisterSuperAdmin(ctx context.Context, email, password string) (Profile, error)
		Create(ctx context.Context, actor Profile, np NewProfile) (Profile, error)
		Update(ctx context.Context, actor Profile, id string, up UpdateProfile) (Profile, error)
		Delete(ctx context.Context, actor Profile, id string) error
		GetByID(ctx context.Context, id string) (Profile, error)
		GetByEmail(ctx context.Context, email string) (Profile, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Profile, error)
		Subscribe(ctx context.Context, filter QueryFilter) (<-chan []Profile, func(), error)
	}

	service struct {
		conf     *core.Config
		repo     Repository
		creds    core.CredentialStore
		mailSvc  core.EmailService
		validate *validator.Validate
		log      core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	conf *core.Config,
	repo Repository,
	creds core.CredentialStore,
	mailSvc core.EmailService,
	validate *validator.Validate,
	log core.Logger,
) Service {
	return &service{
		conf:     conf,
		repo:     repo,
		creds:    creds,
		mailSvc:  mailSvc,
		validate: validate,
		log:      log,
	}
}

// BootstrapRequired reports whether the system is still in bootstrap
// mode: no admin profile exists yet.
func (svc *service) BootstrapRequired(ctx context.Context) (bool, error) {
	admins, err := svc.repo.FilterProfiles(ctx, QueryFilter{Role: RoleAdmin})
	if err != nil {
		return false, errors.Wrap(err, "querying admin profiles")
	}
	return len(admins) == 0, nil
}

// RegisterSuperAdmin is the only operation permitted in bootstrap mode.
// The email must match the configured super-admin email and the
// password must satisfy the credential store's minimum.
func (svc *service) RegisterSuperAdmin(ctx context.Context, email, password string) (Profile, error) {
	required, err := svc.BootstrapRequired(ctx)
	if err != nil {
		return Profile{}, err
	}
	if !required {
		return Profile{}, core.ErrForbidden
	}

	email = core.CleanString(email)
	if email != svc.conf.SuperAdminEmail {
		return Profile{}, core.ErrForbiddenEmail
	}
	if len(password) < 6 {
		return Profile{}, core.ErrWeakCredential
	}

	ident, err := svc.creds.Create(ctx, email, password)
	if err != nil {
		return Profile{}, err
	}

	now := time.Now().UTC()
	prof := Profile{
		ID:           ident.UID,
		Email:        email,
		Name:         defaultSuperAdminName,
		Role:         RoleAdmin,
		IsSuperAdmin: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	prof, err = svc.repo.CreateProfile(ctx, prof)
	if err != nil {
		// The identity already exists at this point; there is no
		// rollback path through the client-side credential contract.
		return Profile{}, errors.Wrap(err, "creating super-admin profile after identity creation")
	}
	svc.log.Info(fmt.Sprintf("super admin %q bootstrapped", email))
	return prof, nil
}

// Create provisions a user: identity first, then profile. Admins only,
// and only once out of bootstrap mode.
func (svc *service) Create(ctx context.Context, actor Profile, np NewProfile) (Profile, error) {
	if !actor.IsAdmin() {
		return Profile{}, core.ErrForbidden
	}
	required, err := svc.BootstrapRequired(ctx)
	if err != nil {
		return Profile{}, err
	}
	if required {
		return Profile{}, core.ErrForbidden
	}
	if err := np.Validate(svc.validate); err != nil {
		return Profile{}, err
	}

	// Email collision is detected by the credential store on identity
	// creation; the profile store check below only guards records
	// provisioned without an identity.
	if _, err := svc.repo.GetProfileByEmail(ctx, np.Email); err == nil {
		return Profile{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Profile{}, errors.Wrap(err, "checking email uniqueness")
	}

	ident, err := svc.creds.Create(ctx, np.Email, np.Password)
	if err != nil {
		return Profile{}, err
	}

	now := time.Now().UTC()
	prof := Profile{
		ID:        ident.UID,
		Email:     np.Email,
		Name:      np.Name,
		Role:      np.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	prof, err = svc.repo.CreateProfile(ctx, prof)
	if err != nil {
		// Known consistency gap: the identity is left behind and must
		// be removed manually with elevated credential-service access.
		svc.log.Error("profile write failed after identity creation", err, ident.UID)
		return Profile{}, errors.Wrap(err, "creating profile after identity creation")
	}

	svc.sendWelcomeMail(prof)
	return prof, nil
}

// Update edits a profile. Admins only; the super-admin profile may only
// be edited by the super-admin themself.
func (svc *service) Update(ctx context.Context, actor Profile, id string, up UpdateProfile) (Profile, error) {
	if !actor.IsAdmin() {
		return Profile{}, core.ErrForbidden
	}
	target, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if target.IsSuperAdmin && !actor.IsSuperAdmin {
		return Profile{}, core.ErrForbidden
	}
	if err := up.Validate(target, svc.validate); err != nil {
		return Profile{}, err
	}

	if up.Email != target.Email {
		if other, err := svc.repo.GetProfileByEmail(ctx, up.Email); err == nil && other.ID != target.ID {
			return Profile{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		} else if err != nil && errors.Cause(err) != ErrNotFound {
			return Profile{}, errors.Wrap(err, "checking email uniqueness")
		}
	}

	target.Name = up.Name
	target.Email = up.Email
	if !target.IsSuperAdmin { // the super-admin role is fixed
		target.Role = up.Role
	}
	target.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProfile(ctx, target)
}

// Delete removes a profile. The super-admin profile is protected. The
// backing identity survives; removing it needs administrative
// credential-service access and stays a manual step.
func (svc *service) Delete(ctx context.Context, actor Profile, id string) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	target, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if target.IsSuperAdmin {
		return core.ErrProtectedEntity
	}
	return svc.repo.DeleteProfile(ctx, id)
}

func (svc *service) GetByID(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return svc.repo.GetProfileByEmail(ctx, core.CleanString(email))
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Profile, error) {
	filter.Clean()
	return svc.repo.FilterProfiles(ctx, filter)
}

func (svc *service) Subscribe(ctx context.Context, filter QueryFilter) (<-chan []Profile, func(), error) {
	filter.Clean()
	return svc.repo.SubscribeProfiles(ctx, filter)
}

func (svc *service) sendWelcomeMail(prof Profile) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: prof.Name, Address: prof.Email}},
		Subject: fmt.Sprintf("%s - חשבון חדש", svc.conf.AppName),
		Body: fmt.Sprintf(
			"שלום %s,\n\nנוצר עבורך חשבון במערכת %s. ניתן להתחבר עם כתובת האימייל שלך.\n",
			prof.Name, svc.conf.AppName,
		),
	})
}
