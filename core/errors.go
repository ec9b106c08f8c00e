package core

import "github.com/pkg/errors"

// Authorization taxonomy shared by every workflow. Each mutation has
// exactly one authorization check; the HTTP boundary maps these to
// user-visible responses.
var (
	// ErrForbidden is returned when the acting profile's role does not
	// permit the requested operation.
	ErrForbidden = errors.New("permission denied")

	// ErrForbiddenEmail is returned when super-admin registration is
	// attempted with an email other than the configured one.
	ErrForbiddenEmail = errors.New("this email may not register as super admin")

	// ErrProtectedEntity is returned on attempted mutation of the
	// super-admin profile or a class owner's membership.
	ErrProtectedEntity = errors.New("this entity is protected and cannot be modified")

	// ErrNotApproved is returned when a verified identity has no
	// profile: the signup was never approved by an administrator.
	ErrNotApproved = errors.New("account not approved by an administrator")
)

// Credential store taxonomy.
var (
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrAlreadyRegistered = errors.New("an account with this email already exists")
	ErrWeakCredential    = errors.New("password must be at least 6 characters")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
