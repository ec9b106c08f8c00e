package profile

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/yair681/pirhei-aharon/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var (
	AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Profile is the application-level user record, keyed by the identity
// UID issued by the credential store. Email is stored as provided;
// lookups are case-sensitive.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (p Profile) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Profile) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Profile) IsStudent() bool { return p.Role == RoleStudent }

// NewProfile contains information needed to provision a new Profile.
type NewProfile struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,role"`
}

func (np *NewProfile) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Email = core.CleanString(np.Email)
	np.Role = core.CleanString(np.Role, true /* lower */)
	return validate.Struct(np)
}

// UpdateProfile defines what information may be provided to modify an
// existing Profile. Empty fields are left unchanged.
type UpdateProfile struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"omitempty,role"`
}

func (up *UpdateProfile) Validate(orig Profile, validate *validator.Validate) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	if email := core.CleanString(up.Email); email != "" {
		up.Email = email
	} else {
		up.Email = orig.Email
	}
	if role := core.CleanString(up.Role, true /* lower */); role != "" {
		up.Role = role
	} else {
		up.Role = orig.Role
	}
	return validate.Struct(up)
}

// QueryFilter selects profiles by role and/or a case-insensitive search
// on name or email.
type QueryFilter struct {
	Role   string `query:"role"`
	Search string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Role == "" && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

var (
	roleTag  = "role"
	roleText = "must be one of: student, teacher, admin"
)

// InitValidators registers profile-specific validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

func roleValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, role := range AllRoles {
		if val == role {
			return true
		}
	}
	return false
}
