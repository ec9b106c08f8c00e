package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yair681/pirhei-aharon/core"
)

// Class is a class entity with its membership sets. The owner is always
// present in TeacherIDs and an id appears in at most one of the two
// sets.
type Class struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"owner_id"`
	OwnerName  string    `json:"owner_name"`
	TeacherIDs []string  `json:"teacher_ids"`
	StudentIDs []string  `json:"student_ids"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

func (c Class) HasTeacher(id string) bool { return contains(c.TeacherIDs, id) }
func (c Class) HasStudent(id string) bool { return contains(c.StudentIDs, id) }
func (c Class) HasMember(id string) bool  { return c.HasTeacher(id) || c.HasStudent(id) }

// NewClass contains information needed to create a Class.
type NewClass struct {
	Name string `json:"name" validate:"required"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
