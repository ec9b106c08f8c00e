package stream

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yair681/pirhei-aharon/core"
)

// Announcement scopes
const (
	ScopeGlobal = "global"
	ScopeClass  = "class"
)

// Announcement is a message on the global board or a class stream.
type Announcement struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Scope      string    `json:"scope"`
	ClassID    string    `json:"class_id,omitempty"` // set iff Scope == ScopeClass
	CreatedAt  time.Time `json:"created_at"`         // UTC
}

// Assignment is a task posted to one class.
type Assignment struct {
	ID          string     `json:"id"`
	ClassID     string     `json:"class_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AuthorID    string     `json:"author_id"`
	AuthorName  string     `json:"author_name"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
}

type NewAnnouncement struct {
	Content string `json:"content" validate:"required"`
	Scope   string `json:"scope" validate:"required,oneof=global class"`
	ClassID string `json:"class_id" validate:"required_if=Scope class"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Content = core.CleanString(na.Content)
	na.Scope = core.CleanString(na.Scope, true /* lower */)
	return validate.Struct(na)
}

type NewAssignment struct {
	ClassID     string     `json:"class_id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// AnnouncementFilter selects announcements by scope and/or class.
type AnnouncementFilter struct {
	Scope   string
	ClassID string
}
