package task

import (
	"slices"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Field names used by every backend.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPriority    = "priority"
	FieldDueDate     = "dueDate"
	FieldCompleted   = "completed"
	FieldContactID   = "contactId"
)

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the known priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// Task is a to-do item, usually attached to a contact.
type Task struct {
	ID          int64      `json:"id" yaml:"-"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty" yaml:"due_date"`
	Completed   bool       `json:"completed" yaml:"completed"`
	ContactID   int64      `json:"contact_id,omitempty" yaml:"contact_id"`
	CreatedAt   time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"-"`
}

// Overdue reports whether t is open and past its due date.
func (t Task) Overdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// Fields returns the stored representation of t. Unset optional values are
// omitted.
func (t Task) Fields() repository.Fields {
	f := repository.Fields{
		FieldTitle:       t.Title,
		FieldDescription: t.Description,
		FieldPriority:    string(t.Priority),
		FieldCompleted:   t.Completed,
	}
	if t.DueDate != nil {
		f[FieldDueDate] = *t.DueDate
	}
	if t.ContactID > 0 {
		f[FieldContactID] = t.ContactID
	}
	return f
}

// FromRecord converts a stored record into a Task.
func FromRecord(rec repository.Record) Task {
	t := Task{
		ID:          rec.ID,
		Title:       rec.Fields.String(FieldTitle),
		Description: rec.Fields.String(FieldDescription),
		Priority:    Priority(rec.Fields.String(FieldPriority)),
		Completed:   rec.Fields.Bool(FieldCompleted),
		ContactID:   rec.Fields.Int(FieldContactID),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if due := rec.Fields.Time(FieldDueDate); !due.IsZero() {
		t.DueDate = &due
	}
	return t
}
