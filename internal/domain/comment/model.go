package comment

import (
	"slices"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Field names used by every backend.
const (
	FieldContactID = "contactId"
	FieldAuthor    = "author"
	FieldContent   = "content"
	FieldTimestamp = "timestamp"
	FieldEdited    = "edited"
)

// Comment is a note left on a contact.
type Comment struct {
	ID        int64     `json:"id" yaml:"-"`
	ContactID int64     `json:"contact_id" yaml:"contact_id"`
	Author    string    `json:"author" yaml:"author"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Edited    bool      `json:"edited" yaml:"edited"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Fields returns the stored representation of c.
func (c Comment) Fields() repository.Fields {
	return repository.Fields{
		FieldContactID: c.ContactID,
		FieldAuthor:    c.Author,
		FieldContent:   c.Content,
		FieldTimestamp: c.Timestamp,
		FieldEdited:    c.Edited,
	}
}

// FromRecord converts a stored record into a Comment.
func FromRecord(rec repository.Record) Comment {
	return Comment{
		ID:        rec.ID,
		ContactID: rec.Fields.Int(FieldContactID),
		Author:    rec.Fields.String(FieldAuthor),
		Content:   rec.Fields.String(FieldContent),
		Timestamp: rec.Fields.Time(FieldTimestamp),
		Edited:    rec.Fields.Bool(FieldEdited),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func sortNewestFirst(list []Comment) {
	slices.SortStableFunc(list, func(a, b Comment) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
