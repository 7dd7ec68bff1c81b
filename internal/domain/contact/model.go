package contact

import (
	"slices"
	"strings"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Field names used by every backend.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldCompany  = "company"
	FieldPosition = "position"
	FieldTags     = "tags"
)

// Contact is a person the team works with.
type Contact struct {
	ID        int64     `json:"id" yaml:"-"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	Phone     string    `json:"phone" yaml:"phone"`
	Company   string    `json:"company" yaml:"company"`
	Position  string    `json:"position" yaml:"position"`
	Tags      []string  `json:"tags" yaml:"tags"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Fields returns the stored representation of c.
func (c Contact) Fields() repository.Fields {
	tags := slices.Clone(c.Tags)
	if tags == nil {
		tags = []string{}
	}
	return repository.Fields{
		FieldName:     c.Name,
		FieldEmail:    c.Email,
		FieldPhone:    c.Phone,
		FieldCompany:  c.Company,
		FieldPosition: c.Position,
		FieldTags:     tags,
	}
}

// FromRecord converts a stored record into a Contact.
func FromRecord(rec repository.Record) Contact {
	tags := rec.Fields.Strings(FieldTags)
	if tags == nil {
		tags = []string{}
	}
	return Contact{
		ID:        rec.ID,
		Name:      rec.Fields.String(FieldName),
		Email:     rec.Fields.String(FieldEmail),
		Phone:     rec.Fields.String(FieldPhone),
		Company:   rec.Fields.String(FieldCompany),
		Position:  rec.Fields.String(FieldPosition),
		Tags:      tags,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// Matches reports whether query occurs in the name, email or company,
// ignoring case.
func (c Contact) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, s := range []string{c.Name, c.Email, c.Company} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}
