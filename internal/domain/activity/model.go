package activity

import (
	"slices"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Field names used by every backend.
const (
	FieldType        = "type"
	FieldSubject     = "subject"
	FieldDescription = "description"
	FieldContactID   = "contactId"
	FieldDealID      = "dealId"
	FieldTimestamp   = "timestamp"
	FieldDuration    = "duration"
)

// Type represents the kind of interaction that took place.
type Type string

const (
	TypeCall    Type = "call"
	TypeEmail   Type = "email"
	TypeMeeting Type = "meeting"
	TypeNote    Type = "note"
	TypeTask    Type = "task"
)

// Types lists the known activity types.
var Types = []Type{TypeCall, TypeEmail, TypeMeeting, TypeNote, TypeTask}

// Valid reports whether t is a known activity type.
func (t Type) Valid() bool {
	return slices.Contains(Types, t)
}

// Activity is one logged interaction with a contact.
type Activity struct {
	ID          int64     `json:"id" yaml:"-"`
	Type        Type      `json:"type" yaml:"type"`
	Subject     string    `json:"subject" yaml:"subject"`
	Description string    `json:"description" yaml:"description"`
	ContactID   int64     `json:"contact_id" yaml:"contact_id"`
	DealID      *int64    `json:"deal_id,omitempty" yaml:"deal_id"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Duration    *int      `json:"duration,omitempty" yaml:"duration"` // minutes
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// Fields returns the stored representation of a. Unset optional values are
// omitted.
func (a Activity) Fields() repository.Fields {
	f := repository.Fields{
		FieldType:        string(a.Type),
		FieldSubject:     a.Subject,
		FieldDescription: a.Description,
		FieldContactID:   a.ContactID,
		FieldTimestamp:   a.Timestamp,
	}
	if a.DealID != nil {
		f[FieldDealID] = *a.DealID
	}
	if a.Duration != nil {
		f[FieldDuration] = int64(*a.Duration)
	}
	return f
}

// FromRecord converts a stored record into an Activity.
func FromRecord(rec repository.Record) Activity {
	a := Activity{
		ID:          rec.ID,
		Type:        Type(rec.Fields.String(FieldType)),
		Subject:     rec.Fields.String(FieldSubject),
		Description: rec.Fields.String(FieldDescription),
		ContactID:   rec.Fields.Int(FieldContactID),
		Timestamp:   rec.Fields.Time(FieldTimestamp),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.Fields.Has(FieldDealID) {
		id := rec.Fields.Int(FieldDealID)
		a.DealID = &id
	}
	if rec.Fields.Has(FieldDuration) {
		d := int(rec.Fields.Int(FieldDuration))
		a.Duration = &d
	}
	return a
}

// SortNewestFirst orders activities by timestamp, most recent first. Ties keep
// their backend order.
func SortNewestFirst(list []Activity) {
	slices.SortStableFunc(list, func(a, b Activity) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
