package remote

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// FieldType selects how a value is encoded on the wire.
type FieldType int

const (
	TypeString FieldType = iota
	TypeNumber
	TypeInteger
	TypeBool
	// TypeStringList is a list of strings sent as one comma-delimited string.
	TypeStringList
	// TypeTime is an RFC 3339 timestamp.
	TypeTime
)

// Field maps one local field to its remote name.
type Field struct {
	Name   string
	Remote string
	Type   FieldType
}

// Schema describes how one entity kind is stored by the record service.
type Schema struct {
	Kind    repository.Kind
	Table   string
	Fields  []Field
	OrderBy []OrderBy
}

var byCreatedDesc = []OrderBy{{FieldName: FieldCreatedDate, SortType: SortDesc}}

var byTimestampDesc = []OrderBy{{FieldName: "Timestamp_c", SortType: SortDesc}}

var schemas = map[repository.Kind]Schema{
	repository.KindContact: {
		Kind:  repository.KindContact,
		Table: "contact_c",
		Fields: []Field{
			{"name", "Name_c", TypeString},
			{"email", "Email_c", TypeString},
			{"phone", "Phone_c", TypeString},
			{"company", "Company_c", TypeString},
			{"position", "Position_c", TypeString},
			{"tags", "Tags_c", TypeStringList},
		},
		OrderBy: byCreatedDesc,
	},
	repository.KindDeal: {
		Kind:  repository.KindDeal,
		Table: "deal_c",
		Fields: []Field{
			{"title", "Title_c", TypeString},
			{"value", "Value_c", TypeNumber},
			{"stage", "Stage_c", TypeString},
			{"contactId", "ContactId_c", TypeInteger},
			{"probability", "Probability_c", TypeInteger},
			{"expectedCloseDate", "ExpectedCloseDate_c", TypeTime},
		},
		OrderBy: byCreatedDesc,
	},
	repository.KindTask: {
		Kind:  repository.KindTask,
		Table: "task_c",
		Fields: []Field{
			{"title", "Title_c", TypeString},
			{"description", "Description_c", TypeString},
			{"priority", "Priority_c", TypeString},
			{"dueDate", "DueDate_c", TypeTime},
			{"completed", "Completed_c", TypeBool},
			{"contactId", "ContactId_c", TypeInteger},
		},
		OrderBy: byCreatedDesc,
	},
	repository.KindActivity: {
		Kind:  repository.KindActivity,
		Table: "activity_c",
		Fields: []Field{
			{"type", "Type_c", TypeString},
			{"subject", "Subject_c", TypeString},
			{"description", "Description_c", TypeString},
			{"contactId", "ContactId_c", TypeInteger},
			{"dealId", "DealId_c", TypeInteger},
			{"timestamp", "Timestamp_c", TypeTime},
			{"duration", "Duration_c", TypeInteger},
		},
		OrderBy: byTimestampDesc,
	},
	repository.KindComment: {
		Kind:  repository.KindComment,
		Table: "comment_c",
		Fields: []Field{
			{"contactId", "ContactId_c", TypeInteger},
			{"author", "Author_c", TypeString},
			{"content", "Content_c", TypeString},
			{"timestamp", "Timestamp_c", TypeTime},
			{"edited", "Edited_c", TypeBool},
		},
		OrderBy: byTimestampDesc,
	},
}

// SchemaFor returns the schema of kind.
func SchemaFor(kind repository.Kind) (Schema, bool) {
	s, ok := schemas[kind]
	return s, ok
}

// Field returns the mapping of a local field name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Projection lists every field a read requests, including system fields.
func (s Schema) Projection() []FieldSpec {
	out := make([]FieldSpec, 0, len(s.Fields)+3)
	out = append(out, FieldSpec{Field: FieldName{Name: FieldID}})
	for _, f := range s.Fields {
		out = append(out, FieldSpec{Field: FieldName{Name: f.Remote}})
	}
	out = append(out,
		FieldSpec{Field: FieldName{Name: FieldCreatedDate}},
		FieldSpec{Field: FieldName{Name: FieldLastModifiedDate}},
	)
	return out
}

// Encode converts local fields into a remote record. Unknown fields are
// rejected with repository.ErrInvalidInput.
func (s Schema) Encode(fields repository.Fields) (RawRecord, error) {
	out := make(RawRecord, len(fields))
	for name, v := range fields {
		f, ok := s.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no field %q", repository.ErrInvalidInput, s.Kind, name)
		}
		enc, err := encodeValue(f, v)
		if err != nil {
			return nil, err
		}
		out[f.Remote] = enc
	}
	return out, nil
}

// Decode converts a remote record into a local one. Remote fields outside
// the schema are ignored; null values are left out.
func (s Schema) Decode(raw RawRecord) (repository.Record, error) {
	id, ok := toInt(raw[FieldID])
	if !ok || id <= 0 {
		return repository.Record{}, fmt.Errorf("%w: %s record without a valid Id", repository.ErrTransport, s.Table)
	}

	rec := repository.Record{ID: id, Fields: repository.Fields{}}
	for _, f := range s.Fields {
		v, present := raw[f.Remote]
		if !present || v == nil {
			continue
		}
		dec, err := decodeValue(f, v)
		if err != nil {
			return repository.Record{}, fmt.Errorf("%w: %s.%s: %w", repository.ErrTransport, s.Table, f.Remote, err)
		}
		rec.Fields[f.Name] = dec
	}
	rec.CreatedAt, _ = toTime(raw[FieldCreatedDate])
	rec.UpdatedAt, _ = toTime(raw[FieldLastModifiedDate])
	return rec, nil
}

func encodeValue(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	bad := func() error {
		return fmt.Errorf("%w: field %q: unexpected %T", repository.ErrInvalidInput, f.Name, v)
	}
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, bad()
		}
		return s, nil
	case TypeNumber:
		n, ok := toFloat(v)
		if !ok {
			return nil, bad()
		}
		return n, nil
	case TypeInteger:
		n, ok := toInt(v)
		if !ok {
			return nil, bad()
		}
		return n, nil
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, bad()
		}
		return b, nil
	case TypeStringList:
		list, ok := v.([]string)
		if !ok {
			return nil, bad()
		}
		for _, item := range list {
			if strings.Contains(item, ListSeparator) {
				return nil, fmt.Errorf("%w: field %q: %q contains %q", repository.ErrInvalidInput, f.Name, item, ListSeparator)
			}
		}
		return JoinList(list), nil
	case TypeTime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, bad()
		}
		if t.IsZero() {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	}
	return nil, bad()
}

func decodeValue(f Field, v any) (any, error) {
	switch f.Type {
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case json.Number:
			return s.String(), nil
		}
	case TypeNumber:
		if n, ok := toFloat(v); ok {
			return n, nil
		}
	case TypeInteger:
		if n, ok := toInt(v); ok {
			return n, nil
		}
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
	case TypeStringList:
		if s, ok := v.(string); ok {
			return SplitList(s), nil
		}
	case TypeTime:
		if t, ok := toTime(v); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot decode %T", v)
}

// ListSeparator joins list items on the wire. Items containing it are
// rejected by Encode.
const ListSeparator = ","

// JoinList encodes a list as one comma-delimited string.
func JoinList(list []string) string {
	return strings.Join(list, ListSeparator)
}

// SplitList parses a comma-delimited string, trimming entries and dropping
// empty ones. The result is never nil.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ListSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// toInt accepts numbers, numeric strings and lookup objects carrying an Id.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
			return int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	case map[string]any:
		return toInt(n[FieldID])
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
