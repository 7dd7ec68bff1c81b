package repository

import (
	"slices"
	"time"
)

// Kind identifies one managed entity collection.
type Kind string

const (
	KindContact  Kind = "contact"
	KindDeal     Kind = "deal"
	KindTask     Kind = "task"
	KindActivity Kind = "activity"
	KindComment  Kind = "comment"
)

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{KindContact, KindDeal, KindTask, KindActivity, KindComment}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Fields maps field names to values. Values are string, int64, float64, bool,
// []string, time.Time or nil.
type Fields map[string]any

// Record is one stored entity instance.
type Record struct {
	ID        int64     `json:"id"`
	Fields    Fields    `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the fields; list values are copied.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// Merge overwrites f with every key present in patch. Keys absent from patch keep
// their prior value.
func (f Fields) Merge(patch Fields) {
	for k, v := range patch {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		f[k] = v
	}
}

// Clone returns a copy of r that shares no mutable state with it.
func (r Record) Clone() Record {
	r.Fields = r.Fields.Clone()
	return r
}

// String returns the string value of key, or "".
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Int returns the integer value of key. Float values are truncated.
func (f Fields) Int(key string) int64 {
	switch v := f[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Float returns the numeric value of key as float64.
func (f Fields) Float(key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the boolean value of key.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Strings returns a copy of the list value of key.
func (f Fields) Strings(key string) []string {
	list, _ := f[key].([]string)
	return slices.Clone(list)
}

// Time returns the time value of key, or the zero time.
func (f Fields) Time(key string) time.Time {
	t, _ := f[key].(time.Time)
	return t
}

// Has reports whether key is present with a non-nil value.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}
