package repository

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when a backend rejects caller-supplied fields
	ErrValidation = errors.New("validation failed")

	// ErrTransport is returned when the backend call itself could not complete
	ErrTransport = errors.New("transport failure")

	// ErrRemote is returned when the record service reports a top-level failure
	ErrRemote = errors.New("record service failure")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// FieldError describes a single rejected field reported by a backend.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RecordError reports a per-record failure inside a batch write.
type RecordError struct {
	Op      string       `json:"op"`
	Message string       `json:"message,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (e *RecordError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s rejected", e.Op)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(" (")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Field, f.Message)
		if i == len(e.Fields)-1 {
			b.WriteString(")")
		}
	}
	return b.String()
}

func (e *RecordError) Unwrap() error { return ErrValidation }

// RemoteError carries the message of a top-level record service failure.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: record service reported failure", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error { return ErrRemote }

// InputError lists the fields a service rejected before calling its backend.
// It matches both its Err sentinel and ErrInvalidInput.
type InputError struct {
	Err    error
	Fields []FieldError
}

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	if len(parts) == 0 {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InputError) Unwrap() []error { return []error{e.Err, ErrInvalidInput} }

// Problems collects field validation failures.
type Problems []FieldError

// Add records a failure for field.
func (p *Problems) Add(field, message string) {
	*p = append(*p, FieldError{Field: field, Message: message})
}

// Require records a failure when value is blank.
func (p *Problems) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		p.Add(field, "is required")
	}
}

// Err returns nil when nothing was recorded, otherwise an *InputError
// wrapping sentinel.
func (p Problems) Err(sentinel error) error {
	if len(p) == 0 {
		return nil
	}
	return &InputError{Err: sentinel, Fields: []FieldError(p)}
}
