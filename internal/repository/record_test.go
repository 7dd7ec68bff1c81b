package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFields_CloneCopiesLists(t *testing.T) {
	orig := Fields{"name": "Ada", "tags": []string{"vip", "lead"}}

	clone := orig.Clone()
	clone["name"] = "Grace"
	clone["tags"].([]string)[0] = "changed"

	require.Equal(t, "Ada", orig.String("name"))
	require.Equal(t, []string{"vip", "lead"}, orig["tags"])
}

func TestFields_MergeKeepsOmitted(t *testing.T) {
	f := Fields{"name": "Ada", "email": "ada@example.com"}
	f.Merge(Fields{"email": "ada@analytical.io"})

	require.Equal(t, "Ada", f.String("name"))
	require.Equal(t, "ada@analytical.io", f.String("email"))
}

func TestFields_TypedGetters(t *testing.T) {
	now := time.Now()
	f := Fields{
		"value":     float64(1500.5),
		"contactId": int64(3),
		"done":      true,
		"at":        now,
	}

	require.Equal(t, 1500.5, f.Float("value"))
	require.Equal(t, int64(1500), f.Int("value"))
	require.Equal(t, int64(3), f.Int("contactId"))
	require.Equal(t, float64(3), f.Float("contactId"))
	require.True(t, f.Bool("done"))
	require.True(t, now.Equal(f.Time("at")))
	require.Empty(t, f.String("missing"))
	require.Nil(t, f.Strings("missing"))
}

func TestRecordError_MatchesValidation(t *testing.T) {
	err := &RecordError{
		Op:      "create",
		Message: "1 record failed",
		Fields:  []FieldError{{Field: "Email", Message: "invalid"}, {Field: "Name", Message: "required"}},
	}

	require.True(t, errors.Is(err, ErrValidation))
	require.Equal(t, "create rejected: 1 record failed (Email: invalid; Name: required)", err.Error())
}

func TestRemoteError_MatchesRemote(t *testing.T) {
	err := &RemoteError{Op: "fetch contact_c", Message: "quota exceeded"}
	require.ErrorIs(t, err, ErrRemote)
	require.Equal(t, "fetch contact_c: quota exceeded", err.Error())
}

func TestProblems_Err(t *testing.T) {
	errContact := errors.New("invalid contact input")

	var p Problems
	require.NoError(t, p.Err(errContact))

	p.Require("name", "  ")
	p.Require("email", "a@b.co")
	p.Add("phone", "is required")

	err := p.Err(errContact)
	require.ErrorIs(t, err, errContact)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Equal(t, "invalid contact input: name is required; phone is required", err.Error())

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	require.Len(t, inputErr.Fields, 2)
}

func TestFields_Has(t *testing.T) {
	f := Fields{"dealId": nil, "contactId": int64(2)}
	require.False(t, f.Has("dealId"))
	require.True(t, f.Has("contactId"))
	require.False(t, f.Has("missing"))
}
