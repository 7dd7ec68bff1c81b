package remote_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/rpggio/crmdesk/internal/remote"
	"github.com/rpggio/crmdesk/internal/remote/remotetest"
	"github.com/rpggio/crmdesk/internal/repository"
	"github.com/stretchr/testify/require"
)

func newAdapter(t *testing.T, srv *remotetest.Server, kind repository.Kind, opts ...remote.Option) *remote.Adapter {
	t.Helper()
	a, err := remote.NewAdapter(srv.Client(), kind, opts...)
	require.NoError(t, err)
	return a
}

func TestAdapter_CreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := remotetest.New(t)
	a := newAdapter(t, srv, repository.KindContact)

	created, err := a.Create(ctx, repository.Fields{
		"name":  "Ada",
		"email": "ada@analytical.io",
		"tags":  []string{"vip", "lead"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)
	require.False(t, created.CreatedAt.IsZero())

	stored := srv.Raw("contact_c", created.ID)
	require.Equal(t, "vip,lead", stored["Tags_c"])
	require.Equal(t, "Ada", stored["Name_c"])

	got, err := a.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"vip", "lead"}, got.Fields.Strings("tags"))
	require.Equal(t, "ada@analytical.io", got.Fields.String("email"))
}

func TestAdapter_CreateAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t, remotetest.New(t), repository.KindContact)

	var last int64
	for i := 0; i < 3; i++ {
		rec, err := a.Create(ctx, repository.Fields{"name": "n"})
		require.NoError(t, err)
		require.Greater(t, rec.ID, last)
		last = rec.ID
	}
}

func TestAdapter_UpdateChangesOnlySuppliedField(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t, remotetest.New(t), repository.KindDeal)

	rec, err := a.Create(ctx, repository.Fields{"title": "Renewal", "value": float64(500), "stage": "lead"})
	require.NoError(t, err)

	updated, err := a.Update(ctx, rec.ID, repository.Fields{"stage": "proposal"})
	require.NoError(t, err)
	require.Equal(t, "proposal", updated.Fields.String("stage"))
	require.Equal(t, "Renewal", updated.Fields.String("title"))
	require.Equal(t, float64(500), updated.Fields.Float("value"))
}

func TestAdapter_DeleteThenGetIsNotFound(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t, remotetest.New(t), repository.KindTask)

	rec, err := a.Create(ctx, repository.Fields{"title": "Call back", "completed": false})
	require.NoError(t, err)

	ok, err := a.Delete(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = a.Get(ctx, rec.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdapter_DeleteMissingReturnsFalse(t *testing.T) {
	a := newAdapter(t, remotetest.New(t), repository.KindTask)

	ok, err := a.Delete(context.Background(), 99)
	require.False(t, ok)
	require.ErrorIs(t, err, repository.ErrValidation)
	var recErr *repository.RecordError
	require.ErrorAs(t, err, &recErr)
	require.Equal(t, "Record does not exist", recErr.Message)
}

func TestAdapter_ListByParent(t *testing.T) {
	ctx := context.Background()
	srv := remotetest.New(t)
	a := newAdapter(t, srv, repository.KindDeal)

	for _, f := range []repository.Fields{
		{"title": "A", "contactId": int64(1)},
		{"title": "B", "contactId": int64(2)},
		{"title": "C", "contactId": int64(1)},
	} {
		_, err := a.Create(ctx, f)
		require.NoError(t, err)
	}

	deals, err := a.ListByParent(ctx, "contactId", 1)
	require.NoError(t, err)
	require.Len(t, deals, 2)
	for _, d := range deals {
		require.Equal(t, int64(1), d.Fields.Int("contactId"))
	}

	none, err := a.ListByParent(ctx, "contactId", 7)
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)

	_, err = a.ListByParent(ctx, "title", 1)
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	calls := srv.Calls()
	var params remote.FetchParams
	require.NoError(t, json.Unmarshal(calls[len(calls)-1].Body, &params))
	require.Equal(t, []remote.Condition{{FieldName: "ContactId_c", Operator: "EqualTo", Values: []any{float64(7)}}}, params.Where)
}

func TestAdapter_ListSendsProjectionOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	srv := remotetest.New(t)
	a := newAdapter(t, srv, repository.KindActivity, remote.WithPageSize(2))

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, subject := range []string{"first", "third", "second"} {
		offset := []time.Duration{0, 2 * time.Hour, time.Hour}[i]
		_, err := a.Create(ctx, repository.Fields{
			"subject":   subject,
			"contactId": int64(1),
			"timestamp": base.Add(offset),
		})
		require.NoError(t, err)
	}

	list, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "third", list[0].Fields.String("subject"))
	require.Equal(t, "second", list[1].Fields.String("subject"))

	calls := srv.Calls()
	last := calls[len(calls)-1]
	require.Equal(t, http.MethodPost, last.Method)
	require.Equal(t, "/api/records/activity_c/query", last.Path)
	require.NotEmpty(t, last.RequestID)

	var params remote.FetchParams
	require.NoError(t, json.Unmarshal(last.Body, &params))
	require.Equal(t, []remote.OrderBy{{FieldName: "Timestamp_c", SortType: "DESC"}}, params.OrderBy)
	require.Equal(t, &remote.PagingInfo{Limit: 2, Offset: 0}, params.PagingInfo)
	require.Equal(t, "Id", params.Fields[0].Field.Name)
	require.Contains(t, params.Fields, remote.FieldSpec{Field: remote.FieldName{Name: "Duration_c"}})
}

func TestAdapter_PerRecordFailureIsLoggedAndReturned(t *testing.T) {
	ctx := context.Background()
	srv := remotetest.New(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	a := newAdapter(t, srv, repository.KindContact, remote.WithLogger(logger))

	srv.FailNext("contact_c", remotetest.Failure{
		Message: "1 record failed",
		Errors:  []remote.FieldError{{FieldLabel: "Email_c", Message: "invalid email"}},
	})

	rec, err := a.Create(ctx, repository.Fields{"name": "Ada", "email": "nope"})
	require.Zero(t, rec.ID)
	require.ErrorIs(t, err, repository.ErrValidation)

	var recErr *repository.RecordError
	require.ErrorAs(t, err, &recErr)
	require.Equal(t, []repository.FieldError{{Field: "Email_c", Message: "invalid email"}}, recErr.Fields)

	require.Contains(t, logs.String(), "record rejected")
	require.Contains(t, logs.String(), "field=Email_c")
	require.Contains(t, logs.String(), `message="invalid email"`)
}

func TestAdapter_TopLevelFailureSurfacesMessage(t *testing.T) {
	ctx := context.Background()
	srv := remotetest.New(t)
	a := newAdapter(t, srv, repository.KindComment)

	srv.FailNext("comment_c", remotetest.Failure{TopLevel: true, Message: "quota exceeded"})

	_, err := a.Create(ctx, repository.Fields{"content": "hi"})
	require.ErrorIs(t, err, repository.ErrRemote)
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestAdapter_TransportFailures(t *testing.T) {
	ctx := context.Background()
	srv := remotetest.New(t)
	a := newAdapter(t, srv, repository.KindContact)

	srv.RespondNext("contact_c", http.StatusInternalServerError)
	_, err := a.List(ctx)
	require.ErrorIs(t, err, repository.ErrTransport)
	var statusErr *remote.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	srv.RespondNext("contact_c", http.StatusNotFound)
	_, err = a.Get(ctx, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)

	srv.Close()
	_, err = a.List(ctx)
	require.ErrorIs(t, err, repository.ErrTransport)
}

func TestAdapter_RejectsBadCredentials(t *testing.T) {
	srv := remotetest.New(t)
	client := remote.NewClient(srv.URL, remotetest.ProjectID, "wrong-key")
	a, err := remote.NewAdapter(client, repository.KindContact)
	require.NoError(t, err)

	_, err = a.List(context.Background())
	var statusErr *remote.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Equal(t, "invalid credentials", statusErr.Message)
}

func TestAdapter_CancelledContext(t *testing.T) {
	a := newAdapter(t, remotetest.New(t), repository.KindContact)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.List(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, repository.ErrTransport)
}

func TestNewAdapter_UnknownKind(t *testing.T) {
	_, err := remote.NewAdapter(remote.NewClient("http://localhost", "p", "k"), repository.Kind("invoice"))
	require.Error(t, err)
}

func TestAdapter_TagWithSeparatorIsRejectedBeforeSending(t *testing.T) {
	ctx := context.Background()
	srv := remotetest.New(t)
	a := newAdapter(t, srv, repository.KindContact)

	_, err := a.Create(ctx, repository.Fields{"name": "Ada", "tags": []string{"Smith, Jones & Co", "vip"}})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
	require.Empty(t, srv.Calls())

	rec, err := a.Create(ctx, repository.Fields{"name": "Ada", "tags": []string{"vip"}})
	require.NoError(t, err)
	_, err = a.Update(ctx, rec.ID, repository.Fields{"tags": []string{"a,b"}})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	got, err := a.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"vip"}, got.Fields.Strings("tags"))
}

func TestAdapter_UpdateMissingIsNotFound(t *testing.T) {
	a := newAdapter(t, remotetest.New(t), repository.KindDeal)

	_, err := a.Update(context.Background(), 99, repository.Fields{"stage": "proposal"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdapter_UpdateRejectedKeepsRecordError(t *testing.T) {
	ctx := context.Background()
	srv := remotetest.New(t)
	a := newAdapter(t, srv, repository.KindDeal)

	rec, err := a.Create(ctx, repository.Fields{"title": "Renewal", "value": float64(500)})
	require.NoError(t, err)

	srv.FailNext("deal_c", remotetest.Failure{
		Message: "1 record failed",
		Errors:  []remote.FieldError{{FieldLabel: "Value_c", Message: "must be positive"}},
	})
	_, err = a.Update(ctx, rec.ID, repository.Fields{"value": float64(-1)})
	require.ErrorIs(t, err, repository.ErrValidation)
	require.NotErrorIs(t, err, repository.ErrNotFound)
}
