// Package remote stores entity records in the hosted record service. Field
// names, list encoding and batch results are translated here so the rest of
// the application only sees repository types.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rpggio/crmdesk/internal/repository"
)

// DefaultPageSize bounds every fetch. Larger collections are truncated.
const DefaultPageSize = 100

// Adapter implements repository.Backend for one entity kind.
type Adapter struct {
	client   *Client
	schema   Schema
	pageSize int
	logger   *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPageSize sets the fetch page size.
func WithPageSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithLogger sets the logger that receives per-record failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter creates an adapter for kind.
func NewAdapter(client *Client, kind repository.Kind, opts ...Option) (*Adapter, error) {
	schema, ok := SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("no record service schema for kind %q", kind)
	}
	a := &Adapter{
		client:   client,
		schema:   schema,
		pageSize: DefaultPageSize,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Schema returns the schema the adapter translates with.
func (a *Adapter) Schema() Schema { return a.schema }

// List fetches the first page of records in the schema's default order.
func (a *Adapter) List(ctx context.Context) ([]repository.Record, error) {
	return a.fetch(ctx, nil)
}

// ListByParent fetches the records whose field equals parentID.
func (a *Adapter) ListByParent(ctx context.Context, field string, parentID int64) ([]repository.Record, error) {
	f, ok := a.schema.Field(field)
	if !ok || f.Type != TypeInteger {
		return nil, fmt.Errorf("%w: %s cannot be filtered by %q", repository.ErrInvalidInput, a.schema.Kind, field)
	}
	return a.fetch(ctx, []Condition{{
		FieldName: f.Remote,
		Operator:  OperatorEqualTo,
		Values:    []any{parentID},
	}})
}

func (a *Adapter) fetch(ctx context.Context, where []Condition) ([]repository.Record, error) {
	op := "fetch " + a.schema.Table
	resp, err := a.client.FetchRecords(ctx, a.schema.Table, FetchParams{
		Fields:     a.schema.Projection(),
		Where:      where,
		OrderBy:    a.schema.OrderBy,
		PagingInfo: &PagingInfo{Limit: a.pageSize, Offset: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !resp.Success {
		return nil, a.remoteFailure(op, resp.Message)
	}

	var raws []RawRecord
	if len(resp.Data) > 0 {
		if err := decodeData(resp.Data, &raws); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", repository.ErrTransport, op, err)
		}
	}

	out := make([]repository.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := a.schema.Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get fetches one record. A 404 reply or an empty result is ErrNotFound.
func (a *Adapter) Get(ctx context.Context, id int64) (repository.Record, error) {
	op := "get " + a.schema.Table
	resp, err := a.client.GetRecordByID(ctx, a.schema.Table, id, FetchParams{Fields: a.schema.Projection()})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return repository.Record{}, repository.ErrNotFound
		}
		return repository.Record{}, fmt.Errorf("%s: %w", op, err)
	}
	if !resp.Success {
		return repository.Record{}, a.remoteFailure(op, resp.Message)
	}

	var raw RawRecord
	if len(resp.Data) > 0 {
		if err := decodeData(resp.Data, &raw); err != nil {
			return repository.Record{}, fmt.Errorf("%w: %s: %w", repository.ErrTransport, op, err)
		}
	}
	if raw == nil {
		return repository.Record{}, repository.ErrNotFound
	}
	return a.schema.Decode(raw)
}

// Create submits a batch of one record.
func (a *Adapter) Create(ctx context.Context, fields repository.Fields) (repository.Record, error) {
	raw, err := a.schema.Encode(fields)
	if err != nil {
		return repository.Record{}, err
	}

	resp, err := a.client.CreateRecord(ctx, a.schema.Table, []RawRecord{raw})
	if err != nil {
		return repository.Record{}, fmt.Errorf("create %s: %w", a.schema.Table, err)
	}
	return a.writeResult("create", resp)
}

// Update submits a batch of one partial record. The record service rejects an
// unknown Id like any other invalid record, so a rejection is followed by a
// lookup and reported as ErrNotFound when the record does not exist.
func (a *Adapter) Update(ctx context.Context, id int64, fields repository.Fields) (repository.Record, error) {
	raw, err := a.schema.Encode(fields)
	if err != nil {
		return repository.Record{}, err
	}
	raw[FieldID] = id

	resp, err := a.client.UpdateRecord(ctx, a.schema.Table, []RawRecord{raw})
	if err != nil {
		return repository.Record{}, fmt.Errorf("update %s: %w", a.schema.Table, err)
	}
	rec, err := a.writeResult("update", resp)
	var recErr *repository.RecordError
	if errors.As(err, &recErr) {
		if _, getErr := a.Get(ctx, id); errors.Is(getErr, repository.ErrNotFound) {
			return repository.Record{}, repository.ErrNotFound
		}
	}
	return rec, err
}

// Delete submits a batch of one Id. When the record is rejected it returns
// false together with the *repository.RecordError describing why.
func (a *Adapter) Delete(ctx context.Context, id int64) (bool, error) {
	resp, err := a.client.DeleteRecord(ctx, a.schema.Table, []int64{id})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", a.schema.Table, err)
	}
	if !resp.Success {
		return false, a.remoteFailure("delete "+a.schema.Table, resp.Message)
	}
	if _, err := a.interpret("delete", resp.Results); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Adapter) writeResult(op string, resp *Response) (repository.Record, error) {
	if !resp.Success {
		return repository.Record{}, a.remoteFailure(op+" "+a.schema.Table, resp.Message)
	}
	succeeded, err := a.interpret(op, resp.Results)
	if err != nil {
		return repository.Record{}, err
	}
	if len(succeeded) == 0 || succeeded[0].Data == nil {
		return repository.Record{}, &repository.RemoteError{
			Op:      op + " " + a.schema.Table,
			Message: "reply carried no record",
		}
	}
	return a.schema.Decode(succeeded[0].Data)
}

// interpret logs every failed result and returns the successful ones. When no
// result succeeded the first failure is returned as a *repository.RecordError.
func (a *Adapter) interpret(op string, results []RecordResult) ([]RecordResult, error) {
	var (
		succeeded []RecordResult
		failed    []RecordResult
	)
	for _, r := range results {
		if r.Success {
			succeeded = append(succeeded, r)
		} else {
			failed = append(failed, r)
		}
	}

	for _, r := range failed {
		if len(r.Errors) == 0 {
			a.logger.Error("record rejected", "table", a.schema.Table, "op", op, "message", r.Message)
		}
		for _, fe := range r.Errors {
			a.logger.Error("record rejected",
				"table", a.schema.Table,
				"op", op,
				"field", fe.FieldLabel,
				"message", fe.Message,
			)
		}
	}
	if len(failed) > 0 {
		a.logger.Warn("batch write partially failed",
			"table", a.schema.Table,
			"op", op,
			"failed", len(failed),
			"succeeded", len(succeeded),
		)
	}

	if len(succeeded) == 0 && len(failed) > 0 {
		first := failed[0]
		recErr := &repository.RecordError{Op: op, Message: first.Message}
		for _, fe := range first.Errors {
			recErr.Fields = append(recErr.Fields, repository.FieldError{Field: fe.FieldLabel, Message: fe.Message})
		}
		return nil, recErr
	}
	return succeeded, nil
}

func (a *Adapter) remoteFailure(op, message string) error {
	a.logger.Error("record service reported failure", "table", a.schema.Table, "op", op, "message", message)
	return &repository.RemoteError{Op: op, Message: message}
}

func decodeData(data json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
