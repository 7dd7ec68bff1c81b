// Package memstore keeps entity records in process memory. It stands in for
// the record service during development and tests, including its latency.
package memstore

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Default artificial latency window applied to every operation.
const (
	DefaultMinLatency = 150 * time.Millisecond
	DefaultMaxLatency = 400 * time.Millisecond
)

// Table implements repository.Backend for one entity kind.
type Table struct {
	kind repository.Kind

	mu      sync.Mutex
	records []repository.Record
	lastID  int64

	minLatency time.Duration
	maxLatency time.Duration
	now        func() time.Time
	logger     *slog.Logger

	seed []repository.Fields
}

// Option configures a Table.
type Option func(*Table)

// WithLatency sets the artificial latency window. Zero disables the delay.
func WithLatency(minDelay, maxDelay time.Duration) Option {
	return func(t *Table) {
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
		t.minLatency = minDelay
		t.maxLatency = maxDelay
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRecords preloads the table. IDs are assigned in order starting at 1.
func WithRecords(fields ...repository.Fields) Option {
	return func(t *Table) {
		t.seed = append(t.seed, fields...)
	}
}

// New creates an empty table for kind.
func New(kind repository.Kind, opts ...Option) *Table {
	t := &Table{
		kind:       kind,
		minLatency: DefaultMinLatency,
		maxLatency: DefaultMaxLatency,
		now:        time.Now,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, f := range t.seed {
		t.insert(f)
	}
	t.seed = nil
	return t
}

// Kind returns the entity kind stored in the table.
func (t *Table) Kind() repository.Kind { return t.kind }

// List returns a copy of every record in collection order.
func (t *Table) List(ctx context.Context) ([]repository.Record, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]repository.Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Get returns a copy of the record with the given ID.
func (t *Table) Get(ctx context.Context, id int64) (repository.Record, error) {
	if err := t.wait(ctx); err != nil {
		return repository.Record{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return repository.Record{}, repository.ErrNotFound
	}
	return t.records[i].Clone(), nil
}

// ListByParent returns copies of the records whose field equals parentID.
func (t *Table) ListByParent(ctx context.Context, field string, parentID int64) ([]repository.Record, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out := []repository.Record{}
	for _, rec := range t.records {
		if _, ok := rec.Fields[field]; !ok {
			continue
		}
		if rec.Fields.Int(field) == parentID {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// Create appends a new record and returns a copy of it.
func (t *Table) Create(ctx context.Context, fields repository.Fields) (repository.Record, error) {
	if err := t.wait(ctx); err != nil {
		return repository.Record{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.insert(fields)
	t.logger.Debug("record created", "kind", t.kind, "id", rec.ID)
	return rec.Clone(), nil
}

// Update merges fields over the stored record and returns a copy.
func (t *Table) Update(ctx context.Context, id int64, fields repository.Fields) (repository.Record, error) {
	if err := t.wait(ctx); err != nil {
		return repository.Record{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return repository.Record{}, repository.ErrNotFound
	}
	rec := &t.records[i]
	rec.Fields.Merge(fields)
	rec.UpdatedAt = t.now()

	t.logger.Debug("record updated", "kind", t.kind, "id", id)
	return rec.Clone(), nil
}

// Delete removes the record with the given ID. IDs are never reused.
func (t *Table) Delete(ctx context.Context, id int64) (bool, error) {
	if err := t.wait(ctx); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return false, repository.ErrNotFound
	}
	t.records = slices.Delete(t.records, i, i+1)

	t.logger.Debug("record deleted", "kind", t.kind, "id", id)
	return true, nil
}

// insert must be called with mu held (or before the table is shared).
func (t *Table) insert(fields repository.Fields) repository.Record {
	for _, rec := range t.records {
		if rec.ID > t.lastID {
			t.lastID = rec.ID
		}
	}
	t.lastID++

	now := t.now()
	rec := repository.Record{
		ID:        t.lastID,
		Fields:    fields.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.records = append(t.records, rec)
	return rec
}

func (t *Table) indexOf(id int64) int {
	for i := range t.records {
		if t.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Table) delay() time.Duration {
	span := t.maxLatency - t.minLatency
	if span <= 0 {
		return t.minLatency
	}
	return t.minLatency + time.Duration(rand.Int64N(int64(span)+1))
}

// wait blocks for the artificial latency. Cancellation is honoured only here,
// before any state is touched.
func (t *Table) wait(ctx context.Context) error {
	d := t.delay()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
