package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table implements repository.Backend for one entity kind.
type Table struct {
	db     *DB
	kind   repository.Kind
	now    func() time.Time
	logger *slog.Logger
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) TableOption {
	return func(t *Table) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) TableOption {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTable creates a Table storing kind in db.
func NewTable(db *DB, kind repository.Kind, opts ...TableOption) *Table {
	t := &Table{
		db:     db,
		kind:   kind,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// List returns every record in Id order.
func (t *Table) List(ctx context.Context) ([]repository.Record, error) {
	query := `
		SELECT id, fields, created_at, updated_at
		FROM records
		WHERE kind = ?
		ORDER BY id
	`
	return t.query(ctx, query, string(t.kind))
}

// ListByParent returns the records whose field equals parentID, in Id order.
func (t *Table) ListByParent(ctx context.Context, field string, parentID int64) ([]repository.Record, error) {
	if !fieldNamePattern.MatchString(field) {
		return nil, fmt.Errorf("%w: invalid field name %q", repository.ErrInvalidInput, field)
	}
	query := `
		SELECT id, fields, created_at, updated_at
		FROM records
		WHERE kind = ? AND json_extract(fields, ?) = ?
		ORDER BY id
	`
	return t.query(ctx, query, string(t.kind), "$."+field+".v", parentID)
}

// Count returns the number of stored records.
func (t *Table) Count(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE kind = ?", string(t.kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s records: %w", t.kind, err)
	}
	return n, nil
}

// Get retrieves a record by ID.
func (t *Table) Get(ctx context.Context, id int64) (repository.Record, error) {
	query := `
		SELECT id, fields, created_at, updated_at
		FROM records
		WHERE kind = ? AND id = ?
	`
	rec, err := scanRecord(t.db.QueryRowContext(ctx, query, string(t.kind), id))
	if err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return repository.Record{}, err
		}
		return repository.Record{}, fmt.Errorf("failed to get %s record: %w", t.kind, err)
	}
	return rec, nil
}

// Create stores a new record under the next Id of the kind's sequence.
func (t *Table) Create(ctx context.Context, fields repository.Fields) (repository.Record, error) {
	encoded, err := encodeFields(fields)
	if err != nil {
		return repository.Record{}, err
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO id_sequences (kind, last_id) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET last_id = last_id + 1
		RETURNING last_id
	`, string(t.kind)).Scan(&id)
	if err != nil {
		return repository.Record{}, fmt.Errorf("failed to allocate %s id: %w", t.kind, err)
	}

	now := t.now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (kind, id, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(t.kind), id, encoded, formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.Record{}, fmt.Errorf("%s id %d already in use: %w", t.kind, id, err)
		}
		return repository.Record{}, fmt.Errorf("failed to create %s record: %w", t.kind, err)
	}

	if err := tx.Commit(); err != nil {
		return repository.Record{}, fmt.Errorf("failed to commit: %w", err)
	}

	stored, err := decodeFields(encoded)
	if err != nil {
		return repository.Record{}, err
	}

	t.logger.Debug("record created", "kind", t.kind, "id", id)
	return repository.Record{
		ID:        id,
		Fields:    stored,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Update merges fields over the stored record and refreshes UpdatedAt.
func (t *Table) Update(ctx context.Context, id int64, fields repository.Fields) (repository.Record, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx, `
		SELECT id, fields, created_at, updated_at
		FROM records
		WHERE kind = ? AND id = ?
	`, string(t.kind), id))
	if err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return repository.Record{}, err
		}
		return repository.Record{}, fmt.Errorf("failed to load %s record: %w", t.kind, err)
	}

	rec.Fields.Merge(fields)
	rec.UpdatedAt = t.now().UTC()

	encoded, err := encodeFields(rec.Fields)
	if err != nil {
		return repository.Record{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE records SET fields = ?, updated_at = ?
		WHERE kind = ? AND id = ?
	`, encoded, formatTime(rec.UpdatedAt), string(t.kind), id)
	if err != nil {
		return repository.Record{}, fmt.Errorf("failed to update %s record: %w", t.kind, err)
	}

	if err := tx.Commit(); err != nil {
		return repository.Record{}, fmt.Errorf("failed to commit: %w", err)
	}

	t.logger.Debug("record updated", "kind", t.kind, "id", id)
	return rec, nil
}

// Delete removes a record. Its Id stays allocated in the sequence.
func (t *Table) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := t.db.ExecContext(ctx, "DELETE FROM records WHERE kind = ? AND id = ?", string(t.kind), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s record: %w", t.kind, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, repository.ErrNotFound
	}

	t.logger.Debug("record deleted", "kind", t.kind, "id", id)
	return true, nil
}

func (t *Table) query(ctx context.Context, query string, args ...any) ([]repository.Record, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", t.kind, err)
	}
	defer rows.Close()

	out := []repository.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", t.kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s records: %w", t.kind, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (repository.Record, error) {
	var (
		rec                  repository.Record
		fields               string
		createdAt, updatedAt string
	)
	if err := s.Scan(&rec.ID, &fields, &createdAt, &updatedAt); err != nil {
		return repository.Record{}, err
	}

	var err error
	if rec.Fields, err = decodeFields(fields); err != nil {
		return repository.Record{}, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return repository.Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return repository.Record{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return rec, nil
}
