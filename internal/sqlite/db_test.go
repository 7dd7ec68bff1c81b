package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"id_sequences", "records"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	// Running again on an existing database is a no-op.
	require.NoError(t, db.RunMigrations())
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

// TestRecordsTable verifies the records table constraints
func TestRecordsTable(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	// A record needs its kind's sequence row
	_, err := db.ExecContext(ctx,
		`INSERT INTO records (kind, id, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"contact", 1, "{}", "2025-01-01T00:00:00Z", "2025-01-01T00:00:00Z")
	require.Error(t, err, "should fail without a sequence row")

	_, err = db.ExecContext(ctx, `INSERT INTO id_sequences (kind, last_id) VALUES (?, ?)`, "contact", 1)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO records (kind, id, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"contact", 1, "{}", "2025-01-01T00:00:00Z", "2025-01-01T00:00:00Z")
	require.NoError(t, err)

	// Same kind and id twice violates the primary key
	_, err = db.ExecContext(ctx,
		`INSERT INTO records (kind, id, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"contact", 1, "{}", "2025-01-01T00:00:00Z", "2025-01-01T00:00:00Z")
	require.True(t, isUniqueViolation(err))
}
