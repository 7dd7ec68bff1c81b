package repository

import "context"

// Backend stores the records of a single entity kind.
//
// Implementations hand out copies: mutating a returned Record must never affect
// the backend. Failures are always reported through the returned error.
type Backend interface {
	// List returns every record in collection order.
	List(ctx context.Context) ([]Record, error)
	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id int64) (Record, error)
	// ListByParent returns the records whose field equals parentID. No match is
	// an empty result, not an error.
	ListByParent(ctx context.Context, field string, parentID int64) ([]Record, error)
	// Create stores a new record; the backend assigns ID and timestamps.
	Create(ctx context.Context, fields Fields) (Record, error)
	// Update merges fields over the stored record and refreshes UpdatedAt.
	Update(ctx context.Context, id int64, fields Fields) (Record, error)
	// Delete removes the record with the given ID.
	Delete(ctx context.Context, id int64) (bool, error)
}
