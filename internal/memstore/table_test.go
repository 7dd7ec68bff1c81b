package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rpggio/crmdesk/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestTable(t *testing.T, opts ...Option) *Table {
	t.Helper()
	return New(repository.KindContact, append([]Option{WithLatency(0, 0)}, opts...)...)
}

func TestTable_CreateAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	var last int64
	for i := 0; i < 5; i++ {
		rec, err := table.Create(ctx, repository.Fields{"name": "n"})
		require.NoError(t, err)
		require.Greater(t, rec.ID, last)
		last = rec.ID
	}
	require.Equal(t, int64(5), last)
}

func TestTable_Scenario_CreateDeleteList(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	a, err := table.Create(ctx, repository.Fields{"name": "A"})
	require.NoError(t, err)
	require.Equal(t, int64(1), a.ID)
	require.Equal(t, "A", a.Fields.String("name"))

	b, err := table.Create(ctx, repository.Fields{"name": "B"})
	require.NoError(t, err)
	require.Equal(t, int64(2), b.ID)

	ok, err := table.Delete(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	all, err := table.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, int64(2), all[0].ID)
	require.Equal(t, "B", all[0].Fields.String("name"))
}

func TestTable_UpdateMissingIsNotFound(t *testing.T) {
	table := newTestTable(t)

	_, err := table.Update(context.Background(), 999, repository.Fields{"name": "x"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTable_DeleteThenGetIsNotFound(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	rec, err := table.Create(ctx, repository.Fields{"name": "A"})
	require.NoError(t, err)

	_, err = table.Delete(ctx, rec.ID)
	require.NoError(t, err)

	_, err = table.Get(ctx, rec.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = table.Delete(ctx, rec.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTable_UpdateChangesOnlySuppliedField(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	clock := created

	table := newTestTable(t, WithClock(func() time.Time { return clock }))
	rec, err := table.Create(ctx, repository.Fields{
		"name":  "Ada",
		"email": "ada@example.com",
		"tags":  []string{"vip"},
	})
	require.NoError(t, err)

	clock = later
	updated, err := table.Update(ctx, rec.ID, repository.Fields{"email": "ada@analytical.io"})
	require.NoError(t, err)

	require.Equal(t, "ada@analytical.io", updated.Fields.String("email"))
	require.Equal(t, "Ada", updated.Fields.String("name"))
	require.Equal(t, []string{"vip"}, updated.Fields["tags"])
	require.Equal(t, created, updated.CreatedAt)
	require.Equal(t, later, updated.UpdatedAt)
}

func TestTable_IDsNeverReused(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	_, err := table.Create(ctx, repository.Fields{"name": "A"})
	require.NoError(t, err)
	b, err := table.Create(ctx, repository.Fields{"name": "B"})
	require.NoError(t, err)

	_, err = table.Delete(ctx, b.ID)
	require.NoError(t, err)

	c, err := table.Create(ctx, repository.Fields{"name": "C"})
	require.NoError(t, err)
	require.Equal(t, int64(3), c.ID)
}

func TestTable_ListByParent(t *testing.T) {
	ctx := context.Background()
	table := New(repository.KindTask, WithLatency(0, 0), WithRecords(
		repository.Fields{"title": "call", "contactId": int64(1)},
		repository.Fields{"title": "email", "contactId": int64(2)},
		repository.Fields{"title": "follow up", "contactId": int64(1)},
		repository.Fields{"title": "orphan"},
	))

	matches, err := table.ListByParent(ctx, "contactId", 1)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "call", matches[0].Fields.String("title"))
	require.Equal(t, "follow up", matches[1].Fields.String("title"))

	none, err := table.ListByParent(ctx, "contactId", 42)
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestTable_ReturnsDefensiveCopies(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	rec, err := table.Create(ctx, repository.Fields{"name": "A", "tags": []string{"one"}})
	require.NoError(t, err)
	rec.Fields["name"] = "mutated"
	rec.Fields["tags"].([]string)[0] = "mutated"

	first, err := table.List(ctx)
	require.NoError(t, err)
	second, err := table.List(ctx)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(first, second))

	first[0].Fields["name"] = "changed"
	first[0].Fields["tags"].([]string)[0] = "changed"

	stored, err := table.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "A", stored.Fields.String("name"))
	require.Equal(t, []string{"one"}, stored.Fields["tags"])
	require.Equal(t, "A", second[0].Fields.String("name"))
}

func TestTable_CreateCopiesInput(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	input := repository.Fields{"name": "A", "tags": []string{"x"}}
	rec, err := table.Create(ctx, input)
	require.NoError(t, err)

	input["name"] = "B"
	input["tags"].([]string)[0] = "y"

	stored, err := table.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "A", stored.Fields.String("name"))
	require.Equal(t, []string{"x"}, stored.Fields["tags"])
}

func TestTable_RoundTrip(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	input := repository.Fields{
		"title":     "Renewal",
		"value":     float64(12000),
		"contactId": int64(4),
		"stage":     "proposal",
	}
	rec, err := table.Create(ctx, input)
	require.NoError(t, err)

	got, err := table.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(input, got.Fields))
	require.False(t, got.CreatedAt.IsZero())
}

func TestTable_CancelledBeforeMutation(t *testing.T) {
	table := New(repository.KindContact, WithLatency(time.Second, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := table.Create(ctx, repository.Fields{"name": "A"})
	require.ErrorIs(t, err, context.Canceled)

	table.mu.Lock()
	require.Empty(t, table.records)
	table.mu.Unlock()
}

func TestTable_LatencyWithinWindow(t *testing.T) {
	table := New(repository.KindContact, WithLatency(10*time.Millisecond, 20*time.Millisecond))

	for i := 0; i < 20; i++ {
		d := table.delay()
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 20*time.Millisecond)
	}

	start := time.Now()
	_, err := table.List(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestTable_ConcurrentCreatesUniqueIDs(t *testing.T) {
	ctx := context.Background()
	table := New(repository.KindContact, WithLatency(0, 2*time.Millisecond))

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := table.Create(ctx, repository.Fields{"name": "x"})
			if err == nil {
				ids <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}

func TestTable_DeleteReleasesRemovedRecord(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	a, err := table.Create(ctx, repository.Fields{"name": "A"})
	require.NoError(t, err)
	_, err = table.Create(ctx, repository.Fields{"name": "B"})
	require.NoError(t, err)

	_, err = table.Delete(ctx, a.ID)
	require.NoError(t, err)

	table.mu.Lock()
	defer table.mu.Unlock()
	require.Len(t, table.records, 1)
	tail := table.records[:2][1]
	require.Zero(t, tail.ID)
	require.Nil(t, tail.Fields)
}
