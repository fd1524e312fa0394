// Package storagetest runs the shared behaviour checks every storage.Store
// implementation must pass.
package storagetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"expenses/internal/core"
	"expenses/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Entry builds a valid entry for tests.
func Entry(id, date string, c core.Category, cents int64) core.Entry {
	return core.Entry{
		ID:          id,
		Date:        date,
		Month:       core.MonthKeyOf(date),
		Description: "expense " + id,
		Category:    c,
		Amount:      core.Money{Cents: cents},
		CreatedAt:   time.Date(2024, 5, 1, 10, 30, 0, 123456789, time.UTC),
	}
}

// RunStoreContract checks the Store contract against a fresh store from newStore.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store loads nothing", func(t *testing.T) {
		s := newStore(t)
		got, err := s.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("add then load round-trips every field", func(t *testing.T) {
		s := newStore(t)
		want := Entry("a", "2024-03-15", core.Food, 1050)
		require.NoError(t, s.Add(ctx, want))

		got, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, want.ID, got[0].ID)
		assert.Equal(t, want.Date, got[0].Date)
		assert.Equal(t, want.Month, got[0].Month)
		assert.Equal(t, want.Description, got[0].Description)
		assert.Equal(t, want.Category, got[0].Category)
		assert.Equal(t, want.Amount, got[0].Amount)
		assert.True(t, want.CreatedAt.Equal(got[0].CreatedAt), "created_at %v != %v", got[0].CreatedAt, want.CreatedAt)
	})

	t.Run("duplicate id is rejected without changing the stored entry", func(t *testing.T) {
		s := newStore(t)
		first := Entry("dup", "2024-03-15", core.Food, 100)
		require.NoError(t, s.Add(ctx, first))

		second := Entry("dup", "2024-04-01", core.Bills, 999)
		err := s.Add(ctx, second)
		require.ErrorIs(t, err, storage.ErrDuplicateKey)

		got, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, first.Amount, got[0].Amount)
		assert.Equal(t, first.Category, got[0].Category)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, Entry("a", "2024-03-15", core.Food, 100)))
		require.NoError(t, s.Add(ctx, Entry("b", "2024-03-16", core.Health, 200)))

		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "never-existed"))

		got, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, Entry("a", "2024-03-15", core.Food, 100)))
		require.NoError(t, s.Add(ctx, Entry("b", "2024-03-16", core.Health, 200)))

		require.NoError(t, s.Clear(ctx))
		got, err := s.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)

		// the collection is still usable afterwards
		require.NoError(t, s.Add(ctx, Entry("a", "2024-03-15", core.Food, 100)))
	})

	t.Run("secondary indexes", func(t *testing.T) {
		s := newStore(t)
		idx, ok := s.(storage.IndexReader)
		if !ok {
			t.Skip("store has no index reader")
		}
		require.NoError(t, s.Add(ctx, Entry("a", "2024-03-15", core.Food, 100)))
		require.NoError(t, s.Add(ctx, Entry("b", "2024-03-15", core.Transport, 200)))
		require.NoError(t, s.Add(ctx, Entry("c", "2024-04-01", core.Food, 300)))

		byDate, err := idx.ListByDate(ctx, "2024-03-15")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, sortedIDs(byDate))

		byCategory, err := idx.ListByCategory(ctx, core.Food)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, sortedIDs(byCategory))

		byMonth, err := idx.ListByMonth(ctx, "2024-04")
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, sortedIDs(byMonth))

		require.NoError(t, s.Delete(ctx, "a"))
		byDate, err = idx.ListByDate(ctx, "2024-03-15")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, sortedIDs(byDate))

		require.NoError(t, s.Clear(ctx))
		byCategory, err = idx.ListByCategory(ctx, core.Food)
		require.NoError(t, err)
		assert.Empty(t, byCategory)
	})
}

func sortedIDs(entries []core.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	sort.Strings(out)
	return out
}
