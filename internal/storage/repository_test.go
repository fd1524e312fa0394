package storage_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"expenses/internal/core"
	"expenses/internal/storage"
	"expenses/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Contract(t *testing.T) {
	storagetest.RunStoreContract(t, func(t *testing.T) storage.Store {
		return newRepo(t)
	})
}

func TestSQLiteRepository_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.db")

	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, storagetest.Entry("a", "2024-05-01", core.Food, 20000)))
	require.NoError(t, repo.Close())

	reopened, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestSQLiteRepository_CreatesIndexes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'expenses' AND name LIKE 'idx_%'`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.ElementsMatch(t, []string{"idx_expenses_date", "idx_expenses_category", "idx_expenses_month"}, names)
}

func TestSQLiteRepository_CorruptRowIsReadError(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.db")
	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO expenses (id, date, month, description, category, amount_cents, created_at)
		VALUES ('x', '2024-05-01', '2024-06', 'bad month', 'food', 100, '2024-05-01T00:00:00Z')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = repo.LoadAll(ctx)
	require.ErrorIs(t, err, storage.ErrStorageRead)
	assert.ErrorIs(t, err, core.ErrMonthMismatch)
}

func TestNewSQLiteRepository_Unavailable(t *testing.T) {
	// a regular file where the parent directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := storage.NewSQLiteRepository(filepath.Join(blocker, "expenses.db"))
	require.ErrorIs(t, err, storage.ErrStorageUnavailable)
}
