package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/config"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
	"expenses/internal/storage/storagetest"
)

func TestCreateBackend_SQLite(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "expenses.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Store.Close() })

	assert.False(t, res.Degraded)
	assert.Equal(t, SQLiteBackend, res.Type)
	assert.IsType(t, &storage.SQLiteRepository{}, res.Store)

	ctx := context.Background()
	require.NoError(t, res.Store.Add(ctx, storagetest.Entry("a", "2024-05-01", "food", 100)))
	all, err := res.Store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateBackend_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           RedisBackend,
		RedisAddr:      mr.Addr(),
		RedisKeyPrefix: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Store.Close() })

	assert.False(t, res.Degraded)
	require.NoError(t, res.Store.Add(context.Background(), storagetest.Entry("a", "2024-05-01", "food", 100)))
	assert.True(t, mr.Exists("test:expense:a"))
}

func TestCreateBackend_FallsBackToMemory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(blocker, "expenses.db"),
	})
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, MemoryBackend, res.Type)
	assert.IsType(t, &memory.Store{}, res.Store)
	require.NoError(t, res.Store.Close())
}

func TestCreateBackend_RedisUnreachableFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: RedisBackend, RedisAddr: addr})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
}

func TestCreateBackend_OtherErrorsAreReturned(t *testing.T) {
	boom := errors.New("boom")
	f := NewFactory(nil)
	f.openers[SQLiteBackend] = func(context.Context, Config) (storage.Store, error) { return nil, boom }

	_, err := f.CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"})
	require.ErrorIs(t, err, boom)
}

func TestCreateBackend_InvalidConfig(t *testing.T) {
	f := NewFactory(nil)

	_, err := f.CreateBackend(context.Background(), Config{Type: "sheets"})
	require.Error(t, err)

	_, err = f.CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	require.Error(t, err)

	_, err = f.CreateBackend(context.Background(), Config{Type: RedisBackend})
	require.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:    "redis",
		RedisAddr:      "localhost:6379",
		RedisDB:        3,
		RedisKeyPrefix: "p",
	})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: RedisBackend, RedisAddr: "localhost:6379", RedisDB: 3, RedisKeyPrefix: "p"}, cfg)
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"sqlite", "redis", "memory"}, GetBackendTypeStrings())
}
