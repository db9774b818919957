package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	files, err := NewFileStore(filepath.Join(dir, "files"))
	require.NoError(t, err)

	bdb, err := OpenBadger(InMemoryBadgerConfig())
	require.NoError(t, err)

	sqlite, err := OpenSQLite(filepath.Join(dir, "game.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   files,
		"badger": bdb,
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_GetSetDelete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get("gameState")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set("gameState", []byte(`{"x":3}`)))
			value, err := store.Get("gameState")
			require.NoError(t, err)
			assert.Equal(t, `{"x":3}`, string(value))

			require.NoError(t, store.Set("gameState", []byte(`{"x":4}`)))
			value, err = store.Get("gameState")
			require.NoError(t, err)
			assert.Equal(t, `{"x":4}`, string(value))

			require.NoError(t, store.Delete("gameState"))
			_, err = store.Get("gameState")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, store.Delete("gameState"), "deleting a missing key is not an error")
		})
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"b1:gameState", "a1:topScores", "a1:gameState", "a1:session", "topScores"} {
				require.NoError(t, store.Set(key, []byte("[]")))
			}

			keys, err := store.Keys("a1:")
			require.NoError(t, err)
			assert.Equal(t, []string{"a1:gameState", "a1:session", "a1:topScores"}, keys)

			all, err := store.Keys("")
			require.NoError(t, err)
			assert.Len(t, all, 5)

			none, err := store.Keys("zz:")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("s%02d:gameState", i)
					assert.NoError(t, store.Set(key, []byte(fmt.Sprintf(`{"score":%d}`, i))))
				}(i)
			}
			wg.Wait()

			keys, err := store.Keys("s")
			require.NoError(t, err)
			assert.Len(t, keys, 20)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, store.Set("k", value))

	value[0] = 'x'
	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _ := store.Get("k")
	assert.Equal(t, "abc", string(again))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("ab12:gameState", []byte(`{"score":9}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ":")

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	value, err := second.Get("ab12:gameState")
	require.NoError(t, err)
	assert.Equal(t, `{"score":9}`, string(value))

	keys, err := second.Keys("ab12:")
	require.NoError(t, err)
	assert.Equal(t, []string{"ab12:gameState"}, keys)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	cfg := DefaultBadgerConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 0

	store, err := OpenBadger(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Set("topScores", []byte("[12,8]")))
	require.NoError(t, store.Close())

	reopened, err := OpenBadger(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get("topScores")
	require.NoError(t, err)
	assert.Equal(t, "[12,8]", string(value))
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestBadgerStore_GCRunnerStops(t *testing.T) {
	cfg := DefaultBadgerConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 10 * time.Millisecond

	store, err := OpenBadger(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Set("k", []byte("v")))
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_CreatesParentDirectories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "game.db")

	store, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		location string
		wantType string
		wantErr  bool
	}{
		{"memory", "*storage.MemoryStore", false},
		{"", "*storage.MemoryStore", false},
		{"file:" + filepath.Join(dir, "sessions"), "*storage.FileStore", false},
		{"badger:memory", "*storage.BadgerStore", false},
		{"badger:" + filepath.Join(dir, "badger"), "*storage.BadgerStore", false},
		{"sqlite:" + filepath.Join(dir, "game.db"), "*storage.SQLiteStore", false},
		{"sqlite:", "", true},
		{"redis:localhost", "", true},
	}

	for _, test := range tests {
		t.Run(test.location, func(t *testing.T) {
			store, err := Open(test.location, nil)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.Equal(t, test.wantType, fmt.Sprintf("%T", store))
		})
	}
}
