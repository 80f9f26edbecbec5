package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherfav/internal/repository/sqlite"
)

type failingStore struct {
	err error
}

func (s failingStore) Delete(token string) error { return s.err }
func (s failingStore) Find(token string) ([]byte, bool, error) {
	return nil, false, s.err
}
func (s failingStore) Commit(token string, b []byte, expiry time.Time) error { return s.err }

func backends(t *testing.T) map[string]scs.Store {
	t.Helper()

	mem := NewMemoryBackend()
	t.Cleanup(mem.StopCleanup)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	disk, err := NewSQLiteBackend(db)
	require.NoError(t, err)
	t.Cleanup(disk.StopCleanup)

	return map[string]scs.Store{
		"memory": mem,
		"sqlite": disk,
	}
}

func TestSessionStore_Lifecycle(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewSessionStore(backend, time.Hour)

			key, err := store.Create(ctx, 42)
			require.NoError(t, err)
			assert.NotEmpty(t, key)

			userID, ok, err := store.Resolve(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(42), userID)

			require.NoError(t, store.Destroy(ctx, key))

			userID, ok, err = store.Resolve(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Zero(t, userID)
		})
	}
}

func TestSessionStore_UnknownKeys(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewSessionStore(backend, time.Hour)

			_, ok, err := store.Resolve(ctx, "")
			require.NoError(t, err)
			assert.False(t, ok)

			_, ok, err = store.Resolve(ctx, "never-issued")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, store.Destroy(ctx, "never-issued"))
		})
	}
}

func TestSessionStore_KeysAreUnique(t *testing.T) {
	store := NewSessionStore(NewMemoryBackend(), time.Hour)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key, err := store.Create(context.Background(), 1)
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate session key")
		seen[key] = struct{}{}
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(NewMemoryBackend(), time.Hour)

	start := time.Now()
	store.now = func() time.Time { return start }
	key, err := store.Create(ctx, 9)
	require.NoError(t, err)

	store.now = func() time.Time { return start.Add(59 * time.Minute) }
	_, ok, err := store.Resolve(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	store.now = func() time.Time { return start.Add(time.Hour) }
	_, ok, err = store.Resolve(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_DefaultLifetime(t *testing.T) {
	store := NewSessionStore(NewMemoryBackend(), 0)
	assert.Equal(t, DefaultSessionLifetime, store.Lifetime())
}

func TestSessionStore_CorruptPayloadIsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewSessionStore(backend, time.Hour)

	require.NoError(t, backend.Commit("corrupt", []byte("definitely not gob"), time.Now().Add(time.Hour)))

	_, ok, err := store.Resolve(ctx, "corrupt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")
	store := NewSessionStore(failingStore{err: boom}, time.Hour)

	_, err := store.Create(ctx, 1)
	assert.ErrorIs(t, err, boom)

	_, ok, err := store.Resolve(ctx, "key")
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)

	assert.ErrorIs(t, store.Destroy(ctx, "key"), boom)
}

func TestSessionStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(NewMemoryBackend(), time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			key, err := store.Create(ctx, userID)
			if err != nil {
				errs <- err
				return
			}
			got, ok, err := store.Resolve(ctx, key)
			if err != nil || !ok || got != userID {
				errs <- errors.New("session resolved to the wrong user")
				return
			}
			if err := store.Destroy(ctx, key); err != nil {
				errs <- err
			}
		}(int64(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
