package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/on-the-ground/effectpipe/adapters/storage"
	"github.com/on-the-ground/effectpipe/effects/clock"
	"github.com/on-the-ground/effectpipe/effects/log"
	"github.com/on-the-ground/effectpipe/effects/resilience"
	"github.com/on-the-ground/effectpipe/effects/result"
)

type storeFactory func(t *testing.T) storage.AtomicStore

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memdb": func(t *testing.T) storage.AtomicStore {
			s, err := storage.NewMemDBStore()
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) storage.AtomicStore {
			s, err := storage.OpenSQLStore(context.Background(), ":memory:")
			require.NoError(t, err)
			return s
		},
		"cached": func(t *testing.T) storage.AtomicStore {
			inner, err := storage.NewMemDBStore()
			require.NoError(t, err)
			s, err := storage.NewCachedStore(inner, 1<<20)
			require.NoError(t, err)
			return s
		},
	}
}

func TestAtomicStore_WriteIfAbsent(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			defer store.Close()

			inserted, err := store.WriteIfAbsent(ctx, "k1", []byte("first"))
			require.NoError(t, err)
			assert.True(t, inserted)

			inserted, err = store.WriteIfAbsent(ctx, "k1", []byte("second"))
			require.NoError(t, err)
			assert.False(t, inserted)

			v, ok, err := store.Load(ctx, "k1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("first"), v)

			_, ok, err = store.Load(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestAtomicStore_ConcurrentWritersInsertOnce(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			defer store.Close()

			var (
				wg       sync.WaitGroup
				inserted atomic.Int32
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := store.WriteIfAbsent(ctx, "same", []byte("v"))
					assert.NoError(t, err)
					if ok {
						inserted.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), inserted.Load())
		})
	}
}

func TestAtomicStore_Closed(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			require.NoError(t, store.Close())

			_, err := store.WriteIfAbsent(ctx, "k", []byte("v"))
			assert.ErrorIs(t, err, storage.ErrClosed)
			_, _, err = store.Load(ctx, "k")
			assert.ErrorIs(t, err, storage.ErrClosed)
		})
	}
}

func TestCachedStore_ServesLoadsFromCache(t *testing.T) {
	ctx := context.Background()
	inner, err := storage.NewMemDBStore()
	require.NoError(t, err)
	store, err := storage.NewCachedStore(inner, 1<<20)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.WriteIfAbsent(ctx, "k", []byte("v"))
	require.NoError(t, err)

	v, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, uint64(1), store.Hits())
}

func TestCachedStore_LoadedBytesDoNotAliasCache(t *testing.T) {
	ctx := context.Background()
	inner, err := storage.NewMemDBStore()
	require.NoError(t, err)
	_, err = inner.WriteIfAbsent(ctx, "k", []byte("value"))
	require.NoError(t, err)

	store, err := storage.NewCachedStore(inner, 1<<20)
	require.NoError(t, err)
	defer store.Close()

	v, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	v[0] = 'X'

	v, _, err = store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)
	assert.Equal(t, uint64(1), store.Hits())
}

func TestOpenSQLStore_LogsWhenWALCannotBeEnabled(t *testing.T) {
	ctx, logs, endOfLog := log.WithObservedEffectHandler(context.Background(), zapcore.WarnLevel)
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := storage.OpenSQLStore(cancelled, filepath.Join(t.TempDir(), "records.db"))
	require.ErrorIs(t, err, context.Canceled)
	endOfLog()

	entries := logs.FilterMessage("sqlite store: WAL journal not enabled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestContentKey(t *testing.T) {
	assert.Equal(t, storage.ContentKey("a", "b"), storage.ContentKey("a", "b"))
	assert.NotEqual(t, storage.ContentKey("ab"), storage.ContentKey("a", "b"))
	assert.Len(t, storage.ContentKey("x"), 16)
}

// failingStore fails the first n writes, then delegates.
type failingStore struct {
	storage.AtomicStore
	failures atomic.Int32
}

func (f *failingStore) WriteIfAbsent(ctx context.Context, key string, payload []byte) (bool, error) {
	if f.failures.Add(-1) >= 0 {
		return false, errors.New("database is locked")
	}
	return f.AtomicStore.WriteIfAbsent(ctx, key, payload)
}

func TestIdempotentWrite(t *testing.T) {
	ctx := context.Background()
	inner, err := storage.NewMemDBStore()
	require.NoError(t, err)
	defer inner.Close()

	write := storage.IdempotentWrite(inner)

	r := write("k", []byte("v")).Run(ctx)
	require.True(t, r.IsOk())
	assert.True(t, r.Value())

	r = write("k", []byte("v")).Run(ctx)
	require.True(t, r.IsOk())
	assert.False(t, r.Value())
}

func TestIdempotentWrite_RetriedUnderResilience(t *testing.T) {
	ctx := context.Background()
	inner, err := storage.NewMemDBStore()
	require.NoError(t, err)
	flaky := &failingStore{AtomicStore: inner}
	flaky.failures.Store(2)

	env, _ := clock.NewFakeEnv(time.Unix(0, 0), 1)
	retry := resilience.RetryPolicy{
		MaxAttempts:    3,
		RetriableCodes: result.NewCodeSet(storage.CodeStorage),
		Idempotent:     true,
	}
	write := resilience.With(storage.IdempotentWrite(flaky)("k", []byte("v")), retry, nil, env)

	r := write.Run(ctx)
	require.True(t, r.IsOk(), r.String())
	assert.True(t, r.Value())

	n, err := inner.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIdempotentWrite_ClassifiesFailures(t *testing.T) {
	inner, err := storage.NewMemDBStore()
	require.NoError(t, err)
	require.NoError(t, inner.Close())

	r := storage.IdempotentWrite(inner)("k", nil).Run(context.Background())
	require.True(t, r.IsErr())
	assert.Equal(t, storage.CodeStorage, r.Err().Code())
	key, _ := r.Err().Field("key")
	assert.Equal(t, "k", key)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	live, err := storage.NewMemDBStore()
	require.NoError(t, err)
	r = storage.IdempotentWrite(live)("k", nil).Run(ctx)
	assert.Equal(t, result.CodeCancelled, r.Err().Code())
}
