package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryAdvisoryLock_TryLock(t *testing.T) {
	lock := NewInMemoryAdvisoryLock()
	defer lock.Close()

	ctx := context.Background()

	t.Run("claims a free key", func(t *testing.T) {
		token, ok, err := lock.TryLock(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotEmpty(t, token)
	})

	t.Run("refuses a held key", func(t *testing.T) {
		_, ok, err := lock.TryLock(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		token, ok, err := lock.TryLock(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, token)
	})

	t.Run("reclaims after expiration", func(t *testing.T) {
		_, ok, err := lock.TryLock(ctx, "key-3", 10*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(20 * time.Millisecond)

		_, ok, err = lock.TryLock(ctx, "key-3", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok, "expired claim should be reclaimable")
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, ok, err := lock.TryLock(cancelled, "key-4", time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ok)
	})
}

func TestInMemoryAdvisoryLock_Unlock(t *testing.T) {
	lock := NewInMemoryAdvisoryLock()
	defer lock.Close()

	ctx := context.Background()

	t.Run("releases with owning token", func(t *testing.T) {
		token, _, _ := lock.TryLock(ctx, "key-1", time.Hour)
		require.NoError(t, lock.Unlock(ctx, "key-1", token))

		_, ok, err := lock.TryLock(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ignores foreign token", func(t *testing.T) {
		_, _, _ = lock.TryLock(ctx, "key-2", time.Hour)
		require.NoError(t, lock.Unlock(ctx, "key-2", "not-mine"))

		_, ok, err := lock.TryLock(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stale holder cannot release successor", func(t *testing.T) {
		stale, _, _ := lock.TryLock(ctx, "key-3", 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		_, ok, _ := lock.TryLock(ctx, "key-3", time.Hour)
		require.True(t, ok)

		require.NoError(t, lock.Unlock(ctx, "key-3", stale))
		_, ok, _ = lock.TryLock(ctx, "key-3", time.Hour)
		assert.False(t, ok)
	})
}

func TestInMemoryAdvisoryLock_Concurrent(t *testing.T) {
	lock := NewInMemoryAdvisoryLock()
	defer lock.Close()

	ctx := context.Background()
	const goroutines = 50

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := lock.TryLock(ctx, "contended", time.Hour)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted, "exactly one goroutine should win the claim")
}

func TestInMemoryAdvisoryLock_Cleanup(t *testing.T) {
	lock := NewInMemoryAdvisoryLock()
	defer lock.Close()

	ctx := context.Background()
	_, _, _ = lock.TryLock(ctx, "short", time.Millisecond)
	_, _, _ = lock.TryLock(ctx, "long", time.Hour)
	assert.Equal(t, 2, lock.Size())

	time.Sleep(5 * time.Millisecond)
	lock.cleanup()

	assert.Equal(t, 1, lock.Size())
}

func TestInMemoryAdvisoryLock_CloseTwice(t *testing.T) {
	lock := NewInMemoryAdvisoryLock()
	assert.NoError(t, lock.Close())
	assert.NoError(t, lock.Close())
}
