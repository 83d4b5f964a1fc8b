package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheck_CountsDownToZero(t *testing.T) {
	store := NewStore(time.Minute)
	defer store.Stop()

	for i := 0; i < 3; i++ {
		result := store.Check("key", time.Minute, 3)
		assert.True(t, result.Allowed)
		assert.Equal(t, 2-i, result.Remaining)
	}

	result := store.Check("key", time.Minute, 3)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.False(t, result.ResetAt.IsZero())
}

func TestCheck_WindowResets(t *testing.T) {
	store := NewStore(time.Minute)
	defer store.Stop()

	result := store.Check("key", 10*time.Millisecond, 1)
	assert.True(t, result.Allowed)
	result = store.Check("key", 10*time.Millisecond, 1)
	assert.False(t, result.Allowed)

	time.Sleep(15 * time.Millisecond)

	result = store.Check("key", 10*time.Millisecond, 1)
	assert.True(t, result.Allowed)
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	store := NewStore(time.Minute)
	defer store.Stop()

	assert.True(t, store.Check("a", time.Minute, 1).Allowed)
	assert.False(t, store.Check("a", time.Minute, 1).Allowed)
	assert.True(t, store.Check("b", time.Minute, 1).Allowed)
}

func TestReset(t *testing.T) {
	store := NewStore(time.Minute)
	defer store.Stop()

	assert.True(t, store.Check("key", time.Minute, 1).Allowed)
	assert.False(t, store.Check("key", time.Minute, 1).Allowed)

	store.Reset("key")
	assert.True(t, store.Check("key", time.Minute, 1).Allowed)
}

func TestCheck_ConcurrentNeverExceedsLimit(t *testing.T) {
	store := NewStore(time.Minute)
	defer store.Stop()

	const workers = 20
	const limit = 5

	var wg sync.WaitGroup
	allowed := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- store.Check("key", time.Minute, limit).Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	var count int
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, limit, count)
}
