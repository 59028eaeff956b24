package services_test

import (
	"context"
	"sync"
	"testing"

	"platform_backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_ConcurrentIncrementsAreSerialized(t *testing.T) {
	store := newMemoryCounterStore()
	counter := services.NewCounterService(store)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := counter.Increment(context.Background(), "k", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := counter.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)
}

func TestCounter_NeverNegative(t *testing.T) {
	counter := services.NewCounterService(newMemoryCounterStore())

	v, err := counter.Increment(context.Background(), "k", -3)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestCounter_UsesAtomicIncrement(t *testing.T) {
	store := &atomicCounterStore{memoryCounterStore: newMemoryCounterStore()}
	counter := services.NewCounterService(store)

	v, err := counter.Increment(context.Background(), "k", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
	assert.Equal(t, 1, store.incrCalls)

	v, err = counter.Increment(context.Background(), "k", -9)
	require.NoError(t, err)
	assert.Zero(t, v)
	got, _ := store.Get(context.Background(), "k")
	assert.Zero(t, got)
}

func TestCounter_ResetAndStoreErrors(t *testing.T) {
	store := newMemoryCounterStore()
	counter := services.NewCounterService(store)

	_, err := counter.Increment(context.Background(), "k", 2)
	require.NoError(t, err)
	require.NoError(t, counter.Reset(context.Background(), "k"))
	v, err := counter.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Zero(t, v)

	store.err = errStorage
	_, err = counter.Increment(context.Background(), "k", 1)
	assert.ErrorIs(t, err, errStorage)
}

func TestUnreadCounterKey(t *testing.T) {
	assert.Equal(t, "notifications:unread:u1", services.UnreadCounterKey("u1"))
}
