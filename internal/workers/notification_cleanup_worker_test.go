package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"platform_backend/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedNotification struct {
	createdAt time.Time
	archived  bool
}

type memoryStore struct {
	mu       sync.Mutex
	rows     map[string]*storedNotification
	purgeErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]*storedNotification)}
}

func (m *memoryStore) add(id string, createdAt time.Time) {
	m.rows[id] = &storedNotification{createdAt: createdAt}
}

func (m *memoryStore) CountArchivable(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if !r.archived && r.createdAt.Before(before) {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Archive(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if !r.archived && r.createdAt.Before(before) {
			r.archived = true
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CountPurgeable(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.archived && r.createdAt.Before(before) {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.purgeErr != nil {
		return 0, m.purgeErr
	}
	var n int64
	for id, r := range m.rows {
		if r.archived && r.createdAt.Before(before) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) state(id string) (exists, archived bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return false, false
	}
	return true, r.archived
}

var cleanupNow = time.Date(2026, 6, 7, 3, 0, 0, 0, time.UTC)

func TestCleanup_ArchiveThenPurgeLater(t *testing.T) {
	store := newMemoryStore()
	store.add("old-1", cleanupNow.Add(-31*24*time.Hour))
	store.add("old-2", cleanupNow.Add(-31*24*time.Hour))
	store.add("fresh", cleanupNow.Add(-2*24*time.Hour))

	fake := clock.NewFake(cleanupNow)
	w := NewNotificationCleanupWorker(store, fake, CleanupConfig{}, nil)

	first, err := w.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{Archived: 2, Purged: 0}, first)

	exists, archived := store.state("old-1")
	assert.True(t, exists)
	assert.True(t, archived)
	_, archived = store.state("fresh")
	assert.False(t, archived)

	fake.Advance(61 * 24 * time.Hour)
	second, err := w.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Purged)

	exists, _ = store.state("old-1")
	assert.False(t, exists)
	exists, archived = store.state("fresh")
	assert.True(t, exists)
	assert.True(t, archived)
}

func TestCleanup_FreshlyArchivedSurvivesSameRun(t *testing.T) {
	store := newMemoryStore()
	store.add("ancient", cleanupNow.Add(-120*24*time.Hour))

	w := NewNotificationCleanupWorker(store, clock.NewFake(cleanupNow), CleanupConfig{}, nil)
	result, err := w.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Archived)
	assert.Zero(t, result.Purged)

	exists, _ := store.state("ancient")
	assert.True(t, exists)
}

func TestCleanup_DryRunOnlyCounts(t *testing.T) {
	store := newMemoryStore()
	store.add("old", cleanupNow.Add(-31*24*time.Hour))

	w := NewNotificationCleanupWorker(store, clock.NewFake(cleanupNow), CleanupConfig{}, nil)
	result, err := w.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{Archived: 1, DryRun: true}, result)

	_, archived := store.state("old")
	assert.False(t, archived)
}

func TestCleanup_CustomThresholds(t *testing.T) {
	store := newMemoryStore()
	store.add("week-old", cleanupNow.Add(-8*24*time.Hour))

	w := NewNotificationCleanupWorker(store, clock.NewFake(cleanupNow), CleanupConfig{ArchiveAfter: 7 * 24 * time.Hour}, nil)
	result, err := w.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Archived)
}

func TestCleanup_PurgeErrorStopsRun(t *testing.T) {
	store := newMemoryStore()
	store.add("old", cleanupNow.Add(-31*24*time.Hour))
	store.purgeErr = errors.New("db down")

	w := NewNotificationCleanupWorker(store, clock.NewFake(cleanupNow), CleanupConfig{}, nil)
	_, err := w.Run(context.Background(), false)
	require.Error(t, err)

	_, archived := store.state("old")
	assert.False(t, archived)
}

func TestCleanup_StartRejectsBadSchedule(t *testing.T) {
	w := NewNotificationCleanupWorker(newMemoryStore(), clock.System(), CleanupConfig{Schedule: "every tuesday"}, nil)
	assert.Error(t, w.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ok := NewNotificationCleanupWorker(newMemoryStore(), clock.System(), CleanupConfig{}, nil)
	assert.NoError(t, ok.Start(ctx))
}
