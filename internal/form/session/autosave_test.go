package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/models"
)

// countingStore records writes made through it.
type countingStore struct {
	*MemoryStore
	mu     sync.Mutex
	saves  int
	failOn error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore(0)}
}

func (c *countingStore) Save(ctx context.Context, s *models.WizardSession) error {
	c.mu.Lock()
	c.saves++
	err := c.failOn
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.MemoryStore.Save(ctx, s)
}

func (c *countingStore) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

type failureCounter struct {
	mu  sync.Mutex
	ops []string
}

func (f *failureCounter) RecordStoreError(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *failureCounter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops)
}

func TestAutosaver_DebouncesBursts(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, 20*time.Millisecond, logger.NewTestLogger(t))

	s := sampleSession()
	for _, city := range []string{"D", "Du", "Dub", "Dubai"} {
		s.Document.City = city
		a.Schedule(s)
	}
	assert.True(t, a.Pending("s-1"))

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, a.Pending("s-1"))

	got, err := store.Load(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Dubai", got.Document.City)
}

func TestAutosaver_LoadReturnsPendingSnapshot(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, time.Hour, logger.NewNoOpLogger())

	s := sampleSession()
	a.Schedule(s)
	s.Document.City = "mutated after schedule"

	got, err := a.Load(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "", got.Document.City)
	assert.Equal(t, 0, store.saveCount())
}

func TestAutosaver_SaveCancelsPending(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, 30*time.Millisecond, logger.NewNoOpLogger())
	ctx := context.Background()

	older := sampleSession()
	older.Document.City = "older"
	a.Schedule(older)

	newer := sampleSession()
	newer.Document.City = "newer"
	require.NoError(t, a.Save(ctx, newer))
	assert.False(t, a.Pending("s-1"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, store.saveCount())

	got, err := a.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Document.City)
}

func TestAutosaver_ClearDropsPending(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, 20*time.Millisecond, logger.NewNoOpLogger())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, sampleSession()))
	a.Schedule(sampleSession())
	require.NoError(t, a.Clear(ctx, "s-1"))

	time.Sleep(50 * time.Millisecond)
	_, err := a.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, store.saveCount())
}

func TestAutosaver_StaleSnapshotIsSkipped(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, time.Hour, logger.NewNoOpLogger())
	ctx := context.Background()

	newer := sampleSession()
	newer.Document.City = "newer"
	require.NoError(t, a.Save(ctx, newer))

	older := sampleSession()
	older.Document.City = "older"
	require.NoError(t, a.write(ctx, older, 0))

	got, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Document.City)
}

func TestAutosaver_Flush(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, time.Hour, logger.NewNoOpLogger())
	ctx := context.Background()

	one := sampleSession()
	two := sampleSession()
	two.ID = "s-2"
	a.Schedule(one)
	a.Schedule(two)

	require.NoError(t, a.Flush(ctx))
	assert.Equal(t, 2, store.saveCount())
	assert.False(t, a.Pending("s-1"))
	assert.False(t, a.Pending("s-2"))
}

func TestAutosaver_BackgroundFailureIsRecorded(t *testing.T) {
	store := newCountingStore()
	store.failOn = errors.New("redis down")
	failures := &failureCounter{}
	a := NewAutosaver(store, 10*time.Millisecond, logger.NewNoOpLogger()).WithFailureRecorder(failures)

	a.Schedule(sampleSession())
	require.Eventually(t, func() bool { return failures.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAutosaver_Persisted(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, 10*time.Millisecond, logger.NewNoOpLogger())
	ctx := context.Background()

	_, ok := a.Persisted("s-1")
	assert.False(t, ok)

	s := sampleSession()
	s.Document.City = "Dubai"
	require.NoError(t, a.Save(ctx, s))

	s.Document.City = "Sharjah"
	a.Schedule(s)
	got, ok := a.Persisted("s-1")
	require.True(t, ok)
	assert.Equal(t, "Dubai", got.Document.City, "queued snapshot is not persisted")

	require.Eventually(t, func() bool { return !a.Pending("s-1") }, time.Second, 5*time.Millisecond)
	got, ok = a.Persisted("s-1")
	require.True(t, ok)
	assert.Equal(t, "Sharjah", got.Document.City)

	require.NoError(t, a.Clear(ctx, "s-1"))
	_, ok = a.Persisted("s-1")
	assert.False(t, ok)
}

func TestAutosaver_PersistedAfterLoad(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	s := sampleSession()
	s.Document.City = "Doha"
	require.NoError(t, store.MemoryStore.Save(ctx, s))

	a := NewAutosaver(store, time.Hour, logger.NewNoOpLogger())
	_, err := a.Load(ctx, "s-1")
	require.NoError(t, err)

	got, ok := a.Persisted("s-1")
	require.True(t, ok)
	assert.Equal(t, "Doha", got.Document.City)
}
