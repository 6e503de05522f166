package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(time.Minute, nil)
	t.Cleanup(s.Close)
	return s
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	s := newTestMemoryStore(t)
	ctx := context.Background()

	record := NewRecord(uuid.New(), testRequest())
	require.NoError(t, s.Create(ctx, record))

	snap, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, snap.ID)
	assert.Equal(t, record.OwnerID, snap.OwnerID)
	assert.Equal(t, StatePending, snap.State)

	// Duplicate IDs are rejected
	assert.ErrorIs(t, s.Create(ctx, record), ErrTaskExists)

	// Unknown IDs report not found
	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMemoryStoreUpdateIsAtomic(t *testing.T) {
	t.Parallel()

	s := newTestMemoryStore(t)
	ctx := context.Background()

	record := NewRecord(uuid.New(), testRequest())
	require.NoError(t, s.Create(ctx, record))

	const writers = 20
	const increments = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				_ = s.Update(ctx, record.ID, func(r *Record) error {
					r.Progress++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	snap, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, writers*increments, snap.Progress,
		"interleaved read-modify-writes would lose increments")
}

func TestMemoryStoreUpdateErrors(t *testing.T) {
	t.Parallel()

	s := newTestMemoryStore(t)
	ctx := context.Background()

	err := s.Update(ctx, uuid.New(), func(r *Record) error { return nil })
	assert.ErrorIs(t, err, ErrTaskNotFound)

	record := NewRecord(uuid.New(), testRequest())
	require.NoError(t, s.Create(ctx, record))

	// Errors from the mutator pass through unchanged
	err = s.Update(ctx, record.ID, func(r *Record) error {
		return ErrInvalidTransition
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMemoryStoreGetReturnsIsolatedSnapshot(t *testing.T) {
	t.Parallel()

	s := newTestMemoryStore(t)
	ctx := context.Background()

	record := NewRecord(uuid.New(), testRequest())
	require.NoError(t, s.Create(ctx, record))

	snap, err := s.Get(ctx, record.ID)
	require.NoError(t, err)

	snap.Progress = 99
	snap.State = StateFailed

	fresh, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Progress)
	assert.Equal(t, StatePending, fresh.State)
}

func TestMemoryStoreScheduleDeleteImmediate(t *testing.T) {
	t.Parallel()

	s := newTestMemoryStore(t)
	ctx := context.Background()

	record := NewRecord(uuid.New(), testRequest())
	require.NoError(t, s.Create(ctx, record))

	require.NoError(t, s.ScheduleDelete(ctx, record.ID, 0))

	_, err := s.Get(ctx, record.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// Scheduling deletion of an unknown task reports not found
	assert.ErrorIs(t, s.ScheduleDelete(ctx, uuid.New(), time.Hour), ErrTaskNotFound)
}

func TestMemoryStoreReapHonorsGracePeriod(t *testing.T) {
	t.Parallel()

	s := newTestMemoryStore(t)
	ctx := context.Background()

	record := NewRecord(uuid.New(), testRequest())
	require.NoError(t, s.Create(ctx, record))
	require.NoError(t, s.ScheduleDelete(ctx, record.ID, time.Hour))

	// Before the grace period elapses the record survives the reaper
	assert.Equal(t, 0, s.reap(time.Now().Add(30*time.Minute)))
	_, err := s.Get(ctx, record.ID)
	require.NoError(t, err)

	// After the grace period it is purged
	assert.Equal(t, 1, s.reap(time.Now().Add(2*time.Hour)))
	_, err = s.Get(ctx, record.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// Records without a scheduled purge are never reaped
	keeper := NewRecord(uuid.New(), testRequest())
	require.NoError(t, s.Create(ctx, keeper))
	assert.Equal(t, 0, s.reap(time.Now().Add(24*time.Hour)))
}
