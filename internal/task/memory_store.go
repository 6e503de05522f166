package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryEntry pairs a record with its scheduled purge time. A zero purgeAt
// means the record is not yet scheduled for deletion.
type memoryEntry struct {
	record  *Record
	purgeAt time.Time
}

// MemoryStore is an in-process implementation of Store backed by a
// mutex-guarded map. Purging is done by a periodic reaper goroutine rather
// than per-record timers, so retention behavior is independently testable
// and shutdown does not leak timers.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*memoryEntry

	logger *slog.Logger
	now    func() time.Time // injectable for testing

	done chan struct{}
	stop sync.Once
}

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store and starts its reaper, which scans
// for purgeable records every reapInterval. Call Close to stop the reaper.
// If logger is nil, the default logger is used.
func NewMemoryStore(reapInterval time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	if reapInterval <= 0 {
		reapInterval = time.Minute
	}

	s := &MemoryStore{
		entries: make(map[uuid.UUID]*memoryEntry),
		logger:  logger.With(slog.String("component", "task_store")),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go s.reapLoop(reapInterval)

	return s
}

// Close stops the reaper goroutine. The store remains readable.
func (s *MemoryStore) Close() {
	s.stop.Do(func() {
		close(s.done)
	})
}

// Create implements Store.Create.
func (s *MemoryStore) Create(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[record.ID]; ok {
		return ErrTaskExists
	}

	s.entries[record.ID] = &memoryEntry{record: record}
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return Snapshot{}, ErrTaskNotFound
	}

	return entry.record.Snapshot(), nil
}

// Update implements Store.Update. The store mutex is held for the duration
// of fn, which serializes all mutations per store and guarantees readers
// never observe a half-applied mutation.
func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return ErrTaskNotFound
	}

	return fn(entry.record)
}

// ScheduleDelete implements Store.ScheduleDelete.
func (s *MemoryStore) ScheduleDelete(ctx context.Context, id uuid.UUID, after time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return ErrTaskNotFound
	}

	if after <= 0 {
		delete(s.entries, id)
		return nil
	}

	entry.purgeAt = s.now().Add(after)
	return nil
}

// reapLoop periodically removes records whose purge time has passed.
func (s *MemoryStore) reapLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if purged := s.reap(s.now()); purged > 0 {
				s.logger.Debug("purged expired task records", "count", purged)
			}
		}
	}
}

// reap removes every entry scheduled for purge at or before now and
// returns the number removed.
func (s *MemoryStore) reap(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, entry := range s.entries {
		if !entry.purgeAt.IsZero() && !entry.purgeAt.After(now) {
			delete(s.entries, id)
			purged++
		}
	}
	return purged
}
