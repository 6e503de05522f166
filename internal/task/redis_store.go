package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// taskKeyPrefix namespaces task records in Redis.
const taskKeyPrefix = "prism:task:"

// maxUpdateRetries bounds optimistic-transaction retries when concurrent
// writers race on the same key.
const maxUpdateRetries = 5

// RedisStore is a Redis-backed implementation of Store. Task state survives
// process restarts and is visible to every orchestrator instance sharing the
// Redis database; purge scheduling maps onto key TTLs, so no reaper process
// is needed.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStore implements the Store interface
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis task store and verifies connectivity.
// If logger is nil, the default logger is used.
func NewRedisStore(addr, password string, db int, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{
		client: client,
		logger: logger.With(slog.String("component", "task_store_redis")),
	}, nil
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func taskKey(id uuid.UUID) string {
	return taskKeyPrefix + id.String()
}

// Create implements Store.Create.
func (s *RedisStore) Create(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal task record: %w", err)
	}

	set, err := s.client.SetNX(ctx, taskKey(record.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create task record: %w", err)
	}
	if !set {
		return ErrTaskExists
	}

	return nil
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	data, err := s.client.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrTaskNotFound
		}
		return Snapshot{}, fmt.Errorf("get task record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal task record: %w", err)
	}

	return record.Snapshot(), nil
}

// Update implements Store.Update as an optimistic WATCH/MULTI transaction:
// the key is watched, the record is read and mutated, and the write aborts
// and retries if another writer touched the key in between. Any TTL already
// set by ScheduleDelete is preserved.
func (s *RedisStore) Update(ctx context.Context, id uuid.UUID, fn func(*Record) error) error {
	key := taskKey(id)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("get task record: %w", err)
		}

		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("unmarshal task record: %w", err)
		}

		if err := fn(&record); err != nil {
			return err
		}

		updated, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("marshal task record: %w", err)
		}

		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("read task record ttl: %w", err)
		}
		if ttl < 0 {
			// No expiry set
			ttl = 0
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("update task record: too many concurrent writers for %s", id)
}

// ScheduleDelete implements Store.ScheduleDelete via key expiry.
func (s *RedisStore) ScheduleDelete(ctx context.Context, id uuid.UUID, after time.Duration) error {
	key := taskKey(id)

	if after <= 0 {
		deleted, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("delete task record: %w", err)
		}
		if deleted == 0 {
			return ErrTaskNotFound
		}
		return nil
	}

	ok, err := s.client.Expire(ctx, key, after).Result()
	if err != nil {
		return fmt.Errorf("expire task record: %w", err)
	}
	if !ok {
		return ErrTaskNotFound
	}

	return nil
}
