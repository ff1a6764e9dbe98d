package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgallion1/opmark/internal/highlight"
)

const (
	taskKeyPrefix = "task:"
	taskIndexKey  = "tasks"
)

// RedisStore is a Redis-backed task catalog. Entries are JSON values under
// task:<CANONICAL NAME> with a set index of canonical names.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client (tests, shared pools).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

func taskKey(name string) string {
	return taskKeyPrefix + CanonicalName(name)
}

func (s *RedisStore) Put(ctx context.Context, detail highlight.TaskDetail) error {
	if err := Validate(detail); err != nil {
		return err
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	canon := CanonicalName(detail.Name)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+canon, data, 0)
	pipe.SAdd(ctx, taskIndexKey, canon)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store task %q: %w", detail.Name, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, name string) (highlight.TaskDetail, error) {
	data, err := s.client.Get(ctx, taskKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return highlight.TaskDetail{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return highlight.TaskDetail{}, fmt.Errorf("get task %q: %w", name, err)
	}
	var detail highlight.TaskDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return highlight.TaskDetail{}, fmt.Errorf("decode task %q: %w", name, err)
	}
	return detail, nil
}

func (s *RedisStore) List(ctx context.Context) ([]highlight.TaskDetail, error) {
	names, err := s.client.SMembers(ctx, taskIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var tasks []highlight.TaskDetail
	for _, canon := range names {
		detail, err := s.Get(ctx, canon)
		if errors.Is(err, ErrNotFound) {
			// Index entry without a value; skip rather than fail the list.
			continue
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, detail)
	}
	return tasks, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	canon := CanonicalName(name)
	deleted, err := s.client.Del(ctx, taskKeyPrefix+canon).Result()
	if err != nil {
		return fmt.Errorf("delete task %q: %w", name, err)
	}
	if err := s.client.SRem(ctx, taskIndexKey, canon).Err(); err != nil {
		return fmt.Errorf("unindex task %q: %w", name, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}
