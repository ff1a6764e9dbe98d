package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/opmark/internal/highlight"
	"github.com/redis/go-redis/v9"
)

const (
	docKeyPrefix = "doc:"
	docIndexKey  = "docs"
)

// RedisStore is a Redis-backed document store: JSON values under doc:<id>
// with a set index of IDs.
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

func (s *RedisStore) Load(ctx context.Context, id string) (*Document, error) {
	data, err := s.client.Get(ctx, docKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *RedisStore) Save(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		return fmt.Errorf("docstore: document ID is required")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, docKeyPrefix+doc.ID, data, 0)
	pipe.SAdd(ctx, docIndexKey, doc.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

// SaveSpans attaches spans under WATCH on the document key: the stored
// version is re-read inside the transaction, so a concurrent edit either
// fails the version check or aborts the MULTI/EXEC and we retry.
func (s *RedisStore) SaveSpans(ctx context.Context, id string, spans []highlight.TaskMatch, version int64) error {
	key := docKeyPrefix + id
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("load document %s: %w", id, err)
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode document %s: %w", id, err)
		}
		if doc.Version != version {
			return fmt.Errorf("%w: %s is at version %d, spans resolved against %d",
				ErrVersionConflict, id, doc.Version, version)
		}
		doc.Spans = spans
		doc.SpanVersion = version
		out, err := json.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}
	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("save spans for %s: %w", id, redis.TxFailedErr)
}

func (s *RedisStore) List(ctx context.Context) ([]*Document, error) {
	ids, err := s.client.SMembers(ctx, docIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var docs []*Document
	for _, id := range ids {
		doc, err := s.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, docKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if err := s.client.SRem(ctx, docIndexKey, id).Err(); err != nil {
		return fmt.Errorf("unindex document %s: %w", id, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
