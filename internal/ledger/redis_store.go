package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/blueprint-paywall/internal/model"
)

const keyPrefix = "fulfillment:"

// RedisStore persists records as JSON strings under fulfillment:{session_id},
// optionally behind a namespace ("grq" yields grq:fulfillment:{session_id}).
type RedisStore struct {
	rdb redis.UniversalClient
	ns  string
}

// NewRedisStore wraps an established client.
func NewRedisStore(rdb redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, ns: namespace}
}

// Key returns the storage key for sessionID.
func (s *RedisStore) Key(sessionID string) string {
	if s.ns == "" {
		return keyPrefix + sessionID
	}
	return s.ns + ":" + keyPrefix + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*model.Fulfillment, error) {
	bs, err := s.rdb.Get(ctx, s.Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var f model.Fulfillment
	if err := json.Unmarshal(bs, &f); err != nil {
		return nil, fmt.Errorf("decode fulfillment %q: %w", sessionID, err)
	}
	return &f, nil
}

func (s *RedisStore) Set(ctx context.Context, f model.Fulfillment, ttl time.Duration) error {
	bs, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode fulfillment: %w", err)
	}
	if err := s.rdb.Set(ctx, s.Key(f.SessionID), bs, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
