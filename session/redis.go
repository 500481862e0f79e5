package session

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "appintake:session:"
	defaultRedisTTL = 24 * time.Hour
)

// RedisStore persists sessions in Redis so multiple engine instances can
// share one session table. The per-session write lock stays in-process
// (one engine owns a session at a time); Redis only provides the lookup
// table.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A non-positive ttl falls back to
// 24 hours.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*State, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var state State
	if err := sonic.UnmarshalString(val, &state); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}

	// Keep live sessions from expiring mid-conversation.
	_ = s.client.Expire(ctx, s.key(id), s.ttl).Err()

	return &state, nil
}

func (s *RedisStore) Put(ctx context.Context, state *State) error {
	val, err := sonic.MarshalString(state)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", state.ID, err)
	}
	if err := s.client.Set(ctx, s.key(state.ID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}
