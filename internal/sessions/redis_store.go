package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"comparador/internal/apperr"
	"comparador/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session state as JSON values with a TTL refreshed on every save.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sid string) (*models.SessionState, error) {
	data, err := s.client.Get(ctx, sessionKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &models.SessionState{}, nil
	}
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("redis get failed: %w", err))
	}

	var state models.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, apperr.Storage(fmt.Errorf("unmarshal session failed: %w", err))
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, sid string, state *models.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sid), data, s.ttl).Err(); err != nil {
		return apperr.Storage(fmt.Errorf("redis set failed: %w", err))
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return apperr.Storage(fmt.Errorf("redis delete failed: %w", err))
	}
	return nil
}

func sessionKey(sid string) string {
	return fmt.Sprintf("session:%s", sid)
}
