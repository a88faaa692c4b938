package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const fiberKeyPrefix = "fiber_session:"

// FiberStorage lets fiber's session middleware keep its session ids in redis, so ids survive a
// restart together with the state held by RedisStore. It implements fiber.Storage.
type FiberStorage struct {
	client *redis.Client
}

func NewFiberStorage(client *redis.Client) *FiberStorage {
	return &FiberStorage{client: client}
}

// Get returns nil, nil for a missing key.
func (s *FiberStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	val, err := s.client.Get(context.Background(), fiberKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (s *FiberStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return s.client.Set(context.Background(), fiberKeyPrefix+key, val, exp).Err()
}

func (s *FiberStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(context.Background(), fiberKeyPrefix+key).Err()
}

// Reset drops every session id this storage wrote.
func (s *FiberStorage) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, fiberKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op; the client belongs to the caller.
func (s *FiberStorage) Close() error {
	return nil
}
