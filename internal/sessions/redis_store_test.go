package sessions

import (
	"context"
	"testing"
	"time"

	"comparador/internal/apperr"
	"comparador/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 30*time.Minute), mr
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	state := &models.SessionState{
		UserID: "u1",
		Cart:   []models.CartItem{{ProductID: "p1", Name: "Café", Price: 3000}},
	}
	require.NoError(t, store.Save(ctx, "abc", state))

	assert.True(t, mr.Exists(sessionKey("abc")))
	assert.Equal(t, 30*time.Minute, mr.TTL(sessionKey("abc")))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestRedisStore_LoadMissingIsEmpty(t *testing.T) {
	store, _ := setupTestRedis(t)
	got, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, &models.SessionState{}, got)
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "abc", &models.SessionState{UserID: "u1"}))

	mr.FastForward(31 * time.Minute)

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, got.UserID)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "abc", &models.SessionState{UserID: "u1"}))

	require.NoError(t, store.Delete(ctx, "abc"))
	assert.False(t, mr.Exists(sessionKey("abc")))
	require.NoError(t, store.Delete(ctx, "abc"))
}

func TestRedisStore_InvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(sessionKey("abc"), "{not json"))

	_, err := store.Load(context.Background(), "abc")
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Load(context.Background(), "abc")
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.ErrorIs(t, store.Save(context.Background(), "abc", &models.SessionState{}), apperr.ErrStorageUnavailable)
}
