package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisKV(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisKV(client)
}

func TestRedisKV_GetSet(t *testing.T) {
	_, kv := setupRedisKV(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestRedisKV_SetNX(t *testing.T) {
	mr, kv := setupRedisKV(t)
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "evt-1", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.SetNX(ctx, "evt-1", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// TTL 过期后可再次写入
	mr.FastForward(2 * time.Minute)
	ok, err = kv.SetNX(ctx, "evt-1", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryKV_SetNXExpires(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "evt-1", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.SetNX(ctx, "evt-1", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "evt-1")
	assert.ErrorIs(t, err, ErrMiss)

	ok, err = kv.SetNX(ctx, "evt-1", "1", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
