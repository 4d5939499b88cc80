package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBurstPerKey(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(60, 2)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := m.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := m.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "burst exhausted")

	ok, _ = m.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Second)
	ok, _ = m.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "one token per second refills")
}

func TestMemorySweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(60, 1)
	m.now = func() time.Time { return now }

	_, _ = m.Allow(context.Background(), "a")
	now = now.Add(10 * time.Minute)
	_, _ = m.Allow(context.Background(), "b")
	m.Sweep()

	assert.NotContains(t, m.visitors, "a")
	assert.Contains(t, m.visitors, "b")
}

func TestRedisWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := NewRedis(client, "test", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := r.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := r.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	mr.FastForward(time.Minute)
	ok, err = r.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisWindowKeepsExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := NewRedis(client, "test", 5, time.Minute)
	ctx := context.Background()

	_, err := r.Allow(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(40 * time.Second)
	_, err = r.Allow(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, mr.TTL("test:k"), "later hits do not extend the window")

	// a counter left behind without a TTL gets one on the next hit
	require.NoError(t, mr.Set("test:orphan", "9"))
	ok, err := r.Allow(ctx, "orphan")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("test:orphan"))
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err := NewRedis(client, "test", 1, time.Minute).Allow(context.Background(), "k")
	assert.Error(t, err)
}
