package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "sms_code:13912345678", "482913", 5*time.Minute))
		value, err := c.Get(ctx, "sms_code:13912345678")
		require.NoError(t, err)
		assert.Equal(t, "482913", value)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := c.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expiry", func(t *testing.T) {
		now := time.Now()
		c := NewMemory()
		c.now = func() time.Time { return now }

		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

		now = now.Add(30 * time.Second)
		ttl, err := c.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, ttl)

		now = now.Add(31 * time.Second)
		_, err = c.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "forever", "v", 0))
		ttl, err := c.TTL(ctx, "forever")
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), ttl)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", "v", time.Minute))
		require.NoError(t, c.Delete(ctx, "gone"))
		_, err := c.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedis(client)

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "email_code:a@b.com", "771204", 10*time.Minute))
		value, err := c.Get(ctx, "email_code:a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "771204", value)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := c.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		ttl, err := c.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Second)
	})

	t.Run("ttl of missing key", func(t *testing.T) {
		_, err := c.TTL(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", "v", time.Minute))
		mr.FastForward(2 * time.Minute)
		_, err := c.Get(ctx, "short")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", "v", time.Minute))
		require.NoError(t, c.Delete(ctx, "gone"))
		_, err := c.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

type failingCache struct{}

var errDown = errors.New("connection refused")

func (failingCache) Get(ctx context.Context, key string) (string, error) { return "", errDown }
func (failingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errDown
}
func (failingCache) Delete(ctx context.Context, key string) error { return errDown }
func (failingCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, errDown
}

func TestFallbackDegradedMode(t *testing.T) {
	ctx := context.Background()
	c := NewFallback(failingCache{}, NewMemory(), nil)

	require.NoError(t, c.Set(ctx, "sms_code:13912345678", "102030", time.Minute))

	value, err := c.Get(ctx, "sms_code:13912345678")
	require.NoError(t, err)
	assert.Equal(t, "102030", value)

	ttl, err := c.TTL(ctx, "sms_code:13912345678")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, "sms_code:13912345678"))
	_, err = c.Get(ctx, "sms_code:13912345678")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFallbackMissIsNotFailure(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	secondary := NewMemory()
	require.NoError(t, secondary.Set(ctx, "k", "stale", time.Minute))

	c := NewFallback(primary, secondary, nil)

	// The primary answered with a miss; the fallback must not mask it.
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
