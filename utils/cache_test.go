package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestCacheSetGetInvalidate(t *testing.T) {
	mr, rc := newMiniRedis(t)
	ctx := context.Background()
	c := NewCache(rc, time.Minute)

	c.SetJSON(ctx, "cache:posts:list:index:page=1", map[string]int{"n": 1})
	c.SetJSON(ctx, "cache:posts:list:category=a:page=1", map[string]int{"n": 2})
	c.SetJSON(ctx, "other", 3)

	b, ok := c.GetBytes(ctx, "cache:posts:list:index:page=1")
	require.True(t, ok)
	assert.JSONEq(t, `{"n":1}`, string(b))

	c.InvalidateByPrefix(ctx, "cache:posts:list:")
	_, ok = c.GetBytes(ctx, "cache:posts:list:index:page=1")
	assert.False(t, ok)
	assert.False(t, mr.Exists("cache:posts:list:category=a:page=1"))
	assert.True(t, mr.Exists("other"))
}

func TestCacheExpires(t *testing.T) {
	mr, rc := newMiniRedis(t)
	ctx := context.Background()
	c := NewCache(rc, 30*time.Second)

	c.SetJSON(ctx, "k", 1)
	mr.FastForward(31 * time.Second)
	_, ok := c.GetBytes(ctx, "k")
	assert.False(t, ok)
}

func TestCacheSetJSONFor(t *testing.T) {
	mr, rc := newMiniRedis(t)
	ctx := context.Background()
	c := NewCache(rc, time.Minute)
	assert.Equal(t, time.Minute, c.TTL())

	c.SetJSONFor(ctx, "short", 1, 10*time.Second)
	assert.Equal(t, 10*time.Second, mr.TTL("short"))

	c.SetJSONFor(ctx, "never", 1, 0)
	assert.False(t, mr.Exists("never"))
}

func TestCacheDisabled(t *testing.T) {
	ctx := context.Background()
	var nilCache *Cache
	nilCache.SetJSON(ctx, "k", 1)
	nilCache.InvalidateByPrefix(ctx, "k")
	_, ok := nilCache.GetBytes(ctx, "k")
	assert.False(t, ok)

	noRedis := NewCache(nil, time.Minute)
	assert.Zero(t, noRedis.TTL())
	noRedis.SetJSON(ctx, "k", 1)
	_, ok = noRedis.GetBytes(ctx, "k")
	assert.False(t, ok)
}

func TestTokenBlacklistRedis(t *testing.T) {
	mr, rc := newMiniRedis(t)
	ctx := context.Background()
	b := NewTokenBlacklist(rc)

	b.Revoke(ctx, "tok", time.Now().Add(time.Hour))
	assert.True(t, b.IsRevoked(ctx, "tok"))
	assert.False(t, b.IsRevoked(ctx, "other"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, b.IsRevoked(ctx, "tok"))
}

func TestTokenBlacklistMemory(t *testing.T) {
	ctx := context.Background()
	b := NewTokenBlacklist(nil)

	b.Revoke(ctx, "expired", time.Now().Add(-time.Minute))
	assert.False(t, b.IsRevoked(ctx, "expired"))

	b.Revoke(ctx, "tok", time.Now().Add(time.Hour))
	assert.True(t, b.IsRevoked(ctx, "tok"))
}
