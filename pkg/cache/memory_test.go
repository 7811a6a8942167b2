package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time         { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestMemory(t *testing.T) (*MemoryCache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryClock(clk.now), WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	return mc, clk
}

func TestMemoryCacheTypedGet(t *testing.T) {
	mc, _ := newTestMemory(t)
	ctx := context.Background()

	type quote struct {
		Open string `json:"open"`
	}
	require.NoError(t, mc.Set(ctx, "q", quote{Open: "430.10"}, time.Minute))

	var got quote
	require.NoError(t, mc.Get(ctx, "q", &got))
	assert.Equal(t, "430.10", got.Open)

	var missing string
	assert.ErrorIs(t, mc.Get(ctx, "nope", &missing), ErrCacheMiss)
}

func TestMemoryCacheIncrWithTTLKeepsWindow(t *testing.T) {
	mc, clk := newTestMemory(t)
	ctx := context.Background()

	n, left, err := mc.IncrWithTTL(ctx, "main_actions_u1", 12*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 12*time.Hour, left)

	clk.advance(time.Hour)
	n, left, err = mc.IncrWithTTL(ctx, "main_actions_u1", 12*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 11*time.Hour, left, "second increment must not reset the window")

	clk.advance(11 * time.Hour)
	n, _, err = mc.Count(ctx, "main_actions_u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, _, err = mc.IncrWithTTL(ctx, "main_actions_u1", 12*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCacheLock(t *testing.T) {
	mc, clk := newTestMemory(t)
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "refresh", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "refresh", time.Second)
	assert.False(t, ok)

	clk.advance(2 * time.Second)
	ok, _ = mc.TryLock(ctx, "refresh", time.Second)
	assert.True(t, ok)
	require.NoError(t, mc.Unlock(ctx, "refresh"))
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(clk.now), WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	clk.advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	clk.advance(time.Second)
	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	clk.advance(time.Second)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	ok, _ := mc.Exists(ctx, "b")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "a", "c")
	assert.True(t, ok)
}

type brokenCache struct{ Service }

var errDown = errors.New("connection refused")

func (brokenCache) IncrWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errDown
}

func (brokenCache) Get(context.Context, string, interface{}) error { return errDown }

func TestFallbackCacheUsesSecondaryOnError(t *testing.T) {
	mem, _ := newTestMemory(t)
	fc := NewFallbackCache(brokenCache{}, mem, nil)
	ctx := context.Background()

	n, _, err := fc.IncrWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, _, err = fc.IncrWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var s string
	assert.ErrorIs(t, fc.Get(ctx, "absent", &s), ErrCacheMiss)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "quote:QQQ:1", Key("quote", "QQQ", 1))
}
