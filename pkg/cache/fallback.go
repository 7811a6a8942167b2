package cache

import (
	"context"
	"errors"
	"time"

	"github.com/doby176/light/pkg/logger"
)

// FallbackCache sends every call to primary and, when primary returns an
// error other than a miss, repeats it against secondary. Counters therefore
// keep working in-process while Redis is down.
type FallbackCache struct {
	primary   Service
	secondary Service
	log       *logger.Logger
}

func NewFallbackCache(primary, secondary Service, log *logger.Logger) *FallbackCache {
	if log == nil {
		log = logger.Nop()
	}
	return &FallbackCache{primary: primary, secondary: secondary, log: log}
}

func (f *FallbackCache) degrade(op, key string, err error) bool {
	if err == nil || errors.Is(err, ErrCacheMiss) {
		return false
	}
	f.log.Warn("cache primary failed, using fallback",
		logger.String("op", op), logger.String("key", key), logger.Error(err))
	return true
}

func (f *FallbackCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := f.primary.Set(ctx, key, value, expiration); f.degrade("set", key, err) {
		return f.secondary.Set(ctx, key, value, expiration)
	}
	return nil
}

func (f *FallbackCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := f.primary.Get(ctx, key, dest)
	if f.degrade("get", key, err) {
		return f.secondary.Get(ctx, key, dest)
	}
	return err
}

func (f *FallbackCache) Delete(ctx context.Context, keys ...string) error {
	err := f.primary.Delete(ctx, keys...)
	_ = f.secondary.Delete(ctx, keys...)
	if f.degrade("delete", "", err) {
		return nil
	}
	return err
}

func (f *FallbackCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	ok, err := f.primary.Exists(ctx, keys...)
	if f.degrade("exists", "", err) {
		return f.secondary.Exists(ctx, keys...)
	}
	return ok, err
}

func (f *FallbackCache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	n, left, err := f.primary.IncrWithTTL(ctx, key, ttl)
	if f.degrade("incr", key, err) {
		return f.secondary.IncrWithTTL(ctx, key, ttl)
	}
	return n, left, err
}

func (f *FallbackCache) Count(ctx context.Context, key string) (int64, time.Duration, error) {
	n, left, err := f.primary.Count(ctx, key)
	if f.degrade("count", key, err) {
		return f.secondary.Count(ctx, key)
	}
	return n, left, err
}

func (f *FallbackCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := f.primary.TryLock(ctx, key, ttl)
	if f.degrade("lock", key, err) {
		return f.secondary.TryLock(ctx, key, ttl)
	}
	return ok, err
}

func (f *FallbackCache) Unlock(ctx context.Context, key string) error {
	err := f.primary.Unlock(ctx, key)
	_ = f.secondary.Unlock(ctx, key)
	if f.degrade("unlock", key, err) {
		return nil
	}
	return err
}
