package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time // zero means no expiry
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && !now.Before(m.expireAt)
}

// MemoryCache implements Service in process with LRU eviction. It backs
// counters when Redis is not configured or unreachable.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	access  map[string]time.Time
	maxSize int
	now     func() time.Time
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         10000,
		CleanupInterval: 5 * time.Minute,
		Clock:           time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:    make(map[string]*memoryItem),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		now:     cfg.Clock,
		done:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		mc.ticker = time.NewTicker(cfg.CleanupInterval)
		go mc.cleanupExpired()
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.put(key, data, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item := mc.lookup(key)
	var data []byte
	if item != nil {
		data = append(data, item.data...)
	}
	mc.mu.Unlock()

	if item == nil {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		mc.drop(key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if mc.lookup(key) == nil {
			return false, nil
		}
	}
	return true, nil
}

func (mc *MemoryCache) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item := mc.lookup(key)
	if item == nil {
		item = mc.put(key, []byte("0"), ttl)
	}
	n, err := strconv.ParseInt(string(item.data), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	n++
	item.data = []byte(strconv.FormatInt(n, 10))
	return n, mc.remaining(item), nil
}

func (mc *MemoryCache) Count(_ context.Context, key string) (int64, time.Duration, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item := mc.lookup(key)
	if item == nil {
		return 0, 0, nil
	}
	n, err := strconv.ParseInt(string(item.data), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return n, mc.remaining(item), nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	k := "lock:" + key
	if mc.lookup(k) != nil {
		return false, nil
	}
	mc.put(k, []byte("1"), ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, "lock:"+key)
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		if mc.ticker != nil {
			mc.ticker.Stop()
		}
		close(mc.done)
	})
	return nil
}

// lookup returns the live item for key, evicting it if expired. Callers hold mu.
func (mc *MemoryCache) lookup(key string) *memoryItem {
	item, ok := mc.data[key]
	if !ok {
		return nil
	}
	now := mc.now()
	if item.expired(now) {
		mc.drop(key)
		return nil
	}
	mc.access[key] = now
	return item
}

func (mc *MemoryCache) put(key string, data []byte, ttl time.Duration) *memoryItem {
	if _, ok := mc.data[key]; !ok && mc.maxSize > 0 && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	now := mc.now()
	item := &memoryItem{data: data}
	if ttl > 0 {
		item.expireAt = now.Add(ttl)
	}
	mc.data[key] = item
	mc.access[key] = now
	return item
}

func (mc *MemoryCache) drop(key string) {
	delete(mc.data, key)
	delete(mc.access, key)
}

func (mc *MemoryCache) remaining(item *memoryItem) time.Duration {
	if item.expireAt.IsZero() {
		return 0
	}
	d := item.expireAt.Sub(mc.now())
	if d < 0 {
		return 0
	}
	return d
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, at := range mc.access {
		if oldestKey == "" || at.Before(oldest) {
			oldestKey, oldest = key, at
		}
	}
	if oldestKey != "" {
		mc.drop(oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.ticker.C:
			mc.mu.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if item.expired(now) {
					mc.drop(key)
				}
			}
			mc.mu.Unlock()
		}
	}
}
