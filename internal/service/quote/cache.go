package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	domsvc "github.com/doby176/light/internal/domain/service"
	"github.com/doby176/light/pkg/cache"
	"github.com/doby176/light/pkg/logger"
)

const scrapeLockTTL = 30 * time.Second

// Publisher ships freshly scraped quotes to other replicas.
type Publisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

// Cache keeps one quote per market date. A scrape happens at most once per
// market date unless it fails; concurrent callers wait for the scrape in
// flight instead of starting their own. On a failed scrape the previous
// quote, if any, is served.
type Cache struct {
	fetcher domsvc.QuoteFetcher
	cal     Calendar
	symbol  string
	now     func() time.Time

	mirror    cache.Service
	mirrorTTL time.Duration
	publisher Publisher
	metrics   domrepo.Metrics
	log       *logger.Logger

	flight sync.Mutex // held for the whole refresh
	mu     sync.RWMutex
	cur    *models.CachedQuote

	subMu  sync.Mutex
	subs   map[int]chan models.CachedQuote
	nextID int
}

type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMirror shares quotes through store so replicas scrape once between them.
func WithMirror(store cache.Service, ttl time.Duration) Option {
	return func(c *Cache) {
		c.mirror = store
		c.mirrorTTL = ttl
	}
}

func WithPublisher(p Publisher) Option {
	return func(c *Cache) { c.publisher = p }
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func NewCache(fetcher domsvc.QuoteFetcher, cal Calendar, symbol string, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		cal:     cal,
		symbol:  symbol,
		now:     time.Now,
		log:     logger.Nop(),
		subs:    make(map[int]chan models.CachedQuote),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the quote for the current market date.
func (c *Cache) Get(ctx context.Context) (models.Quote, error) {
	cq, err := c.current(ctx, false)
	if err != nil {
		return models.Quote{}, err
	}
	return cq.Data, nil
}

// Current is Get with the market date and fetch time attached.
func (c *Cache) Current(ctx context.Context) (models.CachedQuote, error) {
	return c.current(ctx, false)
}

// Refresh scrapes regardless of what is cached. It runs from the opening
// schedule.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.current(ctx, true)
	return err
}

// Latest returns the cached quote without scraping.
func (c *Cache) Latest() (models.CachedQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cur == nil {
		return models.CachedQuote{}, false
	}
	return *c.cur, true
}

// MarketDate is the market date at the cache's clock.
func (c *Cache) MarketDate() string { return c.cal.MarketDate(c.now()) }

func (c *Cache) current(ctx context.Context, force bool) (models.CachedQuote, error) {
	date := c.cal.MarketDate(c.now())

	if cq, ok := c.Latest(); ok && !force && cq.MarketDate == date {
		return cq, nil
	}

	c.flight.Lock()
	defer c.flight.Unlock()

	// a caller ahead of us may have finished the scrape
	prev, hasPrev := c.Latest()
	if !force && hasPrev && prev.MarketDate == date {
		return prev, nil
	}

	if !force && c.mirror != nil {
		if cq, ok := c.fromMirror(ctx, date); ok {
			c.store(cq)
			return cq, nil
		}
		locked, err := c.mirror.TryLock(ctx, c.lockKey(), scrapeLockTTL)
		if err == nil && !locked && hasPrev {
			// another replica is scraping
			return prev, nil
		}
		if locked {
			defer func() { _ = c.mirror.Unlock(context.Background(), c.lockKey()) }()
		}
	}

	start := time.Now()
	q, err := c.fetcher.Fetch(ctx)
	if c.metrics != nil {
		c.metrics.RecordScrape(err == nil, time.Since(start).Seconds())
	}
	if err != nil {
		if hasPrev {
			c.log.Warn("quote scrape failed, serving cached quote",
				logger.String("symbol", c.symbol),
				logger.String("cached_date", prev.MarketDate),
				logger.Error(err),
			)
			return prev, nil
		}
		return models.CachedQuote{}, fmt.Errorf("scrape %s: %w", c.symbol, err)
	}

	cq := models.CachedQuote{Symbol: c.symbol, Data: q, MarketDate: date, FetchedAt: c.now()}
	c.store(cq)
	c.log.Info("quote scraped",
		logger.String("symbol", c.symbol),
		logger.String("market_date", date),
		logger.String("gap", q.GapPct),
	)
	c.share(ctx, cq)
	return cq, nil
}

// Apply installs a quote scraped elsewhere when it is newer than ours.
func (c *Cache) Apply(cq models.CachedQuote) bool {
	if cq.Symbol != c.symbol || cq.MarketDate == "" {
		return false
	}
	c.mu.Lock()
	if c.cur != nil && !cq.FetchedAt.After(c.cur.FetchedAt) {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	c.store(cq)
	return true
}

// HandleMessage decodes a quote from the sync topic. It matches
// kafka.HandlerFunc.
func (c *Cache) HandleMessage(_ context.Context, _, value []byte) error {
	var cq models.CachedQuote
	if err := json.Unmarshal(value, &cq); err != nil {
		return fmt.Errorf("decode quote: %w", err)
	}
	if c.Apply(cq) {
		c.log.Debug("quote applied from sync topic", logger.String("market_date", cq.MarketDate))
	}
	return nil
}

// Subscribe returns a channel receiving every new quote. Slow readers only
// see the latest one. Call cancel to stop.
func (c *Cache) Subscribe() (<-chan models.CachedQuote, func()) {
	ch := make(chan models.CachedQuote, 1)
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(ch)
		})
	}
}

func (c *Cache) store(cq models.CachedQuote) {
	c.mu.Lock()
	c.cur = &cq
	c.mu.Unlock()
	if c.metrics != nil {
		if v, ok := cq.Data.OpenPrice(); ok {
			c.metrics.RecordQuote(cq.Symbol, "open", v)
		}
		if v, ok := cq.Data.PrevClosePrice(); ok {
			c.metrics.RecordQuote(cq.Symbol, "prev_close", v)
		}
		if cq.Data.GapValue != nil {
			c.metrics.RecordQuote(cq.Symbol, "gap_pct", *cq.Data.GapValue)
		}
	}
	c.notify(cq)
}

func (c *Cache) notify(cq models.CachedQuote) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- cq:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cq:
			default:
			}
		}
	}
}

func (c *Cache) fromMirror(ctx context.Context, date string) (models.CachedQuote, bool) {
	var cq models.CachedQuote
	err := c.mirror.Get(ctx, c.mirrorKey(), &cq)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.log.Warn("quote mirror read failed", logger.Error(err))
		}
		return cq, false
	}
	return cq, cq.MarketDate == date && cq.Symbol == c.symbol
}

func (c *Cache) share(ctx context.Context, cq models.CachedQuote) {
	if c.mirror != nil {
		if err := c.mirror.Set(ctx, c.mirrorKey(), cq, c.mirrorTTL); err != nil {
			c.log.Warn("quote mirror write failed", logger.Error(err))
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, c.symbol, cq); err != nil {
			c.log.Warn("quote publish failed", logger.Error(err))
		}
	}
}

func (c *Cache) mirrorKey() string { return cache.Key("quote", c.symbol) }

func (c *Cache) lockKey() string { return cache.Key("quote", c.symbol, "lock") }
