package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/pkg/cache"
	"github.com/doby176/light/pkg/logger"
)

// ActionCounter is a per-session budget of actions inside a fixed window.
// The window starts with the first counted action and the key expires with
// it, after which counting restarts from zero.
type ActionCounter struct {
	store   cache.Service
	name    string
	limit   int
	window  time.Duration
	metrics domrepo.Metrics
	log     *logger.Logger
}

type CounterOption func(*ActionCounter)

func WithMetrics(m domrepo.Metrics) CounterOption {
	return func(c *ActionCounter) { c.metrics = m }
}

func WithLogger(l *logger.Logger) CounterOption {
	return func(c *ActionCounter) {
		if l != nil {
			c.log = l
		}
	}
}

func NewActionCounter(store cache.Service, name string, limit int, window time.Duration, opts ...CounterOption) *ActionCounter {
	c := &ActionCounter{
		store:  store,
		name:   name,
		limit:  limit,
		window: window,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ActionCounter) Name() string { return c.name }

func (c *ActionCounter) Limit() int { return c.limit }

func (c *ActionCounter) key(id string) string { return cache.Key(c.name, id) }

// Allow counts one action for id. When the store fails the action is
// allowed and the decision is marked FailOpen; the error is logged, not
// returned.
func (c *ActionCounter) Allow(ctx context.Context, id string) (models.LimitDecision, error) {
	if id == "" {
		return models.LimitDecision{}, fmt.Errorf("%s: empty session id", c.name)
	}
	n, left, err := c.store.IncrWithTTL(ctx, c.key(id), c.window)
	if err != nil {
		c.log.Warn("action counter unavailable, allowing",
			logger.String("counter", c.name),
			logger.String("session", id),
			logger.Error(err),
		)
		c.record("fail_open")
		return models.LimitDecision{Allowed: true, FailOpen: true, Limit: c.limit, Remaining: c.limit}, nil
	}

	d := models.LimitDecision{
		Allowed:   n <= int64(c.limit),
		Count:     n,
		Limit:     c.limit,
		Remaining: max(0, c.limit-int(n)),
		ResetIn:   left,
	}
	if d.Allowed {
		c.record("allowed")
	} else {
		c.log.Info("action limit exceeded",
			logger.String("counter", c.name),
			logger.String("session", id),
			logger.Int64("count", n),
		)
		c.record("rejected")
	}
	return d, nil
}

// Status reports usage without counting.
func (c *ActionCounter) Status(ctx context.Context, id string) (models.LimitStatus, error) {
	st := models.LimitStatus{Counter: c.name, Limit: c.limit, Remaining: c.limit}
	if id == "" {
		return st, nil
	}
	n, left, err := c.store.Count(ctx, c.key(id))
	if err != nil {
		return st, fmt.Errorf("%s status: %w", c.name, err)
	}
	st.Used = n
	st.Remaining = max(0, c.limit-int(n))
	st.ResetIn = int64(left.Seconds())
	return st, nil
}

func (c *ActionCounter) record(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordAction(c.name, outcome)
	}
}
