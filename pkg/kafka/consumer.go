package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"github.com/doby176/light/pkg/logger"
)

// HandlerFunc processes one message value.
type HandlerFunc func(ctx context.Context, key, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic and hands each message to a handler with
// bounded retries. Offsets are committed after the last attempt whether
// or not it succeeded, so a poison message cannot stall the topic.
type Consumer struct {
	cfg      *ConsumerConfig
	reader   messageReader
	handler  HandlerFunc
	log      *logger.Logger
	stopOnce sync.Once
	done     chan struct{}
}

func NewConsumer(handler HandlerFunc, log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   1,
		MaxBytes:   1e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("topic and group id are required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(cfg, reader, handler, log), nil
}

func newConsumer(cfg *ConsumerConfig, r messageReader, h HandlerFunc, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	initConsumerMetricsOnce()
	return &Consumer{
		cfg:     cfg,
		reader:  r,
		handler: h,
		log:     log.With(logger.String("topic", cfg.Topic)),
		done:    make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.done)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil // reader closed
			}
			c.log.Warn("kafka fetch failed", logger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMax) {
				return nil
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	start := time.Now()
	var err error
	for attempt := 1; ; attempt++ {
		err = c.safeHandle(ctx, msg)
		if err == nil || attempt > c.cfg.RetryMax {
			break
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return
		}
	}
	result := "ok"
	if err != nil {
		result = "error"
		c.log.Error("kafka message dropped after retries",
			logger.Int64("offset", msg.Offset), logger.Error(err))
	}
	consumerHandled.WithLabelValues(c.cfg.Topic, result).Inc()
	consumerHandleLatency.WithLabelValues(c.cfg.Topic).Observe(time.Since(start).Seconds())

	commitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if cerr := c.reader.CommitMessages(commitCtx, msg); cerr != nil {
		c.log.Warn("kafka commit failed", logger.Error(cerr))
	}
}

func (c *Consumer) safeHandle(ctx context.Context, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return c.handler(ctx, msg.Key, msg.Value)
}

// Stop closes the reader, which unblocks Run.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		err = c.reader.Close()
		select {
		case <-c.done:
		case <-ctx.Done():
			err = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}
	})
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// up to 50% jitter
	if half := int64(exp) / 2; half > 0 {
		exp -= time.Duration(rand.Int63n(half))
	}
	return exp
}

var (
	consumerHandled       *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerHandled = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "light_kafka_consumer_messages_total", Help: "Messages handled by result"},
			[]string{"topic", "result"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "light_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
