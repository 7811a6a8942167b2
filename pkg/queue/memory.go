package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/doby176/light/pkg/logger"
)

// MemoryQueue runs jobs in process. It is used when Redis is not
// configured; messages do not survive a restart.
type MemoryQueue struct {
	cfg     Config
	log     *logger.Logger
	reg     *registry
	ch      chan Message
	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	dead    []Message
}

func NewMemoryQueue(lgr *logger.Logger, cfg Config, jobs ...Job) *MemoryQueue {
	if lgr == nil {
		lgr = logger.Nop()
	}
	cfg.normalize()
	q := &MemoryQueue{
		cfg: cfg,
		log: lgr.With(logger.String("queue", "memory")),
		ch:  make(chan Message, cfg.QueueSize),
	}
	q.reg = newRegistry(q.log)
	for _, j := range jobs {
		q.reg.register(j)
	}
	return q
}

func (q *MemoryQueue) RegisterJob(job Job) { q.reg.register(job) }

func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	q.running = true
	q.ctx, q.cancel = context.WithCancel(context.Background())
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.log.Info("memory queue started", logger.Int("workers", q.cfg.Workers))
	return nil
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		q.log.Info("memory queue stopped")
		return nil
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	if !q.reg.has(msgType) {
		return fmt.Errorf("%w: %s", ErrNoJob, msgType)
	}
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeadLetters returns messages that exhausted their retries.
func (q *MemoryQueue) DeadLetters() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Message(nil), q.dead...)
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.ch:
			q.process(msg)
		}
	}
}

func (q *MemoryQueue) process(msg Message) {
	out, err := q.reg.run(q.ctx, msg, q.cfg.RetryLimit)
	switch out {
	case outcomeRetry:
		msg.Attempts++
		msg.LastError = err.Error()
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			t := time.NewTimer(q.cfg.RetryDelay)
			defer t.Stop()
			select {
			case <-q.ctx.Done():
			case <-t.C:
				select {
				case q.ch <- msg:
				case <-q.ctx.Done():
				}
			}
		}()
	case outcomeDead:
		msg.LastError = err.Error()
		q.mu.Lock()
		q.dead = append(q.dead, msg)
		q.mu.Unlock()
	}
}
