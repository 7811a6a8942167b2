package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
)

// Worker is a background component with an explicit start, such as a job queue.
type Worker interface {
	Start() error
	Stop(ctx context.Context) error
}

// Runner blocks in Run until its context ends, such as a Kafka consumer.
type Runner interface {
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Option func(*App)

func WithWorker(name string, w Worker) Option {
	return func(a *App) {
		if w != nil {
			a.workers = append(a.workers, named[Worker]{name, w})
		}
	}
}

func WithRunner(name string, r Runner) Option {
	return func(a *App) {
		if r != nil {
			a.runners = append(a.runners, named[Runner]{name, r})
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

type named[T any] struct {
	name string
	v    T
}

// App owns the process lifecycle: HTTP server, scheduled jobs, queue
// workers and stream consumers.
type App struct {
	log             *logger.Logger
	http            *httpx.Server
	scheduler       *Scheduler
	workers         []named[Worker]
	runners         []named[Runner]
	shutdownTimeout time.Duration
	wg              sync.WaitGroup
}

func New(l *logger.Logger, srv *httpx.Server, sched *Scheduler, opts ...Option) *App {
	if l == nil {
		l = logger.Nop()
	}
	a := &App{log: l, http: srv, scheduler: sched, shutdownTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts everything and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts everything and blocks until ctx is done, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, w := range a.workers {
		if err := w.v.Start(); err != nil {
			return err
		}
		a.log.Info("worker started", logger.String("worker", w.name))
	}
	for _, r := range a.runners {
		a.wg.Add(1)
		go func(r named[Runner]) {
			defer a.wg.Done()
			if err := r.v.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("runner stopped", logger.String("runner", r.name), logger.Error(err))
			}
		}(r)
		a.log.Info("runner started", logger.String("runner", r.name))
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	if err := a.http.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop", logger.Error(err))
		}
	}
	for _, r := range a.runners {
		if err := r.v.Stop(ctx); err != nil {
			a.log.Warn("runner stop", logger.String("runner", r.name), logger.Error(err))
		}
	}
	a.wg.Wait()
	for i := len(a.workers) - 1; i >= 0; i-- {
		w := a.workers[i]
		if err := w.v.Stop(ctx); err != nil {
			a.log.Warn("worker stop", logger.String("worker", w.name), logger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
