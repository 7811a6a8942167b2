package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/internal/handler/api"
	"github.com/doby176/light/internal/repository"
	"github.com/doby176/light/internal/service/auth"
	svcmetrics "github.com/doby176/light/internal/service/metrics"
	"github.com/doby176/light/internal/service/quote"
	"github.com/doby176/light/internal/service/ratelimit"
	"github.com/doby176/light/internal/usecase"
	"github.com/doby176/light/pkg/cache"
	pkgch "github.com/doby176/light/pkg/clickhouse"
	"github.com/doby176/light/pkg/config"
	httpx "github.com/doby176/light/pkg/http"
	pkgkafka "github.com/doby176/light/pkg/kafka"
	"github.com/doby176/light/pkg/logger"
	"github.com/doby176/light/pkg/metrics"
	"github.com/doby176/light/pkg/queue"
	"github.com/doby176/light/pkg/server"
)

const (
	jobQuoteRefresh = "quote-refresh"
	jobIPSweep      = "ip-limiter-sweep"
)

// ProvideLogger builds the root logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus recorder and registers the endpoint metrics.
func ProvideMetrics() domrepo.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideMarketLocation is the zone market hours and schedules are evaluated in.
func ProvideMarketLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Quote.Timezone)
	if err != nil {
		return nil, fmt.Errorf("quote timezone: %w", err)
	}
	return loc, nil
}

// ProvideRedis connects to Redis when enabled; nil otherwise.
func ProvideRedis(cfg *config.Config, l *logger.Logger) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisURL(cfg.Redis.URL),
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisTimeouts(cfg.Redis.Timeout, cfg.Redis.Timeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	l.Info("redis connected", logger.String("prefix", cfg.Redis.Prefix))
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache is the shared key-value store for counters, sessions and the
// quote mirror: Redis with an in-process fallback, or memory alone.
func ProvideCache(rc *cache.RedisCache, l *logger.Logger) (cache.Service, func()) {
	mem := cache.NewMemoryCache()
	cleanup := func() { _ = mem.Close() }
	if rc == nil {
		l.Warn("redis disabled, counters and sessions are per-process")
		return mem, cleanup
	}
	return cache.NewFallbackCache(rc, mem, l), cleanup
}

// ProvideKafkaProducer creates the producer when Kafka is enabled; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	p, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.BatchSize, cfg.Kafka.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, func() { _ = p.Close() }, nil
}

// ProvideLogDigest ships deduplicated error logs to the log topic.
func ProvideLogDigest(cfg *config.Config, l *logger.Logger, p *pkgkafka.Producer) (*logger.ErrorDigest, func()) {
	if p == nil {
		return nil, func() {}
	}
	d := logger.NewErrorDigest(logger.DigestConfig{
		Key:       cfg.Logger.Service,
		Publisher: p.Topic(cfg.Kafka.LogTopic),
	})
	l.AttachDigest(d)
	return d, func() {
		l.DetachDigest()
		d.Close()
	}
}

func ProvideActionPublisher(cfg *config.Config, p *pkgkafka.Producer, m domrepo.Metrics) domrepo.ActionPublisher {
	if p == nil {
		return nil
	}
	return repository.NewKafkaActionPublisher(p.Topic(cfg.Kafka.ActionTopic), m)
}

// ProvideCandleStore opens the configured candle backend.
func ProvideCandleStore(cfg *config.Config, l *logger.Logger) (domrepo.CandleStore, func(), error) {
	loc, err := time.LoadLocation(cfg.Candles.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("candles timezone: %w", err)
	}
	if cfg.Candles.Backend != "clickhouse" {
		s := repository.NewSQLiteCandleStore(cfg.Data.DBDir, cfg.Data.Tickers, loc, l)
		return s, func() { _ = s.Close() }, nil
	}

	ch, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecution),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ch.InitSchema(ctx, repository.CandleSchema(cfg.ClickHouse.Table)); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	s, err := repository.NewCHCandleStore(ch, cfg.ClickHouse.Table, cfg.Data.Tickers, loc)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	s.SetLogger(l)
	return s, func() { _ = ch.Close() }, nil
}

func ProvideEventSource(cfg *config.Config, l *logger.Logger, m domrepo.Metrics) domrepo.EventSource {
	return repository.NewCSVEventSource(repository.EventFiles{
		Gaps:         cfg.Data.GapCSV,
		NewsEvents:   cfg.Data.NewsEventsCSV,
		Economic:     cfg.Data.EconomicCSV,
		Earnings:     cfg.Data.EarningsCSV,
		EventMetrics: cfg.Data.EventMetricCSV,
	}, l, m)
}

// ProvideUserStore opens the users database and creates its table.
func ProvideUserStore(cfg *config.Config) (domrepo.UserStore, func(), error) {
	s, err := repository.NewSQLiteUserStore(cfg.Data.UsersDB)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Init(ctx); err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

// ProvideBackupUploader returns the S3 uploader when backups are enabled; nil otherwise.
func ProvideBackupUploader(cfg *config.Config, l *logger.Logger) (domrepo.BackupUploader, error) {
	if !cfg.Backup.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	u, err := repository.NewS3Uploader(ctx, cfg.Backup.Region, cfg.Backup.Bucket, cfg.Backup.Key, l)
	if err != nil {
		return nil, fmt.Errorf("s3 uploader: %w", err)
	}
	return u, nil
}

// ProvideQueue runs background jobs on Redis when available, in process otherwise.
func ProvideQueue(cfg *config.Config, l *logger.Logger, rc *cache.RedisCache, uploader domrepo.BackupUploader, m domrepo.Metrics) queue.Queue {
	qcfg := queue.Config{
		Workers:    cfg.Backup.Workers,
		RetryLimit: cfg.Backup.MaxRetries,
		RetryDelay: cfg.Backup.RetryDelay,
	}
	var jobs []queue.Job
	if uploader != nil {
		jobs = append(jobs, auth.NewBackupJob(uploader, m, l))
	}
	if rc == nil {
		return queue.NewMemoryQueue(l, qcfg, jobs...)
	}
	q := queue.NewRedisQueue(l, qcfg, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":jobs"))
	for _, j := range jobs {
		q.RegisterJob(j)
	}
	return q
}

func ProvideSessions(cfg *config.Config, store cache.Service) *auth.Sessions {
	return auth.NewSessions(store, cfg.Auth.SessionTTL)
}

func ProvideAuthService(cfg *config.Config, users domrepo.UserStore, sessions *auth.Sessions, q queue.Queue, l *logger.Logger) *auth.Service {
	opts := []auth.Option{auth.WithBcryptCost(cfg.Auth.BcryptCost), auth.WithLogger(l)}
	if cfg.Backup.Enabled {
		opts = append(opts, auth.WithBackups(q))
	}
	return auth.NewService(users, sessions, opts...)
}

// ProvideQuoteCache builds the daily quote cache. The mirror lets replicas
// share one scrape; the quote topic pushes fresh quotes to the others.
func ProvideQuoteCache(cfg *config.Config, loc *time.Location, store cache.Service, p *pkgkafka.Producer, m domrepo.Metrics, l *logger.Logger) *quote.Cache {
	opts := []quote.Option{
		quote.WithMirror(store, cfg.Quote.MirrorTTL),
		quote.WithMetrics(m),
		quote.WithLogger(l),
	}
	if p != nil {
		opts = append(opts, quote.WithPublisher(p.Topic(cfg.Kafka.QuoteTopic)))
	}
	scraper := quote.NewScraper(cfg.Quote.URL, cfg.Quote.Timeout)
	return quote.NewCache(scraper, quote.NewCalendar(loc), cfg.Quote.Symbol, opts...)
}

func ProvideQuoteHub(cfg *config.Config, qc *quote.Cache, l *logger.Logger) *quote.Hub {
	return quote.NewHub(qc, cfg.Quote.PingInterval, l)
}

// ProvideQuoteConsumer follows the quote topic so quotes scraped by other
// replicas reach this one. Every replica reads with its own group.
func ProvideQuoteConsumer(cfg *config.Config, qc *quote.Cache, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	host, _ := os.Hostname()
	c, err := pkgkafka.NewConsumer(qc.HandleMessage, l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(fmt.Sprintf("%s-quotes-%s", cfg.Kafka.GroupID, host)),
		pkgkafka.WithConsumerTopic(cfg.Kafka.QuoteTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("quote consumer: %w", err)
	}
	return c, nil
}

func ProvideLimiters(cfg *config.Config, store cache.Service, m domrepo.Metrics, l *logger.Logger) usecase.Limiters {
	counter := func(name string, limit int) *ratelimit.ActionCounter {
		return ratelimit.NewActionCounter(store, name, limit, cfg.Limits.Window,
			ratelimit.WithMetrics(m), ratelimit.WithLogger(l))
	}
	return usecase.Limiters{
		Main:          counter(models.CounterMain, cfg.Limits.MainActions),
		GapInsights:   counter(models.CounterGapInsights, cfg.Limits.GapInsights),
		SampleActions: counter(models.CounterSampleActions, cfg.Limits.SampleActions),
		SampleCalls:   counter(models.CounterSampleCalls, cfg.Limits.SampleCalls),
	}
}

func ProvideSampleRules(cfg *config.Config) usecase.SampleRules {
	return usecase.SampleRules{
		Tickers:    cfg.Sample.Tickers,
		Years:      cfg.Sample.Years,
		EventTypes: cfg.Sample.EventTypes,
		GapBins:    cfg.Sample.GapBins,
		MaxDates:   cfg.Sample.MaxDates,
	}
}

func ProvideActionPolicy(limits usecase.Limiters, pub domrepo.ActionPublisher, l *logger.Logger) *usecase.ActionPolicy {
	return usecase.NewActionPolicy(limits, pub, l)
}

func ProvideMarketUseCase(cfg *config.Config, candles domrepo.CandleStore, loc *time.Location, sample usecase.SampleRules, policy *usecase.ActionPolicy, l *logger.Logger) *usecase.MarketUseCase {
	return usecase.NewMarketUseCase(candles, cfg.Data.Tickers, loc, sample, policy, l)
}

func ProvideGapsUseCase(events domrepo.EventSource, qc *quote.Cache, loc *time.Location, sample usecase.SampleRules, policy *usecase.ActionPolicy, l *logger.Logger) *usecase.GapsUseCase {
	return usecase.NewGapsUseCase(events, qc, quote.NewCalendar(loc), sample, policy, l)
}

func ProvideEventsUseCase(cfg *config.Config, events domrepo.EventSource, sample usecase.SampleRules, policy *usecase.ActionPolicy, l *logger.Logger) *usecase.EventsUseCase {
	return usecase.NewEventsUseCase(events, cfg.Data.Tickers, sample, policy, l)
}

func ProvideIPLimiter(cfg *config.Config) *ratelimit.IPLimiter {
	return ratelimit.NewIPLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst)
}

func ProvideHandlers(
	l *logger.Logger,
	sample usecase.SampleRules,
	policy *usecase.ActionPolicy,
	market *usecase.MarketUseCase,
	gaps *usecase.GapsUseCase,
	events *usecase.EventsUseCase,
	qc *quote.Cache,
	hub *quote.Hub,
	authSvc *auth.Service,
) []httpx.Handler {
	return []httpx.Handler{
		api.NewMarketHandler(l, market, policy, sample.GapBins),
		api.NewInsightsHandler(l, gaps, events),
		api.NewQuoteHandler(l, qc, hub),
		api.NewAuthHandler(l, authSvc),
	}
}

func ProvideHTTPServer(cfg *config.Config, handlers []httpx.Handler, ipl *ratelimit.IPLimiter, l *logger.Logger) *httpx.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return httpx.NewServer(handlers,
		httpx.WithHost(cfg.Server.Host),
		httpx.WithPort(cfg.Server.Port),
		httpx.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		httpx.WithCORS(cfg.Server.CORSOrigins...),
		httpx.WithLogger(l),
		httpx.WithMetricsPath(metricsPath),
		httpx.WithMiddleware(
			ipl.Middleware(),
			api.SessionMiddleware(api.SessionCookie{
				Name:   cfg.Auth.CookieName,
				TTL:    cfg.Auth.SessionTTL,
				Secure: cfg.Auth.Secure,
			}),
		),
	)
}

// ProvideScheduler refreshes the quote right after the open and forgets idle
// rate-limit visitors.
func ProvideScheduler(cfg *config.Config, loc *time.Location, qc *quote.Cache, ipl *ratelimit.IPLimiter, l *logger.Logger) (*server.Scheduler, error) {
	s := server.NewScheduler(loc, cfg.Quote.Timeout*3, l)
	if err := s.Add(jobQuoteRefresh, cfg.Quote.RefreshCron, qc.Refresh); err != nil {
		return nil, err
	}
	err := s.Add(jobIPSweep, "*/5 * * * *", func(context.Context) error {
		if n := ipl.Sweep(); n > 0 {
			l.Debug("rate limiter swept", logger.Int("visitors", n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp assembles the application. digest is taken so its lifetime
// matches the app's.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *httpx.Server,
	sched *server.Scheduler,
	q queue.Queue,
	consumer *pkgkafka.Consumer,
	_ *logger.ErrorDigest,
) *server.App {
	opts := []server.Option{
		server.WithWorker("jobs", q),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if consumer != nil {
		opts = append(opts, server.WithRunner("quote-consumer", consumer))
	}
	return server.New(l, srv, sched, opts...)
}
