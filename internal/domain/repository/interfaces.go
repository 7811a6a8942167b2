package repository

import (
	"context"
	"errors"
	"time"

	"github.com/doby176/light/internal/domain/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrNoDatabase means no candle database exists for the ticker.
	ErrNoDatabase = errors.New("no database available")
	// ErrSourceMissing means a data file is absent.
	ErrSourceMissing = errors.New("data file not found")
	// ErrInvalidFormat means a data file lacks required columns.
	ErrInvalidFormat = errors.New("invalid data format")
	ErrEmailTaken    = errors.New("email already registered")
)

// CandleStore reads intraday bars.
type CandleStore interface {
	// Tickers lists tickers with data, sorted.
	Tickers(ctx context.Context) ([]string, error)
	// Dates lists the distinct trading dates (YYYY-MM-DD) for ticker, sorted.
	Dates(ctx context.Context, ticker string) ([]string, error)
	// Candles returns the bars of one calendar day ordered by time.
	Candles(ctx context.Context, ticker string, day time.Time) ([]models.Candle, error)
	Health(ctx context.Context) error
	Close() error
}

// EventSource reads the precomputed statistics files. Files are re-read on
// every call so replacing them on disk takes effect without a restart.
type EventSource interface {
	Gaps(ctx context.Context) ([]models.GapEvent, error)
	NewsEvents(ctx context.Context) ([]models.NewsEvent, error)
	EconomicEvents(ctx context.Context) ([]models.EconomicEvent, error)
	Earnings(ctx context.Context) ([]models.EarningsEvent, error)
	EventMetrics(ctx context.Context) (models.EventMetricsTable, error)
}

type UserStore interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, u *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	// Path is the database file, uploaded by the backup job.
	Path() string
	Close() error
}

// BackupUploader copies a local file to object storage.
type BackupUploader interface {
	Upload(ctx context.Context, path string) error
}

// ActionPublisher ships counted actions to the audit stream.
type ActionPublisher interface {
	PublishAction(ctx context.Context, ev models.ActionEvent) error
}

type Metrics interface {
	RecordAction(counter, outcome string)
	RecordScrape(ok bool, seconds float64)
	RecordRowsSkipped(source string, n int)
	RecordJob(jobType, status string)
	RecordPublish(topic string, ok bool)
	RecordError(kind string)
	RecordQuote(symbol, field string, value float64)
	RecordLatency(op string, seconds float64)
}
