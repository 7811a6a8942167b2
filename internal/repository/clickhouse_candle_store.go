package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	pkgch "github.com/doby176/light/pkg/clickhouse"
	applogger "github.com/doby176/light/pkg/logger"
	"github.com/doby176/light/pkg/util"
)

// DefaultCandleTable is the one-minute bar table the ClickHouse backend reads.
const DefaultCandleTable = "market.candles_1m"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CandleSchema creates the bar table. Timestamps are stored as exchange
// wall clock.
func CandleSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ticker LowCardinality(String),
			ts     DateTime,
			open   Float64,
			high   Float64,
			low    Float64,
			close  Float64,
			volume Float64
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (ticker, ts)`, table),
	}
}

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db      *sql.DB
	table   string
	tickers []string
	loc     *time.Location
	l       *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table string, tickers []string, loc *time.Location) (*CHCandleStore, error) {
	if table == "" {
		table = DefaultCandleTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid candle table name %q", table)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CHCandleStore{db: ch.DB(), table: table, tickers: tickers, loc: loc, l: applogger.Nop()}, nil
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// Tickers returns configured tickers present in the table, or the
// configured list when none are.
func (s *CHCandleStore) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT ticker FROM %s`, s.table))
	if err != nil {
		s.l.Error("clickhouse tickers query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("query tickers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		if slices.Contains(s.tickers, t) {
			out = append(out, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		out = append(out, s.tickers...)
	}
	slices.Sort(out)
	return out, nil
}

func (s *CHCandleStore) Dates(ctx context.Context, ticker string) ([]string, error) {
	if !slices.Contains(s.tickers, ticker) {
		return nil, fmt.Errorf("%s: %w", ticker, domrepo.ErrNoDatabase)
	}
	q := fmt.Sprintf(`
		SELECT DISTINCT toString(toDate(ts)) AS d
		FROM %s
		WHERE ticker = ?
		ORDER BY d`, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker)
	if err != nil {
		s.l.Error("clickhouse dates query error",
			applogger.String("table", s.table),
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHCandleStore) Candles(ctx context.Context, ticker string, day time.Time) ([]models.Candle, error) {
	if !slices.Contains(s.tickers, ticker) {
		return nil, fmt.Errorf("%s: %w", ticker, domrepo.ErrNoDatabase)
	}
	start := time.Now()
	date := day.Format(util.DateLayout)
	q := fmt.Sprintf(`
		SELECT formatDateTime(ts, '%%Y-%%m-%%d %%H:%%i:%%S') AS t, open, high, low, close, volume
		FROM %s FINAL
		WHERE ticker = ? AND toDate(ts) = toDate(?)
		ORDER BY ts ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, date)
	if err != nil {
		s.l.Error("clickhouse candles query error",
			applogger.String("table", s.table),
			applogger.String("ticker", ticker),
			applogger.String("date", date),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var (
			ts string
			c  = models.Candle{Ticker: ticker}
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		if c.Timestamp, err = util.ParseTimestamp(ts, s.loc); err != nil {
			return nil, fmt.Errorf("candle timestamp: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse candles ok",
		applogger.String("table", s.table),
		applogger.String("ticker", ticker),
		applogger.String("date", date),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHCandleStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close is a no-op; the ClickHouse client is owned by the caller.
func (s *CHCandleStore) Close() error { return nil }
