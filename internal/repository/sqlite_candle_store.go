package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	applogger "github.com/doby176/light/pkg/logger"
	"github.com/doby176/light/pkg/util"
)

// QQQ history is split over several files to stay under hosting limits.
const qqqParts = 3

// SQLiteCandleStore reads the per-ticker candle databases in dir. Each file
// holds a `candles(ticker, timestamp, open, high, low, close, volume)` table.
type SQLiteCandleStore struct {
	dir     string
	tickers []string
	loc     *time.Location
	l       *applogger.Logger

	mu    sync.Mutex
	dbs   map[string]*sql.DB
	valid []string
}

// NewSQLiteCandleStore serves the configured tickers from dir. Timestamps
// are interpreted in loc (UTC when nil).
func NewSQLiteCandleStore(dir string, tickers []string, loc *time.Location, l *applogger.Logger) *SQLiteCandleStore {
	if loc == nil {
		loc = time.UTC
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &SQLiteCandleStore{
		dir:     dir,
		tickers: tickers,
		loc:     loc,
		l:       l,
		dbs:     make(map[string]*sql.DB),
	}
}

// Paths lists the existing database files for ticker.
func (s *SQLiteCandleStore) Paths(ticker string) []string {
	if !slices.Contains(s.tickers, ticker) {
		return nil
	}
	var candidates []string
	if ticker == "QQQ" {
		for i := 1; i <= qqqParts; i++ {
			candidates = append(candidates, filepath.Join(s.dir, fmt.Sprintf("stock_data_qqq_part%d.db", i)))
		}
	} else {
		candidates = []string{filepath.Join(s.dir, "stock_data_"+strings.ToLower(ticker)+".db")}
	}
	out := candidates[:0]
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func (s *SQLiteCandleStore) open(path string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[path]; ok {
		return db, nil
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	s.dbs[path] = db
	return db, nil
}

// Tickers returns the configured tickers whose databases hold rows. When
// none do, the configured list is returned as is. The scan runs once.
func (s *SQLiteCandleStore) Tickers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	valid := s.valid
	s.mu.Unlock()
	if valid != nil {
		return valid, nil
	}

	valid = []string{}
	for _, ticker := range s.tickers {
		paths := s.Paths(ticker)
		if len(paths) == 0 {
			s.l.Warn("no database files for ticker", applogger.String("ticker", ticker))
			continue
		}
		for _, p := range paths {
			ok, err := s.hasRows(ctx, p)
			if err != nil {
				s.l.Warn("could not access candle database",
					applogger.String("ticker", ticker),
					applogger.String("path", p),
					applogger.Error(err),
				)
				continue
			}
			if ok {
				valid = append(valid, ticker)
				break
			}
		}
	}
	if len(valid) == 0 {
		s.l.Warn("no valid ticker databases found, falling back to the configured list")
		valid = append(valid, s.tickers...)
	}
	slices.Sort(valid)

	s.mu.Lock()
	s.valid = valid
	s.mu.Unlock()
	return valid, nil
}

func (s *SQLiteCandleStore) hasRows(ctx context.Context, path string) (bool, error) {
	db, err := s.open(path)
	if err != nil {
		return false, err
	}
	var one int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM candles LIMIT 1`).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Dates merges the distinct trading days of every file for ticker.
func (s *SQLiteCandleStore) Dates(ctx context.Context, ticker string) ([]string, error) {
	paths := s.Paths(ticker)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, domrepo.ErrNoDatabase)
	}
	seen := make(map[string]struct{})
	for _, p := range paths {
		db, err := s.open(p)
		if err != nil {
			return nil, err
		}
		rows, err := db.QueryContext(ctx, `SELECT DISTINCT DATE(timestamp) AS date FROM candles WHERE ticker = ?`, ticker)
		if err != nil {
			s.l.Error("sqlite dates query error",
				applogger.String("ticker", ticker),
				applogger.String("path", p),
				applogger.Error(err),
			)
			return nil, fmt.Errorf("query dates: %w", err)
		}
		for rows.Next() {
			var d sql.NullString
			if err := rows.Scan(&d); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan date: %w", err)
			}
			if d.Valid && d.String != "" {
				seen[d.String] = struct{}{}
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	slices.Sort(out)
	return out, nil
}

// Candles concatenates the day's bars from every file for ticker, in time
// order.
func (s *SQLiteCandleStore) Candles(ctx context.Context, ticker string, day time.Time) ([]models.Candle, error) {
	start := time.Now()
	paths := s.Paths(ticker)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, domrepo.ErrNoDatabase)
	}
	date := day.Format(util.DateLayout)
	var out []models.Candle
	for _, p := range paths {
		part, err := s.candlesFrom(ctx, p, ticker, date)
		if err != nil {
			s.l.Error("sqlite candles query error",
				applogger.String("ticker", ticker),
				applogger.String("date", date),
				applogger.String("path", p),
				applogger.Error(err),
			)
			return nil, err
		}
		out = append(out, part...)
	}
	slices.SortStableFunc(out, func(a, b models.Candle) int { return a.Timestamp.Compare(b.Timestamp) })
	s.l.Debug("sqlite candles ok",
		applogger.String("ticker", ticker),
		applogger.String("date", date),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *SQLiteCandleStore) candlesFrom(ctx context.Context, path, ticker, date string) ([]models.Candle, error) {
	db, err := s.open(path)
	if err != nil {
		return nil, err
	}
	// strftime keeps the wall clock as stored regardless of column affinity
	rows, err := db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d %H:%M:%S', timestamp), open, high, low, close, volume
		FROM candles
		WHERE ticker = ? AND DATE(timestamp) = ?
		ORDER BY timestamp`, ticker, date)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 512)
	for rows.Next() {
		var (
			ts     sql.NullString
			volume sql.NullFloat64
			c      = models.Candle{Ticker: ticker}
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		if !ts.Valid {
			continue
		}
		if c.Timestamp, err = util.ParseTimestamp(ts.String, s.loc); err != nil {
			return nil, fmt.Errorf("candle timestamp: %w", err)
		}
		c.Volume = volume.Float64
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Health pings every opened database.
func (s *SQLiteCandleStore) Health(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, db := range s.dbs {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping %s: %w", path, err)
		}
	}
	return nil
}

func (s *SQLiteCandleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for path, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		delete(s.dbs, path)
	}
	return errors.Join(errs...)
}
