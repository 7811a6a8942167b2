package repository

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/internal/loader"
	applogger "github.com/doby176/light/pkg/logger"
)

// EventFiles are the CSV paths behind the statistics endpoints.
type EventFiles struct {
	Gaps         string
	NewsEvents   string
	Economic     string
	Earnings     string
	EventMetrics string
}

// CSVEventSource reads the statistics files from disk on every call.
type CSVEventSource struct {
	files   EventFiles
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func NewCSVEventSource(files EventFiles, l *applogger.Logger, m domrepo.Metrics) *CSVEventSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVEventSource{files: files, l: l, metrics: m}
}

func (s *CSVEventSource) Gaps(_ context.Context) ([]models.GapEvent, error) {
	events, stats, err := loader.LoadGaps(s.files.Gaps)
	return events, s.finish("gaps", stats, err)
}

func (s *CSVEventSource) NewsEvents(_ context.Context) ([]models.NewsEvent, error) {
	events, stats, err := loader.LoadNewsEvents(s.files.NewsEvents)
	return events, s.finish("news_events", stats, err)
}

func (s *CSVEventSource) EconomicEvents(_ context.Context) ([]models.EconomicEvent, error) {
	events, stats, err := loader.LoadEconomicEvents(s.files.Economic)
	return events, s.finish("economic_events", stats, err)
}

func (s *CSVEventSource) Earnings(_ context.Context) ([]models.EarningsEvent, error) {
	events, stats, err := loader.LoadEarnings(s.files.Earnings)
	return events, s.finish("earnings", stats, err)
}

func (s *CSVEventSource) EventMetrics(_ context.Context) (models.EventMetricsTable, error) {
	table, stats, err := loader.LoadEventMetrics(s.files.EventMetrics)
	return table, s.finish("event_metrics", stats, err)
}

// finish logs the load and maps loader errors onto the repository sentinels.
func (s *CSVEventSource) finish(source string, stats loader.Stats, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.l.Error("data file not found", applogger.String("source", source), applogger.String("path", stats.Source))
			return fmt.Errorf("%s: %w", source, domrepo.ErrSourceMissing)
		case loader.IsColumnsError(err):
			s.l.Error("data file has wrong columns", applogger.String("source", source), applogger.Error(err))
			return fmt.Errorf("%s: %w: %w", source, domrepo.ErrInvalidFormat, err)
		default:
			s.l.Error("data file load failed", applogger.String("source", source), applogger.Error(err))
			return fmt.Errorf("%s: %w", source, err)
		}
	}
	if stats.Skipped > 0 {
		s.l.Warn("skipped malformed rows",
			applogger.String("source", source),
			applogger.Int("rows", stats.Rows),
			applogger.Int("skipped", stats.Skipped),
			applogger.Strings("warnings", stats.Warnings),
		)
		if s.metrics != nil {
			s.metrics.RecordRowsSkipped(source, stats.Skipped)
		}
	}
	s.l.Debug("data file loaded", applogger.String("source", source), applogger.Int("rows", stats.Rows))
	return nil
}
