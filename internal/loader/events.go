package loader

import (
	"io"
	"time"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/pkg/util"
)

const (
	colEventType    = "event_type"
	colBin          = "bin"
	colTicker       = "ticker"
	colEarningsDate = "earnings_date"
)

func LoadNewsEvents(path string) ([]models.NewsEvent, Stats, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, Stats{Source: path}, err
	}
	defer f.Close()
	events, stats, err := ReadNewsEvents(f)
	stats.Source = path
	return events, stats, err
}

// ReadNewsEvents parses news_events.csv: date, event_type and optional bin.
func ReadNewsEvents(r io.Reader) ([]models.NewsEvent, Stats, error) {
	var (
		stats  Stats
		events []models.NewsEvent
	)
	err := eachRow(r, &stats, []string{colDate, colEventType}, func(h header, rec []string, line int) {
		date, ok := parseDateCell(&stats, h, rec, colDate, line)
		if !ok {
			return
		}
		events = append(events, models.NewsEvent{
			Date:      date,
			EventType: h.get(rec, colEventType),
			Bin:       h.get(rec, colBin),
		})
		stats.Rows++
	})
	return events, stats, err
}

func LoadEconomicEvents(path string) ([]models.EconomicEvent, Stats, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, Stats{Source: path}, err
	}
	defer f.Close()
	events, stats, err := ReadEconomicEvents(f)
	stats.Source = path
	return events, stats, err
}

func ReadEconomicEvents(r io.Reader) ([]models.EconomicEvent, Stats, error) {
	var (
		stats  Stats
		events []models.EconomicEvent
	)
	err := eachRow(r, &stats, []string{colDate, colEventType, colBin}, func(h header, rec []string, line int) {
		date, ok := parseDateCell(&stats, h, rec, colDate, line)
		if !ok {
			return
		}
		events = append(events, models.EconomicEvent{
			Date:      date,
			EventType: h.get(rec, colEventType),
			Bin:       h.get(rec, colBin),
		})
		stats.Rows++
	})
	return events, stats, err
}

func LoadEarnings(path string) ([]models.EarningsEvent, Stats, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, Stats{Source: path}, err
	}
	defer f.Close()
	events, stats, err := ReadEarnings(f)
	stats.Source = path
	return events, stats, err
}

// ReadEarnings parses earnings_data.csv: ticker, earnings_date, bin.
func ReadEarnings(r io.Reader) ([]models.EarningsEvent, Stats, error) {
	var (
		stats  Stats
		events []models.EarningsEvent
	)
	err := eachRow(r, &stats, []string{colTicker, colEarningsDate}, func(h header, rec []string, line int) {
		date, ok := parseDateCell(&stats, h, rec, colEarningsDate, line)
		if !ok {
			return
		}
		events = append(events, models.EarningsEvent{
			Ticker: h.get(rec, colTicker),
			Date:   date,
			Bin:    h.get(rec, colBin),
		})
		stats.Rows++
	})
	return events, stats, err
}

func LoadEventMetrics(path string) (models.EventMetricsTable, Stats, error) {
	f, err := openFile(path)
	if err != nil {
		return models.EventMetricsTable{}, Stats{Source: path}, err
	}
	defer f.Close()
	table, stats, err := ReadEventMetrics(f)
	stats.Source = path
	return table, stats, err
}

// ReadEventMetrics keeps every column of event_analysis_metrics.csv as
// text; callers check the columns they need.
func ReadEventMetrics(r io.Reader) (models.EventMetricsTable, Stats, error) {
	var (
		stats Stats
		table models.EventMetricsTable
	)
	err := eachRow(r, &stats, nil, func(h header, rec []string, _ int) {
		row := make(models.EventMetricsRow, len(h))
		for col := range h {
			row[col] = h.get(rec, col)
		}
		table.Rows = append(table.Rows, row)
		stats.Rows++
	})
	table.Columns = stats.Columns
	return table, stats, err
}

func parseDateCell(stats *Stats, h header, rec []string, col string, line int) (time.Time, bool) {
	raw := h.get(rec, col)
	date, err := util.ParseDate(raw, time.UTC)
	if err != nil {
		stats.skip(line, "bad %s %q", col, raw)
		return time.Time{}, false
	}
	return date, true
}
