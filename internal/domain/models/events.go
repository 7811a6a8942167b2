package models

import (
	"math"
	"strings"
	"time"

	"github.com/doby176/light/pkg/util"
)

// NewsEvent is a scheduled macro release (CPI, FOMC, ...) from news_events.csv.
type NewsEvent struct {
	Date      time.Time
	EventType string
	Bin       string
}

// EconomicEvent is a binned economic release from economic_data_binned.csv.
type EconomicEvent struct {
	Date      time.Time
	EventType string
	Bin       string
}

// EarningsEvent is one earnings release with its surprise bin.
type EarningsEvent struct {
	Ticker string
	Date   time.Time
	Bin    string
}

// EarningsBins are the accepted earnings-surprise buckets.
var EarningsBins = []string{"Beat", "Slight Beat", "Miss", "Slight Miss", "Unknown"}

// ValidEarningsBin reports whether bin is one of EarningsBins.
func ValidEarningsBin(bin string) bool {
	for _, b := range EarningsBins {
		if b == bin {
			return true
		}
	}
	return false
}

// Columns of event_analysis_metrics.csv.
const (
	ColEventType          = "event_type"
	ColBin                = "bin"
	ColPremarketMove      = "percent_move_830_831"
	ColPremarketDirection = "direction"
	ColExtremeMove        = "percent_move_930_959_extreme"
	ColExtremeDirection   = "direction_930_959_extreme"
	ColRegularMove        = "percent_move_930_1030_x"
	ColRegularDirection   = "direction_930_1030_x"
	ColTouchLevel         = "touched_premarket_level_x"
	ColSameDirectionMove  = "percent_move_same_direction"
	ColOppositeMove       = "percent_move_opposite_direction"
	ColTouchedLevel       = "touched_premarket_level"
	ColReturnedToOpposite = "returned_to_opposite_level"
	ColSameDirection60Min = "percent_move_same_direction_60min"
	ColOppositeMove60Min  = "percent_move_opposite_direction_60min"
)

// EventMetricsColumns must all be present in the event metrics file.
var EventMetricsColumns = []string{
	ColEventType, ColBin, ColPremarketMove, ColPremarketDirection,
	ColExtremeMove, ColExtremeDirection, ColRegularMove, ColRegularDirection,
	ColTouchLevel, ColSameDirectionMove, ColOppositeMove, ColTouchedLevel,
	ColReturnedToOpposite,
}

// EventMetricsRow is one row of per-event intraday measurements keyed by
// column name.
type EventMetricsRow map[string]string

func (r EventMetricsRow) EventType() string { return r[ColEventType] }

func (r EventMetricsRow) Bin() string { return r[ColBin] }

// Str returns the trimmed cell, "" when absent.
func (r EventMetricsRow) Str(col string) string { return strings.TrimSpace(r[col]) }

// Float returns the numeric cell, NaN when absent or unparseable.
func (r EventMetricsRow) Float(col string) float64 {
	v, ok := r[col]
	if !ok {
		return math.NaN()
	}
	return util.ParseFloat(v)
}

// EventMetricsTable is the whole metrics file with its header.
type EventMetricsTable struct {
	Columns []string
	Rows    []EventMetricsRow
}

// HasColumn reports whether the header carries col.
func (t EventMetricsTable) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// MissingColumns lists the required columns absent from the header.
func (t EventMetricsTable) MissingColumns(required []string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Filter keeps rows matching eventType and bin; empty arguments match all.
func (t EventMetricsTable) Filter(eventType, bin string) []EventMetricsRow {
	out := make([]EventMetricsRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		if eventType != "" && r.EventType() != eventType {
			continue
		}
		if bin != "" && r.Bin() != bin {
			continue
		}
		out = append(out, r)
	}
	return out
}
