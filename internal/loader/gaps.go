package loader

import (
	"io"
	"time"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/pkg/util"
)

// Gap CSV columns.
const (
	colDate               = "date"
	colGapSizeBin         = "gap_size_bin"
	colDayOfWeek          = "day_of_week"
	colGapDirection       = "gap_direction"
	colFilled             = "filled"
	colReversalAfterFill  = "reversal_after_fill"
	colTimeToFill         = "time_to_fill_minutes"
	colMoveBeforeReversal = "move_before_reversal_fill_direction_pct"
	colMaxMoveFirst30     = "max_move_gap_direction_first_30min_pct"
	colTimeOfLow          = "time_of_low"
	colTimeOfHigh         = "time_of_high"
)

// GapInsightColumns are needed on top of the identifying columns to compute
// gap insights.
var GapInsightColumns = []string{
	colFilled, colReversalAfterFill, colTimeToFill, colMoveBeforeReversal,
	colMaxMoveFirst30, colTimeOfLow, colTimeOfHigh,
}

// LoadGaps reads the gap-analysis CSV at path.
func LoadGaps(path string) ([]models.GapEvent, Stats, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, Stats{Source: path}, err
	}
	defer f.Close()
	events, stats, err := ReadGaps(f)
	stats.Source = path
	return events, stats, err
}

// ReadGaps parses gap rows. day_of_week is derived from the date when the
// column is absent or empty. Empty numeric cells are NaN.
func ReadGaps(r io.Reader) ([]models.GapEvent, Stats, error) {
	var (
		stats  Stats
		events []models.GapEvent
	)
	err := eachRow(r, &stats, []string{colDate, colGapSizeBin, colGapDirection}, func(h header, rec []string, line int) {
		raw := h.get(rec, colDate)
		date, err := util.ParseDate(raw, time.UTC)
		if err != nil {
			stats.skip(line, "bad date %q", raw)
			return
		}
		day := h.get(rec, colDayOfWeek)
		if day == "" {
			day = date.Weekday().String()
		}
		events = append(events, models.GapEvent{
			Date:               date,
			SizeBin:            h.get(rec, colGapSizeBin),
			DayOfWeek:          day,
			Direction:          h.get(rec, colGapDirection),
			Filled:             util.ParseBool(h.get(rec, colFilled)),
			ReversalAfterFill:  util.ParseBool(h.get(rec, colReversalAfterFill)),
			TimeToFill:         util.ParseFloat(h.get(rec, colTimeToFill)),
			MoveBeforeReversal: util.ParseFloat(h.get(rec, colMoveBeforeReversal)),
			MaxMoveFirst30:     util.ParseFloat(h.get(rec, colMaxMoveFirst30)),
			TimeOfLow:          h.get(rec, colTimeOfLow),
			TimeOfHigh:         h.get(rec, colTimeOfHigh),
		})
		stats.Rows++
	})
	return events, stats, err
}
