package stats

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/pkg/util"
)

// DefaultMinSamples is the smallest group the indicator script trusts.
const DefaultMinSamples = 5

// Dimension is a categorical field gap events can be grouped by.
type Dimension string

const (
	DimBin       Dimension = "bin"
	DimDay       Dimension = "day"
	DimDirection Dimension = "direction"
)

// AllDimensions groups by bin, weekday and direction.
var AllDimensions = []Dimension{DimBin, DimDay, DimDirection}

// ParseDimensions reads a comma separated list such as "bin,day".
func ParseDimensions(s string) ([]Dimension, error) {
	if strings.TrimSpace(s) == "" {
		return AllDimensions, nil
	}
	var dims []Dimension
	for _, part := range strings.Split(s, ",") {
		d := Dimension(strings.ToLower(strings.TrimSpace(part)))
		switch d {
		case DimBin, DimDay, DimDirection:
		default:
			return nil, fmt.Errorf("unknown dimension %q (want bin, day or direction)", part)
		}
		if slices.Contains(dims, d) {
			return nil, fmt.Errorf("dimension %q listed twice", d)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// GapCell aggregates the gaps of one group.
type GapCell struct {
	Samples  int
	Filled   int
	FillRate float64
	// max move in the gap direction during the first 30 minutes, filled gaps
	MoveBeforeFill Summary
	// same measurement for gaps that never filled
	MaxMoveUnfilled Summary
	// move in the fill direction before reversing, filled gaps that reversed
	MoveAfterFill Summary
}

// NewGapCell aggregates events. Only positive moves enter the move
// summaries; zero means the move was not observed.
func NewGapCell(events []models.GapEvent) GapCell {
	filled := func(e models.GapEvent) bool { return e.Filled && e.MaxMoveFirst30 > 0 }
	unfilled := func(e models.GapEvent) bool { return !e.Filled && e.MaxMoveFirst30 > 0 }
	reversed := func(e models.GapEvent) bool {
		return e.Filled && e.ReversalAfterFill && e.MoveBeforeReversal > 0
	}
	first30 := func(e models.GapEvent) float64 { return e.MaxMoveFirst30 }

	n := Count(events, func(e models.GapEvent) bool { return e.Filled })
	return GapCell{
		Samples:         len(events),
		Filled:          n,
		FillRate:        Rate(n, len(events)),
		MoveBeforeFill:  SummarizeFunc(events, filled, first30),
		MaxMoveUnfilled: SummarizeFunc(events, unfilled, first30),
		MoveAfterFill: SummarizeFunc(events, reversed, func(e models.GapEvent) float64 {
			return e.MoveBeforeReversal
		}),
	}
}

// GapGroup is one row of a grouped gap table. Labels follow the requested
// dimensions.
type GapGroup struct {
	Labels []string
	GapCell
	order []int
}

// GroupGaps aggregates events by dims. Groups smaller than minSamples are
// dropped. Events on weekends or in an unknown bin are ignored. Groups
// come back in bin, weekday, up-before-down order.
func GroupGaps(events []models.GapEvent, dims []Dimension, minSamples int) []GapGroup {
	type bucket struct {
		labels []string
		order  []int
		events []models.GapEvent
	}
	buckets := make(map[string]*bucket)
	for _, e := range events {
		bin := models.BinNumber(e.SizeBin)
		day, weekday := weekdayIndex(e)
		if bin == 0 || day < 0 {
			continue
		}
		labels := make([]string, 0, len(dims))
		order := make([]int, 0, len(dims))
		for _, d := range dims {
			switch d {
			case DimBin:
				labels, order = append(labels, e.SizeBin), append(order, bin)
			case DimDay:
				labels, order = append(labels, weekday.String()), append(order, day)
			case DimDirection:
				labels, order = append(labels, e.Direction), append(order, directionOrder(e.Direction))
			}
		}
		k := strings.Join(labels, "|")
		b, ok := buckets[k]
		if !ok {
			b = &bucket{labels: labels, order: order}
			buckets[k] = b
		}
		b.events = append(b.events, e)
	}

	groups := make([]GapGroup, 0, len(buckets))
	for _, b := range buckets {
		if len(b.events) < minSamples {
			continue
		}
		groups = append(groups, GapGroup{Labels: b.labels, GapCell: NewGapCell(b.events), order: b.order})
	}
	slices.SortFunc(groups, func(a, b GapGroup) int { return slices.Compare(a.order, b.order) })
	return groups
}

// GapKey addresses one cell of the indicator grid: bin 1..5, weekday
// 0 (Monday) .. 4 (Friday), direction +1 or -1.
type GapKey struct {
	Bin       int
	Weekday   int
	Direction int
}

// GapMatrix aggregates by bin, weekday and direction. Cells with fewer
// than minSamples events are left out.
func GapMatrix(events []models.GapEvent, minSamples int) map[GapKey]GapCell {
	matrix := make(map[GapKey]GapCell)
	for _, g := range GroupGaps(events, AllDimensions, minSamples) {
		key := GapKey{
			Bin:       g.order[0],
			Weekday:   g.order[1],
			Direction: models.DirectionSign(g.Labels[2]),
		}
		matrix[key] = g.GapCell
	}
	return matrix
}

// weekdayIndex maps the event's day_of_week to 0 (Monday) .. 4 (Friday),
// -1 for weekends. The date's weekday is used when the column is empty or
// not a day name.
func weekdayIndex(e models.GapEvent) (int, time.Weekday) {
	wd, ok := parseWeekday(e.DayOfWeek)
	if !ok {
		wd = e.Date.Weekday()
	}
	if wd == time.Saturday || wd == time.Sunday {
		return -1, wd
	}
	return int(wd) - 1, wd
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(s)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(s, wd.String()) {
			return wd, true
		}
	}
	return 0, false
}

func directionOrder(direction string) int {
	if direction == models.GapUp {
		return 0
	}
	return 1
}

// GapInsightStats feeds the gap insights endpoint.
type GapInsightStats struct {
	Samples               int
	FillRate              float64
	ReversalAfterFillRate float64
	TimeToFill            Summary
	// minutes after midnight
	TimeOfLow          Summary
	TimeOfHigh         Summary
	MoveBeforeFill     Summary
	MaxMoveUnfilled    Summary
	MoveBeforeReversal Summary
}

// GapInsights summarizes already filtered events. Time to fill and move
// before fill use filled gaps, max move uses unfilled gaps, move before
// reversal uses all of them.
func GapInsights(events []models.GapEvent) GapInsightStats {
	isFilled := func(e models.GapEvent) bool { return e.Filled }
	notFilled := func(e models.GapEvent) bool { return !e.Filled }
	reversal := func(e models.GapEvent) float64 { return e.MoveBeforeReversal }

	return GapInsightStats{
		Samples:               len(events),
		FillRate:              Rate(Count(events, isFilled), len(events)),
		ReversalAfterFillRate: Rate(Count(events, func(e models.GapEvent) bool { return e.ReversalAfterFill }), len(events)),
		TimeToFill:            SummarizeFunc(events, isFilled, func(e models.GapEvent) float64 { return e.TimeToFill }),
		TimeOfLow:             SummarizeFunc(events, nil, func(e models.GapEvent) float64 { return clock(e.TimeOfLow) }),
		TimeOfHigh:            SummarizeFunc(events, nil, func(e models.GapEvent) float64 { return clock(e.TimeOfHigh) }),
		MoveBeforeFill:        SummarizeFunc(events, isFilled, reversal),
		MaxMoveUnfilled:       SummarizeFunc(events, notFilled, func(e models.GapEvent) float64 { return e.MaxMoveFirst30 }),
		MoveBeforeReversal:    SummarizeFunc(events, nil, reversal),
	}
}

func clock(s string) float64 {
	m, ok := util.ClockMinutes(s)
	if !ok {
		return math.NaN()
	}
	return float64(m)
}
