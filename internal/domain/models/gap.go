package models

import (
	"math"
	"time"
)

const (
	GapUp   = "up"
	GapDown = "down"
)

// GapBins are the gap-size buckets in ascending order. The position in the
// slice plus one is the bin number used by the indicator script.
var GapBins = []string{"0.15-0.35%", "0.35-0.5%", "0.5-1%", "1-1.5%", "1.5%+"}

// GapEvent is one trading day from the gap-analysis CSV. Numeric fields are
// NaN when the cell was empty.
type GapEvent struct {
	Date              time.Time
	SizeBin           string
	DayOfWeek         string
	Direction         string
	Filled            bool
	ReversalAfterFill bool
	// minutes from the open until price traded back through the prior close
	TimeToFill float64
	// move_before_reversal_fill_direction_pct
	MoveBeforeReversal float64
	// max_move_gap_direction_first_30min_pct
	MaxMoveFirst30 float64
	TimeOfLow      string
	TimeOfHigh     string
}

// Matches reports whether the event falls in the given bin, day and direction.
func (g GapEvent) Matches(bin, day, direction string) bool {
	return g.SizeBin == bin && g.DayOfWeek == day && g.Direction == direction
}

// BinNumber returns the 1-based bin index, or 0 for an unknown bin.
func BinNumber(bin string) int {
	for i, b := range GapBins {
		if b == bin {
			return i + 1
		}
	}
	return 0
}

// BinForGap maps an absolute gap percentage to its bin. Gaps below 0.15%
// have no bin.
func BinForGap(gapPct float64) (string, bool) {
	g := math.Abs(gapPct)
	switch {
	case math.IsNaN(g) || g < 0.15:
		return "", false
	case g < 0.35:
		return GapBins[0], true
	case g < 0.5:
		return GapBins[1], true
	case g < 1.0:
		return GapBins[2], true
	case g < 1.5:
		return GapBins[3], true
	default:
		return GapBins[4], true
	}
}

// DirectionSign is +1 for up gaps and -1 otherwise.
func DirectionSign(direction string) int {
	if direction == GapUp {
		return 1
	}
	return -1
}
