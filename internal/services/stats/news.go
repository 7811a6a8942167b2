package stats

import (
	"math"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/pkg/util"
)

// premarketThreshold is the smallest 8:30 reaction, in percent, counted as a move.
const premarketThreshold = 0.1

// MoveBlock summarizes one move column with the directions recorded next to it.
type MoveBlock struct {
	Median        float64 `json:"median"`
	Average       float64 `json:"average"`
	Description   string  `json:"description"`
	DirectionBias string  `json:"direction_bias"`
	UpCount       int     `json:"up_count"`
	DownCount     int     `json:"down_count"`
	TotalCount    int     `json:"total_count"`
}

type TouchBlock struct {
	Median              *float64 `json:"median"`
	Average             *float64 `json:"average"`
	Description         string   `json:"description"`
	TouchBias           string   `json:"touch_bias"`
	HighCount           int      `json:"high_count"`
	LowCount            int      `json:"low_count"`
	TotalCount          int      `json:"total_count"`
	OppositeMedian      *float64 `json:"opposite_median"`
	OppositeAverage     *float64 `json:"opposite_average"`
	OppositeDescription string   `json:"opposite_description"`
}

type AfterTouchBlock struct {
	TrendMedian         *float64 `json:"trend_median"`
	TrendAverage        *float64 `json:"trend_average"`
	TrendDescription    string   `json:"trend_description"`
	ReversalMedian      *float64 `json:"reversal_median"`
	ReversalAverage     *float64 `json:"reversal_average"`
	ReversalDescription string   `json:"reversal_description"`
	TrendCount          int      `json:"trend_count"`
	ReversalCount       int      `json:"reversal_count"`
}

type ReturnBlock struct {
	Average       float64 `json:"average"`
	Description   string  `json:"description"`
	ReturnCount   int     `json:"return_count"`
	NoReturnCount int     `json:"no_return_count"`
	TotalCount    int     `json:"total_count"`
}

// NewsInsights holds whichever blocks had data.
type NewsInsights struct {
	PremarketReaction     *MoveBlock       `json:"premarket_reaction,omitempty"`
	ExtremeMoves          *MoveBlock       `json:"extreme_moves_930_1000,omitempty"`
	RegularMoves          *MoveBlock       `json:"regular_moves_930_1030,omitempty"`
	PremarketLevelTouch   *TouchBlock      `json:"premarket_level_touch,omitempty"`
	MovesAfterTouch60Min  *AfterTouchBlock `json:"moves_after_touch_60min,omitempty"`
	ReturnToOppositeLevel *ReturnBlock     `json:"return_to_opposite_level,omitempty"`
}

// NewsEventInsights computes the intraday reaction blocks for already
// filtered rows. with60Min enables the 60-minute block; the caller decides
// from the file header.
func NewsEventInsights(rows []models.EventMetricsRow, with60Min bool) NewsInsights {
	var out NewsInsights

	// premarket: only reactions above the threshold, directions from the same rows
	var pmMoves []float64
	var pmDirs []string
	for _, r := range rows {
		if v := r.Float(models.ColPremarketMove); !math.IsNaN(v) && v > premarketThreshold {
			pmMoves = append(pmMoves, v)
			pmDirs = append(pmDirs, r.Str(models.ColPremarketDirection))
		}
	}
	if len(pmMoves) > 0 {
		out.PremarketReaction = moveBlock(pmMoves, pmDirs,
			"8:30-8:31 PRE MARKET reaction to data release move % (moves > 0.1%)")
	}

	if moves := column(rows, models.ColExtremeMove); len(moves) > 0 {
		out.ExtremeMoves = moveBlock(moves, labels(rows, models.ColExtremeDirection),
			"Move between 9:30 - 10:00 to highest high or lowest low")
	}
	if moves := column(rows, models.ColRegularMove); len(moves) > 0 {
		out.RegularMoves = moveBlock(moves, labels(rows, models.ColRegularDirection),
			"Move between 9:30 - 10:30 close, no extreme moves")
	}

	if touches := labels(rows, models.ColTouchLevel); len(touches) > 0 {
		same := column(rows, models.ColSameDirectionMove)
		opposite := column(rows, models.ColOppositeMove)
		high, low := countOf(touches, "High"), countOf(touches, "Low")
		bias := "Low"
		if high > low {
			bias = "High"
		}
		out.PremarketLevelTouch = &TouchBlock{
			Median:              medianPtr(same),
			Average:             meanPtr(same),
			Description:         "First touch of pre market low or high - move in direction of touch",
			TouchBias:           bias,
			HighCount:           high,
			LowCount:            low,
			TotalCount:          len(touches),
			OppositeMedian:      medianPtr(opposite),
			OppositeAverage:     meanPtr(opposite),
			OppositeDescription: "Move opposite to touch direction (reversal)",
		}
	}

	if with60Min {
		trend := column(rows, models.ColSameDirection60Min)
		reversal := column(rows, models.ColOppositeMove60Min)
		if len(trend) > 0 || len(reversal) > 0 {
			out.MovesAfterTouch60Min = &AfterTouchBlock{
				TrendMedian:         medianPtr(trend),
				TrendAverage:        meanPtr(trend),
				TrendDescription:    "60-minute move in same direction as gap (trend continuation)",
				ReversalMedian:      medianPtr(reversal),
				ReversalAverage:     meanPtr(reversal),
				ReversalDescription: "60-minute move opposite to gap direction (reversal)",
				TrendCount:          len(trend),
				ReversalCount:       len(reversal),
			}
		}
	}

	levels := labels(rows, models.ColTouchedLevel)
	returned := labels(rows, models.ColReturnedToOpposite)
	if len(levels) > 0 && len(returned) > 0 {
		yes := countOf(returned, "Yes")
		out.ReturnToOppositeLevel = &ReturnBlock{
			Average:       util.Round(Rate(yes, len(returned)), 1),
			Description:   "% of time market reversal after hitting pre market high/low",
			ReturnCount:   yes,
			NoReturnCount: countOf(returned, "No"),
			TotalCount:    len(returned),
		}
	}
	return out
}

func moveBlock(moves []float64, dirs []string, description string) *MoveBlock {
	up, down := countOf(dirs, "Up"), countOf(dirs, "Down")
	bias := "Down"
	if up > down {
		bias = "Up"
	}
	return &MoveBlock{
		Median:        util.Round(Median(moves), 2),
		Average:       util.Round(Mean(moves), 2),
		Description:   description,
		DirectionBias: bias,
		UpCount:       up,
		DownCount:     down,
		TotalCount:    len(dirs),
	}
}

// column returns the parseable values of col.
func column(rows []models.EventMetricsRow, col string) []float64 {
	var out []float64
	for _, r := range rows {
		if v := r.Float(col); !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// labels returns the non-empty cells of col.
func labels(rows []models.EventMetricsRow, col string) []string {
	var out []string
	for _, r := range rows {
		if s := r.Str(col); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func countOf(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}

func medianPtr(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := util.Round(Median(values), 2)
	return &v
}

func meanPtr(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := util.Round(Mean(values), 2)
	return &v
}
