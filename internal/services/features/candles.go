// Package features derives chart series from stored one-minute candles.
package features

import (
	"time"

	"github.com/doby176/light/internal/domain/models"
)

// Regular session, inclusive on both ends, in minutes after midnight.
const (
	SessionOpen  = 9*60 + 30
	SessionClose = 16 * 60
)

func minuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

// RestrictHours keeps candles stamped between 09:30 and 16:00 inclusive.
func RestrictHours(candles []models.Candle) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		m := minuteOfDay(c.Timestamp)
		if m < SessionOpen || m > SessionClose {
			continue
		}
		// 16:00:30 is past the close
		if m == SessionClose && (c.Timestamp.Second() > 0 || c.Timestamp.Nanosecond() > 0) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FloorToBin rounds t down to a multiple of tf counted from midnight in
// t's own location.
func FloorToBin(t time.Time, tf time.Duration) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if tf <= 0 {
		return t
	}
	return midnight.Add(t.Sub(midnight) / tf * tf)
}

// Resample folds time-ordered candles into tf bars: first open, highest
// high, lowest low, last close, summed volume. Bins without candles are
// not emitted. A timeframe of one minute or less returns the input.
func Resample(candles []models.Candle, tf time.Duration) []models.Candle {
	if tf <= time.Minute || len(candles) == 0 {
		return candles
	}
	out := make([]models.Candle, 0, len(candles)/int(tf/time.Minute)+1)
	var cur models.Candle
	for i, c := range candles {
		bin := FloorToBin(c.Timestamp, tf)
		if i == 0 || !bin.Equal(cur.Timestamp) {
			if i > 0 {
				out = append(out, cur)
			}
			cur = c
			cur.Timestamp = bin
			continue
		}
		cur.High = max(cur.High, c.High)
		cur.Low = min(cur.Low, c.Low)
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	return append(out, cur)
}
