package usecase

import (
	"fmt"
	"slices"
	"strings"
)

// SampleRules narrow what the public sample page can see.
type SampleRules struct {
	Tickers    []string
	Years      []int
	EventTypes []string
	GapBins    []string
	MaxDates   int
}

// FilterDates keeps dates in the sample years, newest first, at most
// MaxDates of them.
func (r SampleRules) FilterDates(dates []string) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if r.inYears(d) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b string) int { return strings.Compare(b, a) })
	if r.MaxDates > 0 && len(out) > r.MaxDates {
		out = out[:r.MaxDates]
	}
	return out
}

func (r SampleRules) inYears(date string) bool {
	for _, y := range r.Years {
		if strings.HasPrefix(date, fmt.Sprintf("%d-", y)) {
			return true
		}
	}
	return false
}

func (r SampleRules) AllowsEventType(t string) bool { return slices.Contains(r.EventTypes, t) }
