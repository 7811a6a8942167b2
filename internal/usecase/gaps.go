package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	domsvc "github.com/doby176/light/internal/domain/service"
	"github.com/doby176/light/internal/services/stats"
	"github.com/doby176/light/pkg/logger"
	"github.com/doby176/light/pkg/util"
)

const (
	endpointGaps        = "/api/gaps"
	endpointGapInsights = "/api/gap_insights"

	noPriceDescription = "Price calculations only available when filters match today's gap"
)

// DatesResult is a date list, with a message when nothing matched.
type DatesResult struct {
	Dates   []string `json:"dates"`
	Message string   `json:"message,omitempty"`
}

// MarketCalendar tells which weekday the current market date falls on.
type MarketCalendar interface {
	MarketWeekday(now time.Time) time.Weekday
}

type RateInsight struct {
	Average     float64 `json:"average"`
	Description string  `json:"description"`
}

type StatInsight struct {
	Median      float64 `json:"median"`
	Average     float64 `json:"average"`
	Description string  `json:"description"`
}

type ClockInsight struct {
	Median      string `json:"median"`
	Average     string `json:"average"`
	Description string `json:"description"`
}

// MoveInsight is a percentage move plus, when the filters describe today's
// gap, the price it lands on.
type MoveInsight struct {
	Median           float64  `json:"median"`
	Average          float64  `json:"average"`
	Description      string   `json:"description"`
	MedianPrice      *float64 `json:"median_price"`
	AveragePrice     *float64 `json:"average_price"`
	PriceDescription string   `json:"price_description"`
	ZoneTitle        string   `json:"zone_title"`
}

type MarketData struct {
	CurrentOpen       *float64 `json:"current_open"`
	CurrentPrevClose  *float64 `json:"current_prev_close"`
	GapDirection      string   `json:"gap_direction"`
	FiltersMatchToday bool     `json:"filters_match_today"`
	TodayGapDirection *string  `json:"today_gap_direction"`
	TodayGapSizeBin   *string  `json:"today_gap_size_bin"`
	TodayDay          string   `json:"today_day"`
}

type GapInsights struct {
	GapFillRate              RateInsight  `json:"gap_fill_rate"`
	MedianMoveBeforeFill     MoveInsight  `json:"median_move_before_fill"`
	MedianMaxMoveUnfilled    MoveInsight  `json:"median_max_move_unfilled"`
	MedianTimeToFill         StatInsight  `json:"median_time_to_fill"`
	MedianTimeOfLow          ClockInsight `json:"median_time_of_low"`
	MedianTimeOfHigh         ClockInsight `json:"median_time_of_high"`
	ReversalAfterFillRate    RateInsight  `json:"reversal_after_fill_rate"`
	MedianMoveBeforeReversal MoveInsight  `json:"median_move_before_reversal"`
	MarketData               MarketData   `json:"market_data"`
}

// GapInsightsResult carries Insights, or an empty object and a message when
// no gap matched.
type GapInsightsResult struct {
	Insights interface{} `json:"insights"`
	Message  string      `json:"message,omitempty"`
}

// GapsUseCase answers gap date lookups and gap insights.
type GapsUseCase struct {
	events domrepo.EventSource
	quotes domsvc.QuoteProvider
	cal    MarketCalendar
	now    func() time.Time
	sample SampleRules
	policy *ActionPolicy
	log    *logger.Logger
}

func NewGapsUseCase(events domrepo.EventSource, quotes domsvc.QuoteProvider, cal MarketCalendar, sample SampleRules, policy *ActionPolicy, l *logger.Logger) *GapsUseCase {
	if l == nil {
		l = logger.Nop()
	}
	return &GapsUseCase{events: events, quotes: quotes, cal: cal, now: time.Now, sample: sample, policy: policy, log: l}
}

func (uc *GapsUseCase) matching(ctx context.Context, req models.GapRequest) ([]models.GapEvent, error) {
	events, err := uc.events.Gaps(ctx)
	if err != nil {
		return nil, sourceError("gap", err)
	}
	out := make([]models.GapEvent, 0, len(events))
	for _, e := range events {
		if e.Matches(req.GapSize, req.Day, req.GapDirection) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Dates lists the days whose gap matches size bin, weekday and direction.
func (uc *GapsUseCase) Dates(ctx context.Context, c Caller, req models.GapRequest) (*DatesResult, error) {
	if err := uc.policy.CountAction(ctx, c, req.ActionParams, ActionFindGapDates, endpointGaps); err != nil {
		return nil, err
	}
	events, err := uc.matching(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return &DatesResult{Dates: []string{}, Message: "No gaps found for the selected criteria"}, nil
	}
	dates := make([]string, 0, len(events))
	for _, e := range events {
		dates = append(dates, e.Date.Format(util.DateLayout))
	}
	if c.Sample {
		dates = uc.sample.FilterDates(dates)
	}
	slices.Sort(dates)
	return &DatesResult{Dates: dates}, nil
}

// Insights summarizes the matching gaps. Price levels are filled in only
// when the filters describe today's gap.
func (uc *GapsUseCase) Insights(ctx context.Context, c Caller, req models.GapRequest) (*GapInsightsResult, error) {
	if err := uc.policy.CountGapInsights(ctx, c, req.ActionParams, endpointGapInsights); err != nil {
		return nil, err
	}

	var q *models.Quote
	if uc.quotes != nil {
		got, err := uc.quotes.Get(ctx)
		if err != nil {
			uc.log.Warn("quote unavailable for gap insights", logger.Error(err))
		} else {
			q = &got
		}
	}

	events, err := uc.matching(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return &GapInsightsResult{Insights: map[string]interface{}{}, Message: "No data found for the selected criteria"}, nil
	}
	return &GapInsightsResult{Insights: uc.buildInsights(events, req, q)}, nil
}

func (uc *GapsUseCase) buildInsights(events []models.GapEvent, req models.GapRequest, q *models.Quote) GapInsights {
	s := stats.GapInsights(events)
	md := uc.marketData(req, q)

	var open, prevClose float64
	if md.CurrentOpen != nil {
		open = *md.CurrentOpen
	}
	if md.CurrentPrevClose != nil {
		prevClose = *md.CurrentPrevClose
	}
	reversalDir := models.GapUp
	if req.GapDirection == models.GapUp {
		reversalDir = models.GapDown
	}
	fromOpen := fmt.Sprintf("Price level from today's open ($%s)", priceString(open))
	fromClose := fmt.Sprintf("Price level from yesterday's close ($%s)", priceString(prevClose))

	shortZone, longZone := "SHORT ZONE", "LONG ZONE"
	fillZone, reversalZone := longZone, shortZone
	if req.GapDirection == models.GapUp {
		fillZone, reversalZone = shortZone, longZone
	}

	return GapInsights{
		GapFillRate: RateInsight{Average: util.Round(s.FillRate, 2), Description: "Percentage of gaps that close"},
		MedianMoveBeforeFill: uc.move(s.MoveBeforeFill, "Percentage move before gap closes",
			open, req.GapDirection, md.FiltersMatchToday, fromOpen, fillZone),
		MedianMaxMoveUnfilled: uc.move(s.MaxMoveUnfilled, "% move in gap direction when price does not close the gap",
			open, req.GapDirection, md.FiltersMatchToday, fromOpen, "STOP OUT Zone"),
		MedianTimeToFill: StatInsight{
			Median:      util.Round(s.TimeToFill.Median, 2),
			Average:     util.Round(s.TimeToFill.Mean, 2),
			Description: "Median time in minutes to fill gap",
		},
		MedianTimeOfLow:  clockInsight(s.TimeOfLow, "Median time of the day's low"),
		MedianTimeOfHigh: clockInsight(s.TimeOfHigh, "Median time of the day's high"),
		ReversalAfterFillRate: RateInsight{
			Average:     util.Round(s.ReversalAfterFillRate, 2),
			Description: "% of time price reverses after gap is filled",
		},
		MedianMoveBeforeReversal: uc.move(s.MoveBeforeReversal, "Median move in gap fill direction before reversal",
			prevClose, reversalDir, md.FiltersMatchToday, fromClose, reversalZone),
		MarketData: md,
	}
}

func (uc *GapsUseCase) move(sum stats.Summary, desc string, base float64, direction string, match bool, priceDesc, zone string) MoveInsight {
	m := MoveInsight{
		Median:           util.Round(sum.Median, 2),
		Average:          util.Round(sum.Mean, 2),
		Description:      desc,
		PriceDescription: noPriceDescription,
		ZoneTitle:        zone,
	}
	if !match || base == 0 {
		return m
	}
	m.PriceDescription = priceDesc
	m.MedianPrice = priceLevel(sum.Median, base, direction)
	m.AveragePrice = priceLevel(sum.Mean, base, direction)
	return m
}

// priceLevel moves base by pct percent, up or down.
func priceLevel(pct, base float64, direction string) *float64 {
	delta := pct / 100 * base
	v := base - delta
	if direction == models.GapUp {
		v = base + delta
	}
	if v == 0 {
		return nil
	}
	v = util.Round(v, 2)
	return &v
}

func (uc *GapsUseCase) marketData(req models.GapRequest, q *models.Quote) MarketData {
	md := MarketData{
		GapDirection: req.GapDirection,
		TodayDay:     uc.cal.MarketWeekday(uc.now()).String(),
	}
	if q == nil {
		return md
	}
	open, okOpen := q.OpenPrice()
	prev, okPrev := q.PrevClosePrice()
	if okOpen && okPrev {
		md.CurrentOpen = &open
		md.CurrentPrevClose = &prev
	}
	if q.GapValue != nil {
		dir := models.GapDown
		if *q.GapValue > 0 {
			dir = models.GapUp
		}
		md.TodayGapDirection = &dir
		if bin, ok := models.BinForGap(*q.GapValue); ok {
			md.TodayGapSizeBin = &bin
		}
	}
	md.FiltersMatchToday = md.TodayGapDirection != nil && md.TodayGapSizeBin != nil &&
		req.GapDirection == *md.TodayGapDirection &&
		req.GapSize == *md.TodayGapSizeBin &&
		req.Day == md.TodayDay
	return md
}

func clockInsight(s stats.Summary, desc string) ClockInsight {
	ci := ClockInsight{Median: notAvailable, Average: notAvailable, Description: desc}
	if !s.Empty() {
		ci.Median = util.FormatClock(s.Median)
		ci.Average = util.FormatClock(s.Mean)
	}
	return ci
}

const notAvailable = "N/A"

// priceString prints a price the short way, keeping one decimal for whole numbers.
func priceString(v float64) string {
	s := fmt.Sprint(v)
	if v == float64(int64(v)) {
		s += ".0"
	}
	return s
}
