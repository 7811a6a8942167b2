package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/internal/service/ratelimit"
	"github.com/doby176/light/pkg/cache"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/util"
)

var testTickers = []string{"NVDA", "QQQ"}

var testSample = SampleRules{
	Tickers:    []string{"QQQ", "NVDA"},
	Years:      []int{2023, 2024},
	EventTypes: []string{"CPI", "FOMC"},
	GapBins:    models.GapBins,
	MaxDates:   20,
}

type fakeCandles struct {
	dates   map[string][]string
	candles map[string][]models.Candle
}

func (f *fakeCandles) Tickers(context.Context) ([]string, error) { return testTickers, nil }

func (f *fakeCandles) Dates(_ context.Context, ticker string) ([]string, error) {
	d, ok := f.dates[ticker]
	if !ok {
		return nil, domrepo.ErrNoDatabase
	}
	return d, nil
}

func (f *fakeCandles) Candles(_ context.Context, ticker string, day time.Time) ([]models.Candle, error) {
	all, ok := f.candles[ticker]
	if !ok {
		return nil, domrepo.ErrNoDatabase
	}
	var out []models.Candle
	for _, c := range all {
		if c.Timestamp.Format(util.DateLayout) == day.Format(util.DateLayout) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCandles) Health(context.Context) error { return nil }
func (f *fakeCandles) Close() error                 { return nil }

type fakeEvents struct {
	gaps     []models.GapEvent
	news     []models.NewsEvent
	economic []models.EconomicEvent
	earnings []models.EarningsEvent
	metrics  models.EventMetricsTable
	err      error
}

func (f *fakeEvents) Gaps(context.Context) ([]models.GapEvent, error) { return f.gaps, f.err }
func (f *fakeEvents) NewsEvents(context.Context) ([]models.NewsEvent, error) {
	return f.news, f.err
}
func (f *fakeEvents) EconomicEvents(context.Context) ([]models.EconomicEvent, error) {
	return f.economic, f.err
}
func (f *fakeEvents) Earnings(context.Context) ([]models.EarningsEvent, error) {
	return f.earnings, f.err
}
func (f *fakeEvents) EventMetrics(context.Context) (models.EventMetricsTable, error) {
	return f.metrics, f.err
}

type fakeQuotes struct {
	q   models.Quote
	err error
}

func (f fakeQuotes) Get(context.Context) (models.Quote, error) { return f.q, f.err }

type fixedCalendar time.Weekday

func (c fixedCalendar) MarketWeekday(time.Time) time.Weekday { return time.Weekday(c) }

type capturePublisher struct{ events []models.ActionEvent }

func (p *capturePublisher) PublishAction(_ context.Context, ev models.ActionEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func newPolicy(t *testing.T) (*ActionPolicy, *capturePublisher) {
	t.Helper()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	window := 12 * time.Hour
	pub := &capturePublisher{}
	return NewActionPolicy(Limiters{
		Main:          ratelimit.NewActionCounter(mc, models.CounterMain, 10, window),
		GapInsights:   ratelimit.NewActionCounter(mc, models.CounterGapInsights, 2, window),
		SampleActions: ratelimit.NewActionCounter(mc, models.CounterSampleActions, 3, window),
		SampleCalls:   ratelimit.NewActionCounter(mc, models.CounterSampleCalls, 3, window),
	}, pub, nil), pub
}

func requireStatus(t *testing.T, err error, status int) *httpx.AppError {
	t.Helper()
	var appErr *httpx.AppError
	require.True(t, errors.As(err, &appErr), "want AppError, got %v", err)
	assert.Equal(t, status, appErr.Status)
	return appErr
}

func bars(day string, from string, n int) []models.Candle {
	start, _ := util.ParseTimestamp(day+" "+from, util.MarketLocation())
	out := make([]models.Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = models.Candle{Ticker: "QQQ", Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 10}
	}
	return out
}

func newMarket(t *testing.T) (*MarketUseCase, *capturePublisher) {
	policy, pub := newPolicy(t)
	store := &fakeCandles{
		dates: map[string][]string{
			"QQQ":  {"2022-12-30", "2023-01-03", "2024-05-01", "2025-01-02"},
			"NVDA": {},
		},
		candles: map[string][]models.Candle{"QQQ": bars("2024-05-01", "09:25:00", 20)},
	}
	return NewMarketUseCase(store, testTickers, util.MarketLocation(), testSample, policy, nil), pub
}

func TestChartValidation(t *testing.T) {
	uc, _ := newMarket(t)
	ctx := context.Background()
	c := Caller{SessionID: "s1"}

	cases := []struct {
		req    models.ChartRequest
		status int
		msg    string
	}{
		{models.ChartRequest{Date: "2024-05-01", Timeframe: "1"}, http.StatusBadRequest, "Missing ticker, date, or timeframe"},
		{models.ChartRequest{Ticker: "GME", Date: "2024-05-01", Timeframe: "1"}, http.StatusBadRequest, "Invalid ticker"},
		{models.ChartRequest{Ticker: "QQQ", Date: "2024-05-01", Timeframe: "7"}, http.StatusBadRequest, "Invalid timeframe. Must be 1, 2, 3, 5, 10, 15, 30, 60 or 240 minutes."},
		{models.ChartRequest{Ticker: "QQQ", Date: "2024-05-01", Timeframe: "five"}, http.StatusBadRequest, "Invalid timeframe format"},
		{models.ChartRequest{Ticker: "QQQ", Date: "May first", Timeframe: "1"}, http.StatusBadRequest, "Invalid date format"},
		{models.ChartRequest{Ticker: "QQQ", Date: "2024-05-02", Timeframe: "1"}, http.StatusNotFound, "No data available for the selected date. Try another date."},
	}
	for _, tc := range cases {
		_, err := uc.Chart(ctx, c, tc.req)
		appErr := requireStatus(t, err, tc.status)
		assert.Equal(t, tc.msg, appErr.Message)
	}
}

func TestChartResampleRestrictAndReplay(t *testing.T) {
	uc, _ := newMarket(t)
	ctx := context.Background()
	c := Caller{SessionID: "s1"}
	base := models.ChartRequest{Ticker: "QQQ", Date: "2024-05-01", Timeframe: "5"}

	cd, err := uc.Chart(ctx, c, base)
	require.NoError(t, err)
	// 09:25 .. 09:44 in 5 minute bins
	assert.Equal(t, 4, cd.Count)
	assert.Equal(t, "2024-05-01 09:25:00", cd.Timestamp[0])
	assert.Equal(t, 50.0, cd.Volume[0])

	restricted := base
	restricted.RestrictHours = true
	cd, err = uc.Chart(ctx, c, restricted)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 09:30:00", cd.Timestamp[0])
	assert.Equal(t, 3, cd.Count)

	replay := restricted
	replay.ReplayMode = true
	cd, err = uc.Chart(ctx, c, replay)
	require.NoError(t, err)
	assert.Equal(t, 15, cd.Count)
	assert.Equal(t, "2024-05-01", cd.Date)
}

func TestChartCountsMainActions(t *testing.T) {
	uc, pub := newMarket(t)
	ctx := context.Background()
	c := Caller{SessionID: "s1"}
	req := models.ChartRequest{Ticker: "QQQ", Date: "2024-05-01", Timeframe: "1"}
	req.MainAction = ActionLoadChart

	for i := 0; i < 10; i++ {
		_, err := uc.Chart(ctx, c, req)
		require.NoError(t, err, "call %d", i+1)
	}
	_, err := uc.Chart(ctx, c, req)
	appErr := requireStatus(t, err, http.StatusTooManyRequests)
	assert.Equal(t, msgMainLimit, appErr.Message)
	assert.Equal(t, true, appErr.Extra["limit_reached"])

	// requests without the action are free
	req.MainAction = ""
	_, err = uc.Chart(ctx, c, req)
	require.NoError(t, err)

	require.Len(t, pub.events, 11)
	assert.False(t, pub.events[10].Allowed)
	assert.Equal(t, models.CounterMain, pub.events[10].Counter)
}

func TestChartSampleActions(t *testing.T) {
	uc, _ := newMarket(t)
	ctx := context.Background()
	c := Caller{SessionID: "s2", Sample: true}
	req := models.ChartRequest{Ticker: "QQQ", Date: "2024-05-01", Timeframe: "1"}
	req.SampleAction = ActionLoadChart
	// main_action is ignored on the sample page
	req.MainAction = ActionLoadChart

	for i := 0; i < 3; i++ {
		_, err := uc.Chart(ctx, c, req)
		require.NoError(t, err)
	}
	_, err := uc.Chart(ctx, c, req)
	appErr := requireStatus(t, err, http.StatusTooManyRequests)
	assert.Equal(t, msgSampleLimit, appErr.Message)
}

func TestValidDates(t *testing.T) {
	uc, _ := newMarket(t)
	ctx := context.Background()

	dates, err := uc.ValidDates(ctx, Caller{}, models.ValidDatesRequest{Ticker: "QQQ"})
	require.NoError(t, err)
	assert.Len(t, dates, 4)

	dates, err = uc.ValidDates(ctx, Caller{Sample: true}, models.ValidDatesRequest{Ticker: "QQQ"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01", "2023-01-03"}, dates)

	_, err = uc.ValidDates(ctx, Caller{}, models.ValidDatesRequest{Ticker: "GME"})
	requireStatus(t, err, http.StatusBadRequest)
	_, err = uc.ValidDates(ctx, Caller{}, models.ValidDatesRequest{Ticker: "NVDA"})
	appErr := requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "No dates available for NVDA", appErr.Message)

	tickers, err := uc.Tickers(ctx, Caller{Sample: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"QQQ", "NVDA"}, tickers)
}

func TestSampleFilterDates(t *testing.T) {
	var dates []string
	for i := 1; i <= 25; i++ {
		dates = append(dates, fmt.Sprintf("2024-01-%02d", i))
	}
	dates = append(dates, "2022-06-01", "2025-06-01")
	got := testSample.FilterDates(dates)
	require.Len(t, got, 20)
	assert.Equal(t, "2024-01-25", got[0])
	assert.Equal(t, "2024-01-06", got[19])
	assert.True(t, IsSampleRequest("https://example.com/sample?x=1", false))
	assert.True(t, IsSampleRequest("", true))
	assert.False(t, IsSampleRequest("https://example.com/dashboard", false))
}

func monday(week int) time.Time {
	return time.Date(2024, 1, 1+7*week, 0, 0, 0, 0, time.UTC)
}

func insightGaps() []models.GapEvent {
	nan := math.NaN()
	return []models.GapEvent{
		{Date: monday(0), SizeBin: "0.5-1%", DayOfWeek: "Monday", Direction: "up", Filled: true, ReversalAfterFill: true,
			TimeToFill: 10, MoveBeforeReversal: 0.2, MaxMoveFirst30: 0.1, TimeOfLow: "09:40", TimeOfHigh: "15:00"},
		{Date: monday(1), SizeBin: "0.5-1%", DayOfWeek: "Monday", Direction: "up", Filled: true,
			TimeToFill: 20, MoveBeforeReversal: 0.4, MaxMoveFirst30: 0.2, TimeOfLow: "09:50", TimeOfHigh: "15:30"},
		{Date: monday(2), SizeBin: "0.5-1%", DayOfWeek: "Monday", Direction: "up",
			TimeToFill: nan, MoveBeforeReversal: nan, MaxMoveFirst30: 0.3, TimeOfLow: "10:00", TimeOfHigh: "bad"},
		{Date: monday(3), SizeBin: "0.5-1%", DayOfWeek: "Monday", Direction: "up",
			TimeToFill: nan, MoveBeforeReversal: nan, MaxMoveFirst30: 0.5, TimeOfLow: "10:10", TimeOfHigh: "16:00"},
		{Date: monday(4), SizeBin: "1-1.5%", DayOfWeek: "Monday", Direction: "up", Filled: true},
	}
}

func newGaps(t *testing.T, q fakeQuotes) *GapsUseCase {
	policy, _ := newPolicy(t)
	return NewGapsUseCase(&fakeEvents{gaps: insightGaps()}, q, fixedCalendar(time.Monday), testSample, policy, nil)
}

func TestGapDates(t *testing.T) {
	uc := newGaps(t, fakeQuotes{})
	ctx := context.Background()

	res, err := uc.Dates(ctx, Caller{SessionID: "s"}, models.GapRequest{GapSize: "0.5-1%", Day: "Monday", GapDirection: "up"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"}, res.Dates)

	res, err = uc.Dates(ctx, Caller{SessionID: "s"}, models.GapRequest{GapSize: "0.5-1%", Day: "Friday", GapDirection: "up"})
	require.NoError(t, err)
	assert.Empty(t, res.Dates)
	assert.Equal(t, "No gaps found for the selected criteria", res.Message)
}

func TestGapInsightsWithTodayMatch(t *testing.T) {
	gap := 0.75
	uc := newGaps(t, fakeQuotes{q: models.Quote{Open: "100.75", PrevClose: "100.00", GapPct: "0.75%", GapValue: &gap}})
	res, err := uc.Insights(context.Background(), Caller{SessionID: "s"}, models.GapRequest{GapSize: "0.5-1%", Day: "Monday", GapDirection: "up"})
	require.NoError(t, err)
	in, ok := res.Insights.(GapInsights)
	require.True(t, ok)

	assert.Equal(t, 50.0, in.GapFillRate.Average)
	assert.Equal(t, 25.0, in.ReversalAfterFillRate.Average)
	assert.Equal(t, 15.0, in.MedianTimeToFill.Median)
	assert.InDelta(t, 0.3, in.MedianMoveBeforeFill.Median, 1e-9)
	assert.InDelta(t, 0.4, in.MedianMaxMoveUnfilled.Median, 1e-9)
	assert.Equal(t, "09:55", in.MedianTimeOfLow.Median)
	assert.Equal(t, "15:30", in.MedianTimeOfHigh.Median)

	assert.True(t, in.MarketData.FiltersMatchToday)
	assert.Equal(t, "Monday", in.MarketData.TodayDay)
	require.NotNil(t, in.MedianMoveBeforeFill.MedianPrice)
	assert.InDelta(t, 101.05, *in.MedianMoveBeforeFill.MedianPrice, 1e-9)
	assert.Equal(t, "SHORT ZONE", in.MedianMoveBeforeFill.ZoneTitle)
	assert.Equal(t, "Price level from today's open ($100.75)", in.MedianMoveBeforeFill.PriceDescription)
	require.NotNil(t, in.MedianMoveBeforeReversal.MedianPrice)
	assert.InDelta(t, 99.7, *in.MedianMoveBeforeReversal.MedianPrice, 1e-9)
	assert.Equal(t, "LONG ZONE", in.MedianMoveBeforeReversal.ZoneTitle)
	assert.Equal(t, "Price level from yesterday's close ($100.0)", in.MedianMoveBeforeReversal.PriceDescription)
}

func TestGapInsightsWithoutMatch(t *testing.T) {
	uc := newGaps(t, fakeQuotes{err: errors.New("scrape failed")})
	res, err := uc.Insights(context.Background(), Caller{SessionID: "s"}, models.GapRequest{GapSize: "0.5-1%", Day: "Monday", GapDirection: "up"})
	require.NoError(t, err)
	in := res.Insights.(GapInsights)
	assert.False(t, in.MarketData.FiltersMatchToday)
	assert.Nil(t, in.MedianMoveBeforeFill.MedianPrice)
	assert.Nil(t, in.MarketData.CurrentOpen)
	assert.Equal(t, noPriceDescription, in.MedianMaxMoveUnfilled.PriceDescription)

	res, err = uc.Insights(context.Background(), Caller{SessionID: "s"}, models.GapRequest{GapSize: "1.5%+", Day: "Monday", GapDirection: "down"})
	require.NoError(t, err)
	assert.Equal(t, "No data found for the selected criteria", res.Message)
}

func TestGapInsightsLimits(t *testing.T) {
	uc := newGaps(t, fakeQuotes{})
	ctx := context.Background()
	req := models.GapRequest{GapSize: "0.5-1%", Day: "Monday", GapDirection: "up"}
	req.MainAction = ActionGetInsights

	for i := 0; i < 2; i++ {
		_, err := uc.Insights(ctx, Caller{SessionID: "main"}, req)
		require.NoError(t, err)
	}
	_, err := uc.Insights(ctx, Caller{SessionID: "main"}, req)
	appErr := requireStatus(t, err, http.StatusTooManyRequests)
	assert.Equal(t, msgGapInsightsLimit, appErr.Message)

	// every sample call counts, with or without an action
	req.MainAction = ""
	for i := 0; i < 3; i++ {
		_, err := uc.Insights(ctx, Caller{SessionID: "visitor", Sample: true}, req)
		require.NoError(t, err)
	}
	_, err = uc.Insights(ctx, Caller{SessionID: "visitor", Sample: true}, req)
	appErr = requireStatus(t, err, http.StatusTooManyRequests)
	assert.Equal(t, msgSampleCallsLimit, appErr.Message)
}

func day(s string) time.Time {
	t, _ := time.Parse(util.DateLayout, s)
	return t
}

func newEvents(t *testing.T, src *fakeEvents) *EventsUseCase {
	policy, _ := newPolicy(t)
	return NewEventsUseCase(src, testTickers, testSample, policy, nil)
}

func TestYearsAndEvents(t *testing.T) {
	src := &fakeEvents{news: []models.NewsEvent{
		{Date: day("2024-03-12"), EventType: "CPI"},
		{Date: day("2022-06-10"), EventType: "CPI"},
		{Date: day("2024-01-31"), EventType: "FOMC"},
		{Date: day("2023-02-03"), EventType: "NFP"},
	}}
	uc := newEvents(t, src)
	ctx := context.Background()

	years, err := uc.Years(ctx, Caller{})
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2023, 2024}, years)

	res, err := uc.Events(ctx, Caller{}, models.EventsRequest{EventType: "CPI"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2022-06-10", "2024-03-12"}, res.Dates)

	res, err = uc.Events(ctx, Caller{}, models.EventsRequest{Year: "2024"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-31", "2024-03-12"}, res.Dates)

	res, err = uc.Events(ctx, Caller{Sample: true}, models.EventsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-31", "2024-03-12"}, res.Dates)

	_, err = uc.Events(ctx, Caller{}, models.EventsRequest{Year: "twenty"})
	appErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Invalid year format", appErr.Message)

	res, err = uc.Events(ctx, Caller{}, models.EventsRequest{EventType: "GDP"})
	require.NoError(t, err)
	assert.Equal(t, "No events found for the selected criteria", res.Message)
}

func TestEarnings(t *testing.T) {
	src := &fakeEvents{earnings: []models.EarningsEvent{
		{Ticker: "NVDA", Date: day("2024-05-22"), Bin: "Beat"},
		{Ticker: "NVDA", Date: day("2024-02-21"), Bin: "Miss"},
		{Ticker: "QQQ", Date: day("2024-01-01"), Bin: "Unknown"},
	}}
	uc := newEvents(t, src)
	ctx := context.Background()

	res, err := uc.Earnings(ctx, Caller{}, models.EarningsRequest{Ticker: "NVDA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-21", "2024-05-22"}, res.Dates)

	_, err = uc.Earnings(ctx, Caller{}, models.EarningsRequest{})
	assert.Equal(t, "Ticker is required", requireStatus(t, err, http.StatusBadRequest).Message)

	res, err = uc.Earnings(ctx, Caller{}, models.EarningsRequest{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "No earnings found for AAPL", res.Message)

	res, err = uc.EarningsByBin(ctx, models.EarningsByBinRequest{Ticker: "NVDA", Bin: "Beat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-22"}, res.Dates)

	_, err = uc.EarningsByBin(ctx, models.EarningsByBinRequest{Ticker: "NVDA", Bin: "Huge"})
	assert.Equal(t, "Invalid bin", requireStatus(t, err, http.StatusBadRequest).Message)
	_, err = uc.EarningsByBin(ctx, models.EarningsByBinRequest{Ticker: "GME", Bin: "Beat"})
	assert.Equal(t, "Invalid ticker", requireStatus(t, err, http.StatusBadRequest).Message)
	_, err = uc.EarningsByBin(ctx, models.EarningsByBinRequest{Ticker: "NVDA"})
	assert.Equal(t, "Ticker and bin are required", requireStatus(t, err, http.StatusBadRequest).Message)
}

func TestSourceErrors(t *testing.T) {
	ctx := context.Background()

	uc := newEvents(t, &fakeEvents{err: fmt.Errorf("news: %w", domrepo.ErrSourceMissing)})
	_, err := uc.Years(ctx, Caller{})
	assert.Equal(t, "Events data file not found. Please contact support.", requireStatus(t, err, http.StatusNotFound).Message)

	uc = newEvents(t, &fakeEvents{err: fmt.Errorf("economic: %w", domrepo.ErrInvalidFormat)})
	_, err = uc.EconomicEvents(ctx, models.EconomicEventsRequest{})
	assert.Equal(t, "Invalid economic data format", requireStatus(t, err, http.StatusBadRequest).Message)

	uc = newEvents(t, &fakeEvents{err: errors.New("disk on fire")})
	_, err = uc.Earnings(ctx, Caller{}, models.EarningsRequest{Ticker: "NVDA"})
	assert.Equal(t, "Failed to load earnings data: disk on fire", requireStatus(t, err, http.StatusInternalServerError).Message)
}

func TestNewsInsights(t *testing.T) {
	ctx := context.Background()

	uc := newEvents(t, &fakeEvents{metrics: models.EventMetricsTable{
		Columns: []string{models.ColEventType, models.ColBin},
		Rows:    []models.EventMetricsRow{{models.ColEventType: "CPI", models.ColBin: "hot"}},
	}})
	_, err := uc.NewsInsights(ctx, Caller{SessionID: "s"}, models.NewsInsightsRequest{EventType: "CPI"})
	appErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, appErr.Message, "Invalid event analysis data format: missing columns")

	row := models.EventMetricsRow{}
	for _, c := range models.EventMetricsColumns {
		row[c] = ""
	}
	row[models.ColEventType] = "CPI"
	row[models.ColBin] = "hot"
	row[models.ColExtremeMove] = "0.8"
	row[models.ColExtremeDirection] = "Up"
	uc = newEvents(t, &fakeEvents{metrics: models.EventMetricsTable{Columns: models.EventMetricsColumns, Rows: []models.EventMetricsRow{row}}})

	res, err := uc.NewsInsights(ctx, Caller{SessionID: "s"}, models.NewsInsightsRequest{EventType: "CPI", Bin: "hot"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.DataPoints)
	assert.Equal(t, "CPI", res.EventType)

	res, err = uc.NewsInsights(ctx, Caller{SessionID: "s"}, models.NewsInsightsRequest{EventType: "FOMC"})
	require.NoError(t, err)
	assert.Equal(t, "No event analysis data found for the selected criteria", res.Message)

	// two calls spent, eight left before the main budget runs out
	for i := 0; i < 8; i++ {
		_, err = uc.NewsInsights(ctx, Caller{SessionID: "s"}, models.NewsInsightsRequest{})
		require.NoError(t, err)
	}
	_, err = uc.NewsInsights(ctx, Caller{SessionID: "s"}, models.NewsInsightsRequest{})
	assert.Equal(t, msgNewsLimit, requireStatus(t, err, http.StatusTooManyRequests).Message)
}

func TestNewsInsightsSampleModeSkipsMainBudget(t *testing.T) {
	ctx := context.Background()
	policy, _ := newPolicy(t)
	row := models.EventMetricsRow{}
	for _, c := range models.EventMetricsColumns {
		row[c] = ""
	}
	row[models.ColEventType] = "CPI"
	row[models.ColBin] = "hot"
	src := &fakeEvents{metrics: models.EventMetricsTable{Columns: models.EventMetricsColumns, Rows: []models.EventMetricsRow{row}}}
	uc := NewEventsUseCase(src, testTickers, testSample, policy, nil)

	sample := Caller{SessionID: "s", Sample: true}
	for i := 0; i < 12; i++ {
		_, err := uc.NewsInsights(ctx, sample, models.NewsInsightsRequest{EventType: "CPI"})
		require.NoError(t, err)
	}

	st, err := policy.Status(ctx, Caller{SessionID: "s"})
	require.NoError(t, err)
	require.NotEmpty(t, st)
	assert.Equal(t, models.CounterMain, st[0].Counter)
	assert.Equal(t, 10, st[0].Remaining)
}

func TestPolicyStatus(t *testing.T) {
	policy, _ := newPolicy(t)
	ctx := context.Background()
	require.NoError(t, policy.CountAction(ctx, Caller{SessionID: "s"}, models.ActionParams{MainAction: ActionFindGapDates}, ActionFindGapDates, "/api/gaps"))

	st, err := policy.Status(ctx, Caller{SessionID: "s"})
	require.NoError(t, err)
	require.Len(t, st, 4)
	assert.Equal(t, models.CounterMain, st[0].Counter)
	assert.Equal(t, 9, st[0].Remaining)
	assert.Equal(t, 2, st[1].Remaining)
}
