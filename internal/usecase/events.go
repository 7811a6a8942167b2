package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/internal/services/stats"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
	"github.com/doby176/light/pkg/util"
)

const (
	endpointEvents       = "/api/events"
	endpointEarnings     = "/api/earnings"
	endpointNewsInsights = "/api/news_event_insights"
)

// sourceError maps an EventSource failure to the response for a data file
// named by kind ("gap", "events", ...).
func sourceError(kind string, err error) error {
	title := strings.ToUpper(kind[:1]) + kind[1:]
	switch {
	case errors.Is(err, domrepo.ErrSourceMissing):
		return httpx.NotFoundErrorf("%s data file not found. Please contact support.", title).WithError(err)
	case errors.Is(err, domrepo.ErrInvalidFormat):
		return httpx.BadRequestErrorf("Invalid %s data format", kind).WithError(err)
	default:
		return httpx.InternalErrorf("Failed to load %s data: %v", kind, err).WithError(err)
	}
}

// NewsInsightsResult is the news event insights payload.
type NewsInsightsResult struct {
	Insights   interface{} `json:"insights"`
	Message    string      `json:"message,omitempty"`
	EventType  string      `json:"event_type,omitempty"`
	Bin        string      `json:"bin,omitempty"`
	DataPoints int         `json:"data_points,omitempty"`
}

// EventsUseCase serves the macro event, economic release and earnings lookups.
type EventsUseCase struct {
	events  domrepo.EventSource
	tickers []string
	sample  SampleRules
	policy  *ActionPolicy
	log     *logger.Logger
}

func NewEventsUseCase(events domrepo.EventSource, tickers []string, sample SampleRules, policy *ActionPolicy, l *logger.Logger) *EventsUseCase {
	if l == nil {
		l = logger.Nop()
	}
	return &EventsUseCase{events: events, tickers: tickers, sample: sample, policy: policy, log: l}
}

// Years lists the distinct years of the news events, ascending.
func (uc *EventsUseCase) Years(ctx context.Context, c Caller) ([]int, error) {
	if c.Sample {
		return uc.sample.Years, nil
	}
	events, err := uc.events.NewsEvents(ctx)
	if err != nil {
		return nil, sourceError("events", err)
	}
	seen := make(map[int]bool)
	years := []int{}
	for _, e := range events {
		if y := e.Date.Year(); !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	slices.Sort(years)
	return years, nil
}

// Events lists news event dates filtered by type and year.
func (uc *EventsUseCase) Events(ctx context.Context, c Caller, req models.EventsRequest) (*DatesResult, error) {
	if err := uc.policy.CountAction(ctx, c, req.ActionParams, ActionFindEventDates, endpointEvents); err != nil {
		return nil, err
	}
	events, err := uc.events.NewsEvents(ctx)
	if err != nil {
		return nil, sourceError("events", err)
	}
	year := 0
	if req.Year != "" {
		if year, err = strconv.Atoi(strings.TrimSpace(req.Year)); err != nil {
			return nil, httpx.BadRequestError("Invalid year format")
		}
	}

	var dates []string
	for _, e := range events {
		if req.EventType != "" && e.EventType != req.EventType {
			continue
		}
		if year != 0 && e.Date.Year() != year {
			continue
		}
		if c.Sample && !uc.sample.AllowsEventType(e.EventType) {
			continue
		}
		dates = append(dates, e.Date.Format(util.DateLayout))
	}
	if len(dates) == 0 {
		return &DatesResult{Dates: []string{}, Message: "No events found for the selected criteria"}, nil
	}
	if c.Sample {
		dates = uc.sample.FilterDates(dates)
	}
	slices.Sort(dates)
	return &DatesResult{Dates: dates}, nil
}

// EconomicEvents lists economic release dates filtered by type and bin.
func (uc *EventsUseCase) EconomicEvents(ctx context.Context, req models.EconomicEventsRequest) (*DatesResult, error) {
	events, err := uc.events.EconomicEvents(ctx)
	if err != nil {
		return nil, sourceError("economic", err)
	}
	var dates []string
	for _, e := range events {
		if req.EventType != "" && e.EventType != req.EventType {
			continue
		}
		if req.Bin != "" && e.Bin != req.Bin {
			continue
		}
		dates = append(dates, e.Date.Format(util.DateLayout))
	}
	if len(dates) == 0 {
		return &DatesResult{Dates: []string{}, Message: "No events found for the selected criteria"}, nil
	}
	slices.Sort(dates)
	return &DatesResult{Dates: dates}, nil
}

// Earnings lists the earnings dates of one ticker.
func (uc *EventsUseCase) Earnings(ctx context.Context, c Caller, req models.EarningsRequest) (*DatesResult, error) {
	if err := uc.policy.CountMainOnly(ctx, c, req.ActionParams, ActionFindEarningsDates, endpointEarnings); err != nil {
		return nil, err
	}
	events, err := uc.events.Earnings(ctx)
	if err != nil {
		return nil, sourceError("earnings", err)
	}
	if req.Ticker == "" {
		return nil, httpx.BadRequestError("Ticker is required")
	}
	dates := earningsDates(events, func(e models.EarningsEvent) bool { return e.Ticker == req.Ticker })
	if len(dates) == 0 {
		return &DatesResult{Dates: []string{}, Message: fmt.Sprintf("No earnings found for %s", req.Ticker)}, nil
	}
	return &DatesResult{Dates: dates}, nil
}

// EarningsByBin lists the earnings dates of one ticker with the given surprise bin.
func (uc *EventsUseCase) EarningsByBin(ctx context.Context, req models.EarningsByBinRequest) (*DatesResult, error) {
	events, err := uc.events.Earnings(ctx)
	if err != nil {
		return nil, sourceError("earnings", err)
	}
	if req.Ticker == "" || req.Bin == "" {
		return nil, httpx.BadRequestError("Ticker and bin are required")
	}
	if !slices.Contains(uc.tickers, req.Ticker) {
		return nil, httpx.BadRequestError("Invalid ticker")
	}
	if !models.ValidEarningsBin(req.Bin) {
		return nil, httpx.BadRequestError("Invalid bin")
	}
	dates := earningsDates(events, func(e models.EarningsEvent) bool { return e.Ticker == req.Ticker && e.Bin == req.Bin })
	if len(dates) == 0 {
		return &DatesResult{Dates: []string{}, Message: fmt.Sprintf("No earnings found for %s with bin %s", req.Ticker, req.Bin)}, nil
	}
	return &DatesResult{Dates: dates}, nil
}

func earningsDates(events []models.EarningsEvent, keep func(models.EarningsEvent) bool) []string {
	var dates []string
	for _, e := range events {
		if keep(e) {
			dates = append(dates, e.Date.Format(util.DateLayout))
		}
	}
	slices.Sort(dates)
	return dates
}

// NewsInsights summarizes the intraday reaction to one kind of release.
// Every call spends a main action.
func (uc *EventsUseCase) NewsInsights(ctx context.Context, c Caller, req models.NewsInsightsRequest) (*NewsInsightsResult, error) {
	if err := uc.policy.CountNewsInsights(ctx, c, endpointNewsInsights); err != nil {
		return nil, err
	}
	table, err := uc.events.EventMetrics(ctx)
	if err != nil {
		if errors.Is(err, domrepo.ErrSourceMissing) {
			return nil, httpx.NotFoundError("Event analysis data file not found. Please contact support.").WithError(err)
		}
		return nil, httpx.InternalErrorf("Failed to load event analysis data: %v", err).WithError(err)
	}
	if len(table.Rows) == 0 {
		return nil, httpx.BadRequestError("Event analysis data file is empty")
	}
	if missing := table.MissingColumns(models.EventMetricsColumns); len(missing) > 0 {
		return nil, httpx.BadRequestErrorf("Invalid event analysis data format: missing columns %v", missing)
	}

	rows := table.Filter(req.EventType, req.Bin)
	if len(rows) == 0 {
		return &NewsInsightsResult{
			Insights: map[string]interface{}{},
			Message:  "No event analysis data found for the selected criteria",
		}, nil
	}
	with60 := table.HasColumn(models.ColSameDirection60Min) && table.HasColumn(models.ColOppositeMove60Min)
	return &NewsInsightsResult{
		Insights:   stats.NewsEventInsights(rows, with60),
		EventType:  req.EventType,
		Bin:        req.Bin,
		DataPoints: len(rows),
	}, nil
}
