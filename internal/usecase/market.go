package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/internal/services/features"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
	"github.com/doby176/light/pkg/util"
)

const endpointChart = "/api/stock/chart"

// MarketUseCase serves tickers, trading dates and intraday charts.
type MarketUseCase struct {
	candles domrepo.CandleStore
	tickers []string
	loc     *time.Location
	sample  SampleRules
	policy  *ActionPolicy
	log     *logger.Logger
}

func NewMarketUseCase(candles domrepo.CandleStore, tickers []string, loc *time.Location, sample SampleRules, policy *ActionPolicy, l *logger.Logger) *MarketUseCase {
	if l == nil {
		l = logger.Nop()
	}
	if loc == nil {
		loc = util.MarketLocation()
	}
	return &MarketUseCase{candles: candles, tickers: tickers, loc: loc, sample: sample, policy: policy, log: l}
}

func (uc *MarketUseCase) known(ticker string) bool { return slices.Contains(uc.tickers, ticker) }

// Tickers lists tickers with data; the sample page gets its fixed subset.
func (uc *MarketUseCase) Tickers(ctx context.Context, c Caller) ([]string, error) {
	if c.Sample {
		return uc.sample.Tickers, nil
	}
	tickers, err := uc.candles.Tickers(ctx)
	if err != nil {
		return nil, httpx.InternalError("Failed to fetch tickers").WithError(err)
	}
	return tickers, nil
}

func (uc *MarketUseCase) ValidDates(ctx context.Context, c Caller, req models.ValidDatesRequest) ([]string, error) {
	if req.Ticker == "" || !uc.known(req.Ticker) {
		return nil, httpx.BadRequestError("Missing or invalid ticker")
	}
	dates, err := uc.candles.Dates(ctx, req.Ticker)
	if errors.Is(err, domrepo.ErrNoDatabase) {
		return nil, httpx.NotFoundErrorf("No database available for %s", req.Ticker).WithError(err)
	}
	if err != nil {
		return nil, httpx.InternalErrorf("Failed to fetch dates for %s", req.Ticker).WithError(err)
	}
	if len(dates) == 0 {
		return nil, httpx.NotFoundErrorf("No dates available for %s", req.Ticker)
	}
	if c.Sample {
		dates = uc.sample.FilterDates(dates)
	}
	return dates, nil
}

// Chart returns one day of bars. restrict_hours keeps the regular session;
// bars are resampled to the timeframe unless replay_mode asks for the raw
// one-minute bars so the client can aggregate as it replays.
func (uc *MarketUseCase) Chart(ctx context.Context, c Caller, req models.ChartRequest) (*models.ChartData, error) {
	if err := uc.policy.CountAction(ctx, c, req.ActionParams, ActionLoadChart, endpointChart); err != nil {
		return nil, err
	}
	if req.Ticker == "" || req.Date == "" || req.Timeframe == "" {
		return nil, httpx.BadRequestError("Missing ticker, date, or timeframe")
	}
	if !uc.known(req.Ticker) {
		return nil, httpx.BadRequestError("Invalid ticker")
	}
	tf, err := domrepo.ParseTimeframe(req.Timeframe)
	switch {
	case errors.Is(err, domrepo.ErrTimeframeUnsupported):
		return nil, httpx.BadRequestError("Invalid timeframe. Must be 1, 2, 3, 5, 10, 15, 30, 60 or 240 minutes.")
	case err != nil:
		return nil, httpx.BadRequestError("Invalid timeframe format")
	}
	day, err := util.ParseDate(req.Date, uc.loc)
	if err != nil {
		return nil, httpx.BadRequestError("Invalid date format")
	}

	candles, err := uc.candles.Candles(ctx, req.Ticker, day)
	if errors.Is(err, domrepo.ErrNoDatabase) {
		return nil, httpx.NotFoundErrorf("No database available for %s", req.Ticker).WithError(err)
	}
	if err != nil {
		return nil, httpx.InternalError("Database query failed").WithError(err)
	}
	if req.RestrictHours {
		candles = features.RestrictHours(candles)
	}
	if !req.ReplayMode && tf > domrepo.TF1 {
		candles = features.Resample(candles, tf.Duration())
	}
	if len(candles) == 0 {
		return nil, httpx.NotFoundError("No data available for the selected date. Try another date.")
	}

	uc.log.Debug("chart served",
		logger.String("ticker", req.Ticker),
		logger.String("date", req.Date),
		logger.Int("timeframe", int(tf)),
		logger.Int("bars", len(candles)),
	)
	cd := models.NewChartData(req.Ticker, req.Date, candles, util.TimestampLayout)
	return &cd, nil
}

// Health pings the candle store.
func (uc *MarketUseCase) Health(ctx context.Context) error {
	if err := uc.candles.Health(ctx); err != nil {
		return fmt.Errorf("candle store: %w", err)
	}
	return nil
}
