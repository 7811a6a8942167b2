package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/doby176/light/internal/domain/models"
	svcmetrics "github.com/doby176/light/internal/service/metrics"
	"github.com/doby176/light/internal/usecase"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
)

// InsightsHandler serves the gap, event and earnings statistics.
type InsightsHandler struct {
	log    *logger.Logger
	gaps   *usecase.GapsUseCase
	events *usecase.EventsUseCase
}

func NewInsightsHandler(l *logger.Logger, gaps *usecase.GapsUseCase, events *usecase.EventsUseCase) *InsightsHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &InsightsHandler{log: l, gaps: gaps, events: events}
}

func (h *InsightsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/gaps", h.Gaps)
	g.GET("/gap_insights", h.GapInsights)
	g.GET("/years", h.Years)
	g.GET("/events", h.Events)
	g.GET("/economic_events", h.EconomicEvents)
	g.GET("/earnings", h.Earnings)
	g.GET("/earnings_by_bin", h.EarningsByBin)
	g.GET("/news_event_insights", h.NewsInsights)
}

// dates writes a dates result and records the endpoint metrics.
func (h *InsightsHandler) dates(c echo.Context, endpoint string, start time.Time, res *usecase.DatesResult, err error) error {
	if err != nil {
		svcmetrics.Observe(endpoint, start, 0, err)
		return respondError(c, h.log, err)
	}
	svcmetrics.Observe(endpoint, start, len(res.Dates), nil)
	return httpx.JSON(c, res)
}

func (h *InsightsHandler) Gaps(c echo.Context) error {
	start := time.Now()
	req := &models.GapRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	res, err := h.gaps.Dates(c.Request().Context(), caller(c, req.SampleMode), *req)
	return h.dates(c, "gaps", start, res, err)
}

func (h *InsightsHandler) GapInsights(c echo.Context) error {
	start := time.Now()
	req := &models.GapRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	res, err := h.gaps.Insights(c.Request().Context(), caller(c, req.SampleMode), *req)
	svcmetrics.Observe("gap_insights", start, 0, err)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return httpx.JSON(c, res)
}

func (h *InsightsHandler) Years(c echo.Context) error {
	req := &models.ActionParams{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	years, err := h.events.Years(c.Request().Context(), caller(c, req.SampleMode))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return httpx.JSON(c, map[string]interface{}{"years": years})
}

func (h *InsightsHandler) Events(c echo.Context) error {
	start := time.Now()
	req := &models.EventsRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	res, err := h.events.Events(c.Request().Context(), caller(c, req.SampleMode), *req)
	return h.dates(c, "events", start, res, err)
}

func (h *InsightsHandler) EconomicEvents(c echo.Context) error {
	start := time.Now()
	req := &models.EconomicEventsRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	res, err := h.events.EconomicEvents(c.Request().Context(), *req)
	return h.dates(c, "economic_events", start, res, err)
}

func (h *InsightsHandler) Earnings(c echo.Context) error {
	start := time.Now()
	req := &models.EarningsRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	res, err := h.events.Earnings(c.Request().Context(), caller(c, req.SampleMode), *req)
	return h.dates(c, "earnings", start, res, err)
}

func (h *InsightsHandler) EarningsByBin(c echo.Context) error {
	start := time.Now()
	req := &models.EarningsByBinRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	res, err := h.events.EarningsByBin(c.Request().Context(), *req)
	return h.dates(c, "earnings_by_bin", start, res, err)
}

func (h *InsightsHandler) NewsInsights(c echo.Context) error {
	start := time.Now()
	req := &models.NewsInsightsRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	res, err := h.events.NewsInsights(c.Request().Context(), caller(c, req.SampleMode), *req)
	if err != nil {
		svcmetrics.Observe("news_event_insights", start, 0, err)
		return respondError(c, h.log, err)
	}
	svcmetrics.Observe("news_event_insights", start, res.DataPoints, nil)
	return httpx.JSON(c, res)
}
