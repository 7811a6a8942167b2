package api

import (
	"github.com/labstack/echo/v4"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/internal/usecase"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
)

// MarketHandler serves tickers, dates, charts and the caller's limits.
type MarketHandler struct {
	log     *logger.Logger
	market  *usecase.MarketUseCase
	policy  *usecase.ActionPolicy
	gapBins []string
}

func NewMarketHandler(l *logger.Logger, market *usecase.MarketUseCase, policy *usecase.ActionPolicy, gapBins []string) *MarketHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &MarketHandler{log: l, market: market, policy: policy, gapBins: gapBins}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/tickers", h.Tickers)
	g.GET("/valid_dates", h.ValidDates)
	g.GET("/stock/chart", h.Chart)
	g.GET("/limits", h.Limits)
	g.GET("/sample/gap_bins", h.SampleGapBins)
}

func (h *MarketHandler) Tickers(c echo.Context) error {
	req := &models.ActionParams{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	tickers, err := h.market.Tickers(c.Request().Context(), caller(c, req.SampleMode))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return httpx.JSON(c, map[string]interface{}{"tickers": tickers})
}

func (h *MarketHandler) ValidDates(c echo.Context) error {
	req := &models.ValidDatesRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	dates, err := h.market.ValidDates(c.Request().Context(), caller(c, req.SampleMode), *req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return httpx.JSON(c, map[string]interface{}{"dates": dates})
}

func (h *MarketHandler) Chart(c echo.Context) error {
	req := &models.ChartRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	cd, err := h.market.Chart(c.Request().Context(), caller(c, req.SampleMode), *req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return httpx.JSON(c, map[string]interface{}{"chart_data": cd})
}

// Limits reports the remaining budget of every counter for this session.
func (h *MarketHandler) Limits(c echo.Context) error {
	st, err := h.policy.Status(c.Request().Context(), usecase.Caller{SessionID: SessionID(c)})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return httpx.JSON(c, map[string]interface{}{"limits": st})
}

func (h *MarketHandler) SampleGapBins(c echo.Context) error {
	return httpx.JSON(c, map[string]interface{}{"gap_bins": h.gapBins})
}
