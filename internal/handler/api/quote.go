package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doby176/light/internal/service/quote"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
)

// QuoteHandler serves the cached key stats and the live quote stream.
type QuoteHandler struct {
	log    *logger.Logger
	quotes *quote.Cache
	hub    *quote.Hub
}

func NewQuoteHandler(l *logger.Logger, quotes *quote.Cache, hub *quote.Hub) *QuoteHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &QuoteHandler{log: l, quotes: quotes, hub: hub}
}

func (h *QuoteHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/qqq_data", h.Data)
	if h.hub != nil {
		g.GET("/ws/qqq", echo.WrapHandler(h.hub))
	}
}

func (h *QuoteHandler) Data(c echo.Context) error {
	cq, err := h.quotes.Current(c.Request().Context())
	if err != nil {
		h.log.Error("quote unavailable", logger.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Unable to fetch QQQ data",
		})
	}
	return httpx.JSON(c, map[string]interface{}{"success": true, "data": cq.Data})
}
