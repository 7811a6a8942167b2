package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/doby176/light/internal/service/auth"
	"github.com/doby176/light/internal/usecase"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
)

const sessionContextKey = "session_id"

// SessionCookie configures the cookie carrying the session id.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// SessionMiddleware makes sure every request has a session id. Visitors
// without a valid cookie get a fresh one; their counters are keyed by it.
func SessionMiddleware(cfg SessionCookie) echo.MiddlewareFunc {
	if cfg.Name == "" {
		cfg.Name = "session_id"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(cfg.Name); err == nil && auth.ValidID(ck.Value) {
				c.Set(sessionContextKey, ck.Value)
				return next(c)
			}
			id := auth.NewID()
			c.SetCookie(&http.Cookie{
				Name:     cfg.Name,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(sessionContextKey, id)
			return next(c)
		}
	}
}

// SessionID returns the id assigned by SessionMiddleware.
func SessionID(c echo.Context) string {
	id, _ := c.Get(sessionContextKey).(string)
	return id
}

func caller(c echo.Context, sampleMode httpx.Flag) usecase.Caller {
	return usecase.Caller{
		SessionID: SessionID(c),
		Sample:    usecase.IsSampleRequest(c.Request().Referer(), bool(sampleMode)),
	}
}

// respondError writes err and logs it when it is a server fault.
func respondError(c echo.Context, l *logger.Logger, err error) error {
	var appErr *httpx.AppError
	if !errors.As(err, &appErr) || appErr.Status >= http.StatusInternalServerError {
		l.Error("request failed",
			logger.String("method", c.Request().Method),
			logger.String("path", c.Path()),
			logger.Error(err),
		)
	}
	return httpx.ErrorResponse(c, err)
}
