package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/internal/service/auth"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
)

// AuthHandler handles signup, login and logout against the session cookie.
type AuthHandler struct {
	log  *logger.Logger
	auth *auth.Service
}

func NewAuthHandler(l *logger.Logger, svc *auth.Service) *AuthHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &AuthHandler{log: l, auth: svc}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/signup", h.Signup)
	e.POST("/login", h.Login)
	e.POST("/logout", h.Logout)
	e.GET("/logout", h.Logout)
	e.GET("/api/me", h.Me)
}

type meResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
}

func newMeResponse(s *models.Session) meResponse {
	return meResponse{Authenticated: s.Authenticated, Username: s.Username, Email: s.Email}
}

func (h *AuthHandler) Signup(c echo.Context) error {
	req := &models.SignupRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	sess, err := h.auth.Signup(c.Request().Context(), SessionID(c), *req)
	if err != nil {
		return respondError(c, h.log, authError(err))
	}
	return c.JSON(http.StatusCreated, newMeResponse(sess))
}

func (h *AuthHandler) Login(c echo.Context) error {
	req := &models.LoginRequest{}
	if err := httpx.ReadAndValidateRequest(c, req); err != nil {
		return httpx.ErrorResponse(c, err)
	}
	sess, err := h.auth.Login(c.Request().Context(), SessionID(c), *req)
	if err != nil {
		return respondError(c, h.log, authError(err))
	}
	return httpx.JSON(c, newMeResponse(sess))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), SessionID(c)); err != nil {
		return respondError(c, h.log, authError(err))
	}
	return httpx.JSON(c, meResponse{})
}

func (h *AuthHandler) Me(c echo.Context) error {
	sess, err := h.auth.Sessions().Load(c.Request().Context(), SessionID(c))
	if err != nil {
		return respondError(c, h.log, authError(err))
	}
	return httpx.JSON(c, newMeResponse(sess))
}

// authError maps account errors to the messages shown on the forms.
func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return httpx.BadRequestError("All fields are required.")
	case errors.Is(err, auth.ErrInvalidEmail):
		return httpx.BadRequestError("Invalid email format.")
	case errors.Is(err, auth.ErrShortPassword):
		return httpx.BadRequestError("Password must be at least 8 characters long.")
	case errors.Is(err, auth.ErrPasswordTooLong):
		return httpx.BadRequestError("Password must be at most 72 bytes long.")
	case errors.Is(err, auth.ErrEmailTaken):
		return httpx.ConflictError("Email already registered.")
	case errors.Is(err, auth.ErrMissingCredentials):
		return httpx.BadRequestError("Email and password are required.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return httpx.UnauthorizedError("Invalid email or password.")
	default:
		return httpx.InternalError("An error occurred. Please try again.").WithError(err)
	}
}
