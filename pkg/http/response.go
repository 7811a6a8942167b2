package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSON writes a 200 response with body as-is.
func JSON(c echo.Context, body interface{}) error {
	return c.JSON(http.StatusOK, body)
}

// ErrorBody builds the JSON body for err: {"error": "..."} plus any extras.
func ErrorBody(err *AppError) map[string]interface{} {
	body := make(map[string]interface{}, len(err.Extra)+1)
	for k, v := range err.Extra {
		body[k] = v
	}
	body["error"] = err.Message
	return body
}

// ErrorResponse writes err with its mapped status. Non-AppErrors become a 500.
func ErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("Server error").WithError(err)
	}
	return c.JSON(appErr.Status, ErrorBody(appErr))
}

// HTTPErrorHandler renders echo and application errors in the same shape
// as handler errors so clients only deal with one error format.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, map[string]interface{}{"error": msg})
		return
	}
	_ = ErrorResponse(c, err)
}
