package http

import (
	"fmt"
	"net/http"
)

// AppError is an error that knows which HTTP status it maps to. Extra
// keys are merged into the JSON error body next to "error".
type AppError struct {
	Status  int
	Message string
	Extra   map[string]interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

// With attaches an extra body key.
func (e *AppError) With(key string, value interface{}) *AppError {
	if e.Extra == nil {
		e.Extra = make(map[string]interface{})
	}
	e.Extra[key] = value
	return e
}

// WithError wraps the underlying cause. The cause is logged, never sent to the client.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message)
}

func NotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message)
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NotFoundError(fmt.Sprintf(format, a...))
}

func ConflictError(message string) *AppError {
	return NewAppError(http.StatusConflict, message)
}

// TooManyRequestsError is returned when a session has used up its action budget.
func TooManyRequestsError(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, message).With("limit_reached", true)
}

func InternalError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, message)
}

func InternalErrorf(format string, a ...interface{}) *AppError {
	return InternalError(fmt.Sprintf(format, a...))
}
