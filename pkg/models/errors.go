package models

import (
	"errors"
	"fmt"
)

// Error codes carried in failure envelopes and logs. They track the HTTP
// status the handler writes but survive as stable strings once the
// response is gone.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// Sentinel errors the services and handlers match with errors.Is.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrChapterNotFound  = errors.New("chapter not found")
	ErrProgressNotFound = errors.New("progress not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCourseNotOwned   = errors.New("course not purchased")
	ErrAlreadyOwned     = errors.New("course already purchased")
	ErrVersionConflict  = errors.New("version conflict")
)

// AppError pairs a client-safe message with the HTTP status it should be
// served with. Handlers pull it out with errors.As and reuse the status;
// everything else about the failure stays in the wrapped cause.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause, so errors.Is keeps matching the sentinels
// through the wrap.
func (e *AppError) Unwrap() error { return e.Err }

// NewHTTPError wraps err with the status and message the HTTP layer
// should serve for it.
func NewHTTPError(code, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}
