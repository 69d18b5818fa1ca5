// Package errors defines the application's error taxonomy: sentinel errors
// for the failures the query pipeline distinguishes, plus AppError for
// attaching HTTP status codes and operator-facing messages. Conditions that
// are ordinary outcomes rather than failures, such as a question with no
// extractable keywords or an empty corpus, are not errors; they live in the
// search result types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDocumentNotFound marks a reference to a document the store has
	// never seen.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidInput marks a request rejected before any work was done.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIndexCorruption marks inconsistent index state. Handlers surface
	// a rebuild recommendation alongside it.
	ErrIndexCorruption = errors.New("index corruption detected")
	// ErrTimeout marks an operation cut off by its deadline.
	ErrTimeout = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexCorruption):
		return http.StatusConflict
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
