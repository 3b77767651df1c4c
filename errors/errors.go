package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = fmt.Errorf("conversation not found")
	ErrBusy              = fmt.Errorf("conversation already has a stream in flight")
	ErrProviderFailure   = fmt.Errorf("provider failure")
	ErrUnsupportedFormat = fmt.Errorf("unsupported export format")
	ErrValidation        = fmt.Errorf("invalid command")
	ErrInvalidPassword   = fmt.Errorf("invalid credentials")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
)

// MapToHTTPStatus translates the domain taxonomy into transport status
// codes at the boundary, so handlers never switch on sentinel errors
// themselves.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, ErrProviderFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
