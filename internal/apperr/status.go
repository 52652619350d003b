package apperr

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error to the response status for the API boundary.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidReference),
		errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrAlreadyReturned),
		errors.Is(err, ErrDuplicateLending),
		errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrLocked):
		return http.StatusLocked
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
