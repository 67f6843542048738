package errors

import (
	stderrors "errors"
	"net/http"

	"cartbooking/internal/availability"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// FromAvailability maps engine errors onto HTTP status codes. Capacity
// rejections and invalid inputs are expected user-facing conditions; anything
// else is a storage failure surfaced as an internal error.
func FromAvailability(err error) *HTTPError {
	var capErr *availability.CapacityError
	switch {
	case stderrors.Is(err, availability.ErrCartNotFound):
		return NewHTTPError(http.StatusNotFound, "cart not found")
	case stderrors.Is(err, availability.ErrInvalidInterval),
		stderrors.Is(err, availability.ErrInvalidQuantity),
		stderrors.Is(err, availability.ErrInvalidRecurrence):
		return NewHTTPError(http.StatusBadRequest, err.Error())
	case stderrors.As(err, &capErr):
		return NewHTTPError(http.StatusConflict, capErr.Error())
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
