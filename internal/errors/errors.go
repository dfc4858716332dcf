// Package errors defines the recoverable, user-facing error conditions
// the booking core reports to its callers. Handlers translate these
// into specific HTTP responses; none of them is fatal to the process.
package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidDateRange is returned when a rental window is missing,
	// malformed, or has endDate <= startDate.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrCarUnavailable is returned when the requested car has a
	// conflicting non-cancelled booking for an overlapping window, or
	// when a concurrent request took the slot first.
	ErrCarUnavailable = errors.New("car unavailable for selected dates")

	// ErrLocationNotFound is returned when a pickup or drop-off
	// location ID does not resolve.
	ErrLocationNotFound = errors.New("location not found")

	// ErrPricingUnavailable is returned when no active pricing rule
	// covers the booking start date for the car type.
	ErrPricingUnavailable = errors.New("no pricing rule for selected dates")

	// ErrInvalidTransition is returned for any booking status change
	// not permitted by the lifecycle state table.
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrHasPaymentHistory blocks hard deletion of a booking that any
	// payment row references, regardless of the payment's status.
	ErrHasPaymentHistory = errors.New("cannot delete a booking with payment history")

	// ErrAmountMismatch is raised when a gateway-settled amount differs
	// from the booking total by more than the configured tolerance.
	// The money has already moved at the gateway, so callers must
	// surface this for support follow-up rather than drop it.
	ErrAmountMismatch = errors.New("payment amount does not match booking total")

	// ErrDuplicatePaymentReference is raised when a gateway reference
	// is replayed against the same booking with a different amount.
	// An identical replay is deduplicated silently instead.
	ErrDuplicatePaymentReference = errors.New("duplicate payment reference")

	// ErrBookingNotFound is returned when a booking ID does not resolve.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrCarNotFound is returned when a car ID does not resolve.
	ErrCarNotFound = errors.New("car not found")
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// StatusCode maps a domain error to the HTTP status the API layer
// should respond with. Unknown errors map to 500.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch {
	case errors.Is(err, ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrCarUnavailable):
		return http.StatusConflict
	case errors.Is(err, ErrLocationNotFound),
		errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrCarNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPricingUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrHasPaymentHistory):
		return http.StatusConflict
	case errors.Is(err, ErrAmountMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDuplicatePaymentReference):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
