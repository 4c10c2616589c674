package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyTitle             = errors.New("empty title")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrUnsupportedCurrency    = errors.New("unsupported currency")
	ErrNotFound               = errors.New("not found")
	ErrStoreUnavailable       = errors.New("store unavailable")

	// ErrLedgerInconsistency marks a partial multi-record write that
	// could not be rolled back. It must never be swallowed.
	ErrLedgerInconsistency = errors.New("ledger inconsistency")
)

// Error carries an HTTP-style status alongside the message so the
// boundary layer can translate service failures into responses.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func InvalidInput(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unavailable(format string, args ...any) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...any) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the HTTP-style status from an error, defaulting to
// 500 for anything untyped.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrEmptyTitle),
		errors.Is(err, ErrInvalidTransactionType),
		errors.Is(err, ErrUnsupportedCurrency):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
