package fetch

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetcher.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry delay.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of fetch errors. Classification
// drives logging and metrics labels only; every class is retried the same
// way (fixed delay, fixed attempt count).
type ErrorClass string

const (
	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassDecode represents malformed response payloads.
	ErrorClassDecode ErrorClass = "decode"
)

// Error represents a failed fetch attempt with additional context.
type Error struct {
	ID         string
	StatusCode int
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s error for product %s (status %d): %v",
			e.Class, e.ID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s error for product %s: %v", e.Class, e.ID, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// classOf extracts the error class from a fetch attempt error.
func classOf(err error) ErrorClass {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ErrorClassNetwork
}
