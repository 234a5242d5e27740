package service

import "github.com/rotisserie/eris"

// ErrQuotaExceeded maps to HTTP 402: the organization spent its run
// allowance for the period.
var ErrQuotaExceeded = eris.New("discovery quota exceeded")

// ValidationError is a caller mistake in the request payload (HTTP 400).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// UnprocessableError is a request that is well-formed but cannot be acted
// on in the entity's current state (HTTP 422).
type UnprocessableError struct {
	Message string
}

func (e *UnprocessableError) Error() string { return e.Message }

// Unprocessable builds an UnprocessableError.
func Unprocessable(msg string) error {
	return &UnprocessableError{Message: msg}
}
