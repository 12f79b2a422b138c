package errors

import (
	"errors"
	"fmt"
)

// Common error types shared across the storefront packages
var (
	// Transport errors
	ErrTransport = errors.New("transport error")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")

	// Visitor errors
	ErrVisitorNotFound = errors.New("visitor not found")
	ErrVisitorExpired  = errors.New("visitor expired")

	ErrClosed = errors.New("closed")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
