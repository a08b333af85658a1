package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session gateway
var (
	// Configuration errors
	ErrMissingUpstreamURL = errors.New("upstream API URL is not configured")

	// Request errors
	ErrOriginRejected = errors.New("cross-origin request rejected")
	ErrInvalidBody    = errors.New("invalid request body")

	// Credential errors
	ErrNoCredentials      = errors.New("no credentials")
	ErrNoRefreshToken     = errors.New("no refresh token")
	ErrRefreshRejected    = errors.New("refresh token rejected")
	ErrTokensMissing      = errors.New("upstream response missing tokens")
	ErrClockBundleMissing = errors.New("clock portal credentials incomplete")

	// Upstream errors
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrCorruptAttachment   = errors.New("upstream attachment is unreadable")

	// Client-side errors
	ErrAuthRequired = errors.New("authentication required")
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

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
