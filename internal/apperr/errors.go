// Package apperr holds the error kinds shared by repositories, services and handlers.
// Callers compare with errors.Is; wrapping with fmt.Errorf("...: %w") keeps the kind.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid reset token")
	ErrExpiredToken       = errors.New("reset token expired")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidFormat      = errors.New("invalid format")
	ErrValidation         = errors.New("validation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

var domainKinds = []error{
	ErrConflict,
	ErrInvalidCredentials,
	ErrInvalidToken,
	ErrExpiredToken,
	ErrUnauthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidFormat,
	ErrValidation,
	ErrStorageUnavailable,
}

// Storage marks err as a persistence fault. Errors that already carry a kind pass through.
func Storage(err error) error {
	if err == nil || IsKnown(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// IsKnown reports whether err carries one of the kinds declared in this package.
func IsKnown(err error) bool {
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
