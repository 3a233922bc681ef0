// Package common defines shared constants and sentinel errors used across
// client and server layers of folio. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Authentication / authorization taxonomy.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Credential errors.
	ErrHashing = errors.New("password hashing failed")

	// Client session lifecycle errors. Each one means the user is no longer
	// authenticated and matches ErrUnauthenticated.
	ErrRefreshFailed  = fmt.Errorf("refresh failed: %w", ErrUnauthenticated)
	ErrNoSession      = fmt.Errorf("no active session: %w", ErrUnauthenticated)
	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrUnauthenticated)
)
