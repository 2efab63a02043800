// Package common defines shared constants and sentinel errors used across
// client, identity and remote layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnavailable reports that the remote store cannot be reached.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrTransientNetwork is a retryable remote failure. Background paths turn
	// it into a degraded flag instead of returning it.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrAuthentication is returned to explicit callers of sign-in and sign-up.
	ErrAuthentication = errors.New("authentication failed")

	// ErrDataIntegrity marks a malformed cart item rejected at the reconciler boundary.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrConcurrencyConflict marks a duplicate merge attempt. It is absorbed, never surfaced.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrLocalDataNotAvailable means no offline credentials are cached locally.
	ErrLocalDataNotAvailable = errors.New("local data unavailable")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
