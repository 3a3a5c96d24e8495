// Package common defines shared constants and sentinel errors used across
// repository, service, and transport layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Business-rule errors. These propagate unchanged to the API boundary
	// and are not logged as failures.
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")

	// Infrastructure failures. Services map unexpected persistence or broker
	// errors to this value after rolling back, so callers never see a
	// vendor-specific error shape.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// IsBusinessError reports whether err belongs to the closed set of expected
// business-rule failures that must propagate unchanged to the caller.
func IsBusinessError(err error) bool {
	for _, e := range []error{
		ErrNotFound, ErrConflict, ErrForbidden, ErrUnauthorized,
		ErrInvalidArgument, ErrInvalidToken, ErrTokenExpired, ErrRefreshTokenRevoked,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
