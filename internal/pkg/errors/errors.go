package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTokenExpired means a platform connection needs re-authentication.
	ErrTokenExpired = errors.New("token expired")
	// ErrTableNotLoaded means the correlation table failed to load; trait
	// estimation and evidence generation refuse to run against an empty table.
	ErrTableNotLoaded = errors.New("correlation table not loaded")
	// ErrInsufficientData means a profile has no behavioral signal yet and the
	// neutral prior must not be presented as a discovered trait value.
	ErrInsufficientData = errors.New("insufficient data")
)
