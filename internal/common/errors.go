package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrOwnershipConflict is returned when an upsert targets an id that
	// already belongs to another account.
	ErrOwnershipConflict = errors.New("record owned by another account")

	// ErrTierLocked is returned when the account's tier cannot reach the
	// other platform's data.
	ErrTierLocked = errors.New("cross-platform data requires a paid tier")

	// ErrUnknownCollection is returned for collection names outside the schema.
	ErrUnknownCollection = errors.New("unknown collection")

	// Auth errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
