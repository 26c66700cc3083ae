package models

import "errors"

// Sentinel errors for common failure conditions. Services return these and
// callers branch with errors.Is; nothing in this layer carries HTTP status.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// Account state and flow-specific errors. Each wraps the taxonomy sentinel
// it belongs to, so handlers branch on the family and services on the
// specific condition.
var (
	ErrAccountDisabled  = wrap("account is deactivated", ErrUnauthorized)
	ErrAccountSuspended = wrap("account is suspended", ErrUnauthorized)
	ErrInvalidTOTPCode  = wrap("invalid two-factor code", ErrUnauthorized)

	// Refresh flow; the whole family maps to 403.
	ErrRefreshTokenInvalid  = wrap("invalid or expired refresh token", ErrForbidden)
	ErrRefreshTokenReused   = wrap("refresh token has been revoked, please login again", ErrForbidden)
	ErrRefreshTokenStale    = wrap("refresh token superseded by a concurrent request", ErrForbidden)
	ErrRefreshAccountFrozen = wrap("account deactivated", ErrForbidden)

	// Single-use token and credential-replacement failures.
	ErrTokenExpired     = wrap("token is invalid or has expired", ErrValidation)
	ErrPasswordReuse    = wrap("new password must be different from the current password", ErrValidation)
	ErrTermsNotAccepted = wrap("terms and conditions must be accepted", ErrValidation)
)

// NewValidationError wraps a message into the validation family, for
// failures whose text is already client-safe.
func NewValidationError(msg string) error {
	return wrap(msg, ErrValidation)
}

type wrappedError struct {
	msg  string
	kind error
}

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.kind }

func wrap(msg string, kind error) error {
	return &wrappedError{msg: msg, kind: kind}
}
