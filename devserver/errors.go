package devserver

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidConfig      = "AUTHD_INVALID_CONFIG"
	TextCodeInvalidPayload     = "AUTHD_INVALID_PAYLOAD"
	TextCodeAccountExists      = "AUTHD_ACCOUNT_EXISTS"
	TextCodeInvalidCredentials = "AUTHD_INVALID_CREDENTIALS"
	TextCodeRefreshExpired     = "AUTHD_REFRESH_EXPIRED"
	TextCodeUnauthorized       = "AUTHD_UNAUTHORIZED"
)

// Messages returned to storefront clients.
const (
	MessageInvalidCredentials = "Invalid credentials."
	MessageAccountExists      = "Username or email is already taken."
	MessageRegistered         = "Registration successful."
	MessageRefreshExpired     = "Session expired. Please log in again."
	MessageLoggedOut          = "Logged out."
	MessageUnauthorized       = "Unauthorized."
	MessageInternal           = "Something went wrong. Please try again later."
)

// ErrInvalidConfig is returned by New for unusable configuration.
var ErrInvalidConfig = goerrors.New("invalid auth server configuration", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidConfig).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidPayload wraps request validation failures.
var ErrInvalidPayload = goerrors.New("invalid request payload", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidPayload).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountExists is returned when the username or email is taken.
var ErrAccountExists = goerrors.New(MessageAccountExists, goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is returned for unknown users and wrong passwords.
var ErrInvalidCredentials = goerrors.New(MessageInvalidCredentials, goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshExpired is returned for missing, unknown or expired refresh
// credentials.
var ErrRefreshExpired = goerrors.New(MessageRefreshExpired, goerrors.CategoryAuth).
	WithTextCode(TextCodeRefreshExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthorized is returned for missing or invalid bearer tokens.
var ErrUnauthorized = goerrors.New(MessageUnauthorized, goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

func withSource(base *goerrors.Error, cause error, metadata map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if cause != nil {
		clone.Source = cause
	}
	if len(metadata) == 0 {
		return clone
	}
	return clone.WithMetadata(metadata)
}
