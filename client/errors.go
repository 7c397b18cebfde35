package client

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidConfig      = "SESSION_CLIENT_INVALID_CONFIG"
	TextCodeRefreshRejected    = "SESSION_REFRESH_REJECTED"
	TextCodeUnexpectedResponse = "SESSION_UNEXPECTED_RESPONSE"
)

// ErrInvalidConfig is returned by New for unusable configuration.
var ErrInvalidConfig = goerrors.New("invalid session client configuration", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidConfig).
	WithCode(goerrors.CodeBadRequest)

// ErrRefreshRejected is returned by Refresh when the server refuses the
// refresh credential.
var ErrRefreshRejected = goerrors.New("refresh credential rejected", goerrors.CategoryAuth).
	WithTextCode(TextCodeRefreshRejected).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnexpectedResponse is returned when a response body cannot be used.
var ErrUnexpectedResponse = goerrors.New("unexpected auth server response", goerrors.CategoryOperation).
	WithTextCode(TextCodeUnexpectedResponse).
	WithCode(goerrors.CodeInternal)

func withMetadata(base *goerrors.Error, cause error, metadata map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if cause != nil {
		clone.Source = cause
	}
	if len(metadata) > 0 {
		clone = clone.WithMetadata(metadata)
	}
	return clone
}
