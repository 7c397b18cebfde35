package session

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeClaimsInvalid     = "SESSION_CLAIMS_INVALID"
	TextCodeInvalidTransition = "INVALID_SESSION_STATE_TRANSITION"
	TextCodeProviderMounted   = "SESSION_PROVIDER_MOUNTED"
	TextCodeMissingActions    = "SESSION_ACTIONS_MISSING"
)

// ErrClaimsInvalid is returned when a token cannot be decoded into Claims.
var ErrClaimsInvalid = goerrors.New("unable to decode session claims", goerrors.CategoryBadInput).
	WithTextCode(TextCodeClaimsInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrProviderMounted is returned when a runtime already has a mounted provider.
var ErrProviderMounted = goerrors.New("session provider already mounted", goerrors.CategoryConflict).
	WithTextCode(TextCodeProviderMounted).
	WithCode(goerrors.CodeConflict)

// ErrMissingActions is returned when a runtime is built without network actions.
var ErrMissingActions = goerrors.New("session actions are required", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMissingActions).
	WithCode(goerrors.CodeBadRequest)

// enrich clones base, attaches the cause and metadata.
func enrich(base *goerrors.Error, cause error, metadata map[string]any) error {
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
