package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	ErrNotFound  = errors.New("story not found")
	ErrForbidden = errors.New("forbidden")
	ErrStorage   = errors.New("storage error")

	// Submission errors
	ErrValidation = errors.New("validation error")
	ErrUserBanned = errors.New("user is banned from submitting stories")

	// Admin authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid admin password")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")

	// Overlay errors
	ErrRenderTargetUnavailable = errors.New("render target unavailable")
)

// ValidationError describes why a submission was refused.
// Field is empty for generic problems, "title" or "story" when moderation failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch e.Field {
	case "title":
		return fmt.Sprintf("Title: %s", e.Reason)
	case "story":
		return fmt.Sprintf("Story: %s", e.Reason)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a driver failure so callers can match ErrStorage.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
