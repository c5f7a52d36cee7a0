// Package services holds the blog's core rules: credentials, sessions,
// access control, posts, categories and comments. Every operation returns
// one of the tagged errors below so the transport can map it without
// inspecting messages.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation tags malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict tags uniqueness or referential violations.
	ErrConflict = errors.New("conflict")
	// ErrAuthentication tags missing, invalid or expired credentials.
	ErrAuthentication = errors.New("authentication required")
	// ErrAuthorization tags an authenticated identity acting outside its rights.
	ErrAuthorization = errors.New("forbidden")
	// ErrNotFound tags an id that does not resolve.
	ErrNotFound = errors.New("not found")
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)
	ErrAccountDisabled    = fmt.Errorf("%w: account disabled", ErrAuthentication)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrAuthentication)
	ErrExpiredToken       = fmt.Errorf("%w: token expired", ErrAuthentication)
)

// FieldError is a ValidationError or ConflictError about a single input field.
type FieldError struct {
	Kind    error
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return e.Kind }

func invalid(field, message string) error {
	return &FieldError{Kind: ErrValidation, Field: field, Message: message}
}

func conflict(field, message string) error {
	return &FieldError{Kind: ErrConflict, Field: field, Message: message}
}

func notFound(resource string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, resource)
}

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, reason)
}
