package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderNotConfigured indicates the provider's OAuth app
	// credentials are missing from the environment
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrUnsupportedProvider indicates the provider type is not registered
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrStateMismatch indicates the callback state failed CSRF verification
	ErrStateMismatch = errors.New("state mismatch")

	// ErrCredentialNotFound indicates no stored credential at read time
	ErrCredentialNotFound = errors.New("no credentials found")
)
