package provider

import "errors"

// Common errors returned by the provider package
var (
	// ErrInvalidConfig is returned when the client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrUnexpectedResponse is returned when the provider's response cannot
	// be used: malformed JSON, a missing job ID, or a succeeded job without
	// a result URL.
	ErrUnexpectedResponse = errors.New("unexpected response from provider")

	// ErrRequestFailed is returned when the provider answers with a
	// non-success HTTP status.
	ErrRequestFailed = errors.New("provider request failed")
)
