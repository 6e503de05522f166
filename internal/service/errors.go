// Package service provides application-level services that orchestrate
// stores and platform adapters on behalf of the API layer.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrImageAccessDenied indicates the requester may not read or modify
	// the image: it is private and owned by someone else. The API layer
	// maps this to HTTP 403 Forbidden.
	ErrImageAccessDenied = errors.New("image is not accessible to this user")
)
