// Package api implements the HTTP surface of the service: request routing,
// handlers for generation submission and status reads, image catalog reads
// and deletes, and the mapping from internal errors onto sanitized HTTP
// responses.
package api
