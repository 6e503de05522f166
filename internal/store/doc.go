// Package store defines the persistence contracts for durable entities and
// shared database plumbing: the DBTX abstraction, the common error
// taxonomy, and the transaction helper. Concrete implementations live in
// internal/platform/postgres.
package store
