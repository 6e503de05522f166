// Package postgres provides PostgreSQL implementations of the store
// interfaces, plus the error mapping from driver-level failures onto the
// store error taxonomy.
package postgres
