// Package config handles loading and validating application configuration
// from environment variables and optional config files. Settings are grouped
// into logical sections (server, database, redis, auth, provider, artifact,
// generation) so each component receives only the configuration it needs.
package config
