// Package config loads, normalizes, and validates quizsync configuration.
//
// Configuration is TOML with environment-variable fallbacks for credentials.
// Load resolves the file path (explicit flag, then the user config dir, then a
// project-local quizsync.toml), decodes over Default(), expands paths, applies
// env fallbacks, and validates. Components receive the resulting *Config at
// construction time; nothing reads ambient globals.
package config
