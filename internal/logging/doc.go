// Package logging wraps log/slog with standardized field keys, context-derived
// attributes, and logger construction from configuration.
package logging
