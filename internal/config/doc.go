// Package config loads, normalizes, and validates the TOML configuration that
// drives every clipmill component.
package config
