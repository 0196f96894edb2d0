// Package config loads and validates devicelink configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and selected values (secrets, deployment paths) can be overridden via
// DEVICELINK_* environment variables. The loaded Config is immutable after
// startup; components receive the sections they need by value.
package config
