// Package config loads, normalizes, and validates featuregen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OLLAMA_HOST. The Config type centralizes every knob the CLI and pipeline
// need: model names, output defaults, cache policy, retry policy, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical format names, and clear validation errors.
package config
