// Package config loads, normalizes, and validates miner configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MINER_DB_URL. The Config type centralizes every knob the CLI and pipeline
// need, so output directories and collaborator endpoints are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
