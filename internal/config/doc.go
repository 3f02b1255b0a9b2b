// Package config loads, normalizes, and validates studyforge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STUDYFORGE_LLM_API_KEY and AWS_ACCESS_KEY_ID. Always obtain settings
// through this package so downstream code receives sanitized paths and clear
// validation errors.
package config
