// Package config loads, normalizes, and validates reelsmith configuration.
//
// It supplies defaults, loads a .env file from the working directory, reads
// TOML, expands user paths (including tilde shortcuts), and honours
// environment fallbacks such as REDDIT_CLIENT_ID and INSTAGRAM_TOKEN. The
// Config type centralizes every knob the CLI stages need; Layout derives the
// on-disk artifact layout from paths.output_root.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
