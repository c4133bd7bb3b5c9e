// Package config loads, normalizes, and validates subforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUBFORGE_FFMPEG. The Config type centralizes every knob the CLI and the
// batch pipeline need so tool locations and output directories are discovered
// in one pass.
package config
