// Package config loads, normalizes, and validates showcopier configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// SHOWCOPIER_LIBRARY_DIR. The Config type is built once per run and handed to
// the cache, the compatibility checker, and the copier explicitly; nothing in
// the repository reads configuration from package-level state.
package config
