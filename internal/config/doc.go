// Package config loads, normalizes, and validates ppabuild configuration data.
//
// It supplies repository defaults (the helix release URL, the cargo/dch/debuild
// command vectors, the ./target workspace), expands user paths including tilde
// shortcuts, reads TOML files, and honours environment fallbacks such as
// DEBFULLNAME, DEBEMAIL and PPABUILD_SIGNING_KEY.
//
// The returned Config is treated as immutable once Load succeeds; every
// pipeline component receives it by pointer instead of reading globals.
package config
