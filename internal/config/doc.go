// Package config loads and merges reviewdeck configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (REVIEWDECK_FORMAT, REVIEWDECK_DATABASE_URL, etc.)
//  3. Config file ($XDG_CONFIG_HOME/reviewdeck/config.toml)
//  4. Built-in defaults
//
// The file holds the configured sites as [[sites]] tables, the origins the
// user granted access to, and the settings of the optional site store,
// event stream and local server.
//
// Use [Load] to obtain a merged [Config], [Init] to write a default config
// file, and [SetField], [AddSite] and [RemoveSite] to edit a loaded file
// before passing it to [Save].
package config
