// Package cli implements the reviewdeck command tree.
//
// Commands: fetch, serve, sites, permissions, session, config and version.
// Run returns the process exit code; see the Exit* constants.
package cli
