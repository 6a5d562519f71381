// Package cache persists review-server session cookies between runs.
//
// Each site's cookies are stored in one JSON file named after a SHA-256 hash
// of the site URL, together with a creation timestamp and a TTL (in seconds).
// Expired entries are skipped on read and removed during clear operations.
// Only cookies are cached: identities and changes are always re-fetched.
//
// The default cache directory is $XDG_CACHE_HOME/reviewdeck (or the
// OS-appropriate equivalent). Files are written with 0600 permissions.
package cache
