// Reviewdeck is a local-first code review dashboard.
//
// It collects the changes you own, review or are CC'ed on from Gerrit and
// Rietveld servers and groups them into incoming, outgoing, CC'ed, pending
// and recently submitted reviews.
//
// Usage:
//
//	reviewdeck sites add --preset chromium   # add a well-known server
//	reviewdeck permissions grant             # allow access to configured sites
//	reviewdeck fetch                         # print the dashboard
//	reviewdeck fetch --format markdown --out s3://bucket/dash.md
//	reviewdeck serve                         # local dashboard API
package main
