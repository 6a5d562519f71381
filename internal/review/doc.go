// Package review contains the core data model and the fetch cycle of the
// dashboard.
//
// It defines Site, Change, Status and the display categories, classifies
// changes into a Dashboard, and runs cycles with the Aggregator: every
// configured site is fetched concurrently, per-site results are recorded as
// they arrive, and the union of successful changes is categorized once all
// sites have finished.
//
// Classification is owner-first. Owned changes land in pending, outgoing or
// submitted (the latter only for SubmittedWindow after the last update) and
// are otherwise dropped; changes owned by others are incoming when the user
// is a reviewer and cced otherwise.
//
// Tracker (tracker.go) observes cycles and keeps the latest per-site status
// and dashboard for the local server.
package review
