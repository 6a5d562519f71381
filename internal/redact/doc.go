// Package redact scrubs personal data and credentials from text before it is
// logged or printed.
//
// Review-server query URLs embed the user's address (owner:me@example.com),
// so request logging passes URLs through [Emails]. [Secrets] covers
// credentials that may appear in configuration values, such as passwords in
// database URLs and session cookie assignments.
package redact
