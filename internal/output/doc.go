// Package output formats dashboard results for display or machine consumption.
//
// Three formats are supported:
//   - text: terminal output grouped by category, colored on a TTY (default)
//   - json: the full cycle result as JSON
//   - markdown: tables per category, suitable for notes and chat
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*review.Result]. [WriteResult]
// handles destination selection: stdout, a local file, or an
// s3://bucket/key object.
package output
