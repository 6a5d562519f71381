// Package server exposes the dashboard over a small local HTTP API.
//
// Routes:
//   - GET  /healthz         liveness probe
//   - GET  /api/dashboard   latest snapshot kept by a [review.Tracker]
//   - POST /api/refresh     runs one fetch cycle and returns its result
//
// Only one refresh runs at a time; a second request while a cycle is in
// flight gets 409 Conflict.
package server
