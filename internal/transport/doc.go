// Package transport is the cookie-carrying HTTP client used by every backend.
//
// All requests share one cookie jar so that a session established in a login
// tab (and handed to the jar) is attached to later data requests. Responses
// that cannot be decoded as the expected JSON envelope are reported as
// apperrors.AuthRequired: review servers answer an expired session with a
// 200 login page rather than an error status.
package transport
