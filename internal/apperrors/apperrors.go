// Package apperrors defines the error taxonomy shared by the fetch pipeline.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error kind.
type Code string

// Error codes.
const (
	CodeAuthRequired     Code = "AUTH_REQUIRED"
	CodeLoginAbandoned   Code = "LOGIN_ABANDONED"
	CodeTransport        Code = "TRANSPORT"
	CodeConfig           Code = "CONFIG"
	CodePermissionDenied Code = "PERMISSION_DENIED"
)

var messages = map[Code]string{
	CodeAuthRequired:     "authentication required",
	CodeLoginAbandoned:   "login abandoned",
	CodeTransport:        "transport error",
	CodeConfig:           "configuration error",
	CodePermissionDenied: "permission required",
}

var statusByCode = map[Code]int{
	CodeAuthRequired:     http.StatusUnauthorized,
	CodeLoginAbandoned:   http.StatusUnauthorized,
	CodeTransport:        http.StatusBadGateway,
	CodeConfig:           http.StatusUnprocessableEntity,
	CodePermissionDenied: http.StatusForbidden,
}

// AppError carries a Code, the site label it happened on (if any) and the
// underlying cause.
type AppError struct {
	Code Code
	Site string
	Err  error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := messages[e.Code]
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Site != "" {
		msg = e.Site + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus returns the HTTP status matching the error code.
func (e *AppError) HTTPStatus() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates an AppError.
func New(code Code, site string, err error) *AppError {
	return &AppError{Code: code, Site: site, Err: err}
}

// AuthRequired reports that the server did not accept the session, either
// because the identity probe failed or because a data response could not be
// parsed as the expected envelope.
func AuthRequired(site string, err error) error { return New(CodeAuthRequired, site, err) }

// LoginAbandoned reports that the user closed the login tab.
func LoginAbandoned(site string) error {
	return New(CodeLoginAbandoned, site, errors.New("login tab was closed"))
}

// Transport reports a network or HTTP failure unrelated to authentication.
func Transport(site string, err error) error { return New(CodeTransport, site, err) }

// Config reports an unusable site configuration.
func Config(site string, err error) error { return New(CodeConfig, site, err) }

// PermissionDenied reports that the permission gate refused the cycle.
func PermissionDenied(err error) error { return New(CodePermissionDenied, "", err) }

// CodeOf returns the Code of the first AppError in err's chain, or "".
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsAuthRequired checks if an error is an AuthRequired error.
func IsAuthRequired(err error) bool { return CodeOf(err) == CodeAuthRequired }

// IsLoginAbandoned checks if an error is a LoginAbandoned error.
func IsLoginAbandoned(err error) bool { return CodeOf(err) == CodeLoginAbandoned }

// IsConfig checks if an error is a ConfigError.
func IsConfig(err error) bool { return CodeOf(err) == CodeConfig }

// IsPermissionDenied checks if an error is a PermissionDenied error.
func IsPermissionDenied(err error) bool { return CodeOf(err) == CodePermissionDenied }
