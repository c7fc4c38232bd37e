// Package apperr defines the typed errors domain code returns to handlers.
// Each error carries the HTTP status it should map to so the boundary can
// translate without inspecting message strings.
package apperr

import (
	"errors"
	"net/http"
)

// Error is a domain error with an associated HTTP status. Fields carries
// optional per-field validation detail for 400 responses.
type Error struct {
	Status  int               `json:"-"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Validation returns a 400 error with optional field-level detail.
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg, Fields: fields}
}

// Unauthorized returns a 401 error. Expired credentials use the same status
// as invalid ones; the message is the only place the distinction shows.
func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: msg}
}

// Forbidden returns a 403 error for authenticated callers who lack access.
func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

// NotFound returns a 404 error.
func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

// Conflict returns a 409 error (duplicate email, repeated join, etc).
func Conflict(msg string) *Error {
	return &Error{Status: http.StatusConflict, Message: msg}
}

// Internal returns a 500 error with a safe generic message. The underlying
// cause is for server-side logs only and must never reach the client.
func Internal(msg string) *Error {
	if msg == "" {
		msg = "internal server error"
	}
	return &Error{Status: http.StatusInternalServerError, Message: msg}
}

// From unwraps err into an *Error if it is one.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
