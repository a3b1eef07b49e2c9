// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure that crosses a component boundary (gateway, governor, workflow)
// carries a machine-readable Kind so callers can branch on the category without
// parsing messages, while the Message stays human-friendly.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Timeout indicates a remote call exceeded its deadline.
	Timeout Kind = "timeout"
	// AuthExpired indicates the server rejected the credentials and they could not be renewed.
	AuthExpired Kind = "auth_expired"
	// SessionEnded indicates a failed refresh cleared the held credentials.
	SessionEnded Kind = "session_ended"
	// InsufficientBalance indicates the credit balance cannot cover an action.
	InsufficientBalance Kind = "insufficient_balance"
	// RemoteError indicates a non-success response from the server.
	RemoteError Kind = "remote_error"
	// Network indicates the request never produced a response.
	Network Kind = "network"
	// StaleResponseDiscarded marks a response superseded by newer input. Logging only.
	StaleResponseDiscarded Kind = "stale_response_discarded"
	// ValidationFailed indicates a local precondition on user input failed.
	ValidationFailed Kind = "validation_failed"
	// Unloaded indicates an operation needed state that has not been fetched yet.
	Unloaded Kind = "unloaded"
)

// E wraps an error with kind and human-friendly message.
// Status is the HTTP status for RemoteError and zero otherwise.
type E struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *E) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%d %s", e.Status, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *E) Unwrap() error { return e.Err }

// Is reports whether target is an *E of the same kind. A target with a non-zero
// Status must match it too, so errors.Is(err, Remote(402, "")) works.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Status == 0 || t.Status == e.Status
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Remote builds a RemoteError for an HTTP status. An empty message falls back to
// the status text.
func Remote(status int, msg string) *E {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &E{Kind: RemoteError, Status: status, Message: msg}
}

// KindOf returns the Kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *E
	for err != nil {
		if stderrors.As(err, &e) {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		return false
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var e *E
	if stderrors.As(err, &e) {
		return e.Status
	}
	return 0
}
