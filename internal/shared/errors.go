// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"errors"

	"github.com/containerd/errdefs"
	"github.com/containerd/errdefs/pkg/errhttp"
)

// Error kinds surfaced to users. Each one wraps the matching errdefs class,
// so errdefs.IsNotFound and friends work on any error built from them.
var (
	// ErrConnection means the document store is unreachable or rejected the credentials.
	ErrConnection = kindError{msg: "store connection failed", class: errdefs.ErrUnavailable}
	// ErrNotFound means a database or collection does not exist (any more).
	ErrNotFound = kindError{msg: "not found", class: errdefs.ErrNotFound}
	// ErrQuery means the reasoning service or a derived query failed.
	ErrQuery = kindError{msg: "query failed", class: errdefs.ErrUnknown}
	// ErrInvalidInput means the user action cannot be performed as requested.
	ErrInvalidInput = kindError{msg: "invalid input", class: errdefs.ErrInvalidArgument}
)

type kindError struct {
	msg   string
	class error
}

func (e kindError) Error() string { return e.msg }

func (e kindError) Unwrap() error { return e.class }

// Kind returns a short machine-readable name for the error kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrQuery):
		return "query"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

// StatusCode maps an error to the HTTP status reported to clients.
func StatusCode(err error) int {
	return errhttp.ToHTTP(err)
}
