// Package api provides the remote resource gateway: a thin per-entity-type
// client over the storefront REST API with response-envelope normalization,
// error classification and retry with backoff.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure. Coordinators propagate kinds unchanged
// to the UI binding layer; they never convert one kind into another.
type Kind string

const (
	// KindNetwork is a transport-level failure. Eligible for retry.
	KindNetwork Kind = "network"

	// KindUnauthorized is a 401. Propagated so the auth collaborator can
	// force a re-login; never retried.
	KindUnauthorized Kind = "unauthorized"

	// KindForbidden is a 403. Never retried.
	KindForbidden Kind = "forbidden"

	// KindNotFound is a 404. Never retried.
	KindNotFound Kind = "not_found"

	// KindValidation is any other 4xx. Never retried.
	KindValidation Kind = "validation"

	// KindServer is a 5xx. Eligible for retry.
	KindServer Kind = "server"

	// KindCacheIntegrity is an internal coordinator bug, e.g. a rollback
	// against a missing snapshot. Should never occur; logged loudly.
	KindCacheIntegrity Kind = "cache_integrity"
)

// Common errors returned by the gateway.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// Error is a classified gateway failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api %s error (status %d): %s: %v",
			e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("api %s error (status %d): %s",
		e.Kind, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. Only network and
// server errors qualify; auth and validation failures never do.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// Classify maps an HTTP status code to an error kind.
func Classify(statusCode int) Kind {
	switch {
	case statusCode == http.StatusUnauthorized:
		return KindUnauthorized
	case statusCode == http.StatusForbidden:
		return KindForbidden
	case statusCode == http.StatusNotFound:
		return KindNotFound
	case statusCode >= 400 && statusCode < 500:
		return KindValidation
	case statusCode >= 500:
		return KindServer
	default:
		return ""
	}
}

// KindOf extracts the classification of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
