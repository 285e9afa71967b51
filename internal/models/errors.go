// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the failure modes surfaced by the remote gateway and
// propagated unchanged through the registry to callers. Components never
// return a bare error type; every failure maps onto exactly one kind.
type ErrorKind string

const (
	// ErrNotAuthenticated indicates the call was made without a signed-in
	// session. Short-circuited before any simulated latency.
	ErrNotAuthenticated ErrorKind = "not_authenticated"

	// ErrNetwork indicates a (simulated) transport-level failure.
	ErrNetwork ErrorKind = "network_error"

	// ErrInvalidResponse indicates the remote returned something unusable.
	ErrInvalidResponse ErrorKind = "invalid_response"

	// ErrDeviceNotFound indicates the device id is not known to the remote.
	ErrDeviceNotFound ErrorKind = "device_not_found"

	// ErrOperationFailed is the generic remote-side failure.
	ErrOperationFailed ErrorKind = "operation_failed"

	// ErrStreamUnavailable indicates a live stream could not be issued.
	ErrStreamUnavailable ErrorKind = "stream_unavailable"

	// ErrAuthenticationFailed indicates a sign-in attempt was rejected.
	ErrAuthenticationFailed ErrorKind = "authentication_failed"

	// ErrRateLimitExceeded indicates the remote throttled the caller.
	ErrRateLimitExceeded ErrorKind = "rate_limit_exceeded"

	// ErrInsufficientPermissions indicates the session lacks access rights.
	ErrInsufficientPermissions ErrorKind = "insufficient_permissions"

	// ErrDeviceOffline indicates the target device is unreachable.
	ErrDeviceOffline ErrorKind = "device_offline"

	// ErrStorageExceeded indicates remote storage quota is exhausted.
	ErrStorageExceeded ErrorKind = "storage_exceeded"

	// ErrIncompatibleVersion is returned by backup restore when the snapshot
	// version does not match the running version. No partial write occurs.
	ErrIncompatibleVersion ErrorKind = "incompatible_version"
)

// recoveryHints maps each kind to a human-readable recovery suggestion.
// Hints accompany errors but never alter control flow.
var recoveryHints = map[ErrorKind]string{
	ErrNotAuthenticated:        "Sign in and try again",
	ErrNetwork:                 "Check your connection and retry",
	ErrInvalidResponse:         "Retry; if the problem persists, contact support",
	ErrDeviceNotFound:          "Refresh the device list",
	ErrOperationFailed:         "Retry the operation",
	ErrStreamUnavailable:       "Wait a moment and request the stream again",
	ErrAuthenticationFailed:    "Verify your credentials and sign in again",
	ErrRateLimitExceeded:       "Wait before retrying",
	ErrInsufficientPermissions: "Ask the home owner to grant access",
	ErrDeviceOffline:           "Check the device's power and connectivity",
	ErrStorageExceeded:         "Free up storage or upgrade your plan",
	ErrIncompatibleVersion:     "Create a new backup with the current app version",
}

// OpError is the typed error returned by every core component.
// Kind identifies the taxonomy entry; Op names the failing operation.
type OpError struct {
	Kind ErrorKind
	Op   string
	Hint string
	Err  error
}

// NewOpError builds an OpError for the given kind and operation, attaching
// the kind's standard recovery hint.
func NewOpError(kind ErrorKind, op string) *OpError {
	return &OpError{Kind: kind, Op: op, Hint: recoveryHints[kind]}
}

// WrapOpError builds an OpError around an underlying cause.
func WrapOpError(kind ErrorKind, op string, err error) *OpError {
	return &OpError{Kind: kind, Op: op, Hint: recoveryHints[kind], Err: err}
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap returns the underlying cause, if any.
func (e *OpError) Unwrap() error { return e.Err }

// Is reports whether target is an OpError of the same kind, so callers can
// use errors.Is with kind sentinels, e.g.
// errors.Is(err, &OpError{Kind: ErrDeviceOffline}).
func (e *OpError) Is(target error) bool {
	var t *OpError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the ErrorKind from an error chain. Returns
// ErrOperationFailed for non-nil errors outside the taxonomy and the empty
// kind for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ErrOperationFailed
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
