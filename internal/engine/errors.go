// Package engine holds the contracts shared by the workflow and its collaborators:
// the model backend interface, tool descriptors and the error taxonomy.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// BackendErrorKind tells which part of a backend call failed.
type BackendErrorKind string

const (
	KindTransport   BackendErrorKind = "transport"   // network failure, timeout, cancelled call
	KindStatus      BackendErrorKind = "status"      // non-2xx response
	KindDecode      BackendErrorKind = "decode"      // JSON mode output that is not a JSON object
	KindUnavailable BackendErrorKind = "unavailable" // short-circuited before reaching the backend
)

// BackendError is returned by every adapter when a model call fails.
type BackendError struct {
	Provider   string
	Op         string // "generate", "generate_with_tools"
	Kind       BackendErrorKind
	StatusCode int // HTTP status if applicable
	Err        error
}

func (e *BackendError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports a 429 from the backend.
func (e *BackendError) IsRateLimit() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsAuth reports a rejected credential.
func (e *BackendError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsTimeout reports a call that ran out of time.
func (e *BackendError) IsTimeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded) ||
		e.StatusCode == http.StatusGatewayTimeout || e.StatusCode == http.StatusRequestTimeout
}

// WrapBackendError wraps err into a *BackendError. An err that already is one is returned as is.
func WrapBackendError(provider, op string, kind BackendErrorKind, status int, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Provider: provider, Op: op, Kind: kind, StatusCode: status, Err: err}
}

// IsBackendError checks if err is (or wraps) a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// ValidationError indicates that a decoded backend response does not have the
// shape the caller expects.
type ValidationError struct {
	Op       string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid response: %s", e.Op, strings.Join(e.Problems, "; "))
}

// IsValidationError checks if err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ToolExecutionError is a failure inside a tool's bound action.
// The executor renders it as text; it never leaves the tool boundary.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("Error executing %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// ToolValidationError indicates that tool arguments failed JSON schema validation.
type ToolValidationError struct {
	ToolName string
	Errors   []string
}

func (e *ToolValidationError) Error() string {
	return fmt.Sprintf("Error: invalid arguments for %s: %s", e.ToolName, strings.Join(e.Errors, "; "))
}
