package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider-stack failure.
type ErrorKind string

const (
	// KindConnection covers DNS failures, refused connections, and other
	// transport-level errors before an HTTP status was received.
	KindConnection ErrorKind = "connection"
	// KindTimeout means the operation exceeded its timeout budget or was
	// cancelled by the caller.
	KindTimeout ErrorKind = "timeout"
	// KindHTTP is a non-2xx response; Status carries the code and Message
	// the best-effort extracted vendor error.
	KindHTTP ErrorKind = "http"
	// KindEmptyResult marks a 2xx model listing that produced zero usable
	// models. It is a soft failure: the result still reports ok.
	KindEmptyResult ErrorKind = "empty_result"
	// KindMalformedPayload marks vendor payloads that could not be parsed.
	// Unparsable tool-call arguments are recovered locally and never
	// surface with this kind.
	KindMalformedPayload ErrorKind = "malformed_payload"
	// KindConfiguration marks caller mistakes: unregistered provider ids,
	// no active provider, a model absent from the discovered set.
	KindConfiguration ErrorKind = "configuration"
)

// Error is the structured error used across the provider stack. Transport
// failures are embedded in results rather than panicking through the public
// methods; configuration errors are returned directly.
type Error struct {
	Kind     ErrorKind `json:"kind"`
	Status   int       `json:"status,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Message  string    `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Provider != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	case e.Provider != "":
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// NewConnectionError creates an Error for network-level failures.
func NewConnectionError(provider, message string) *Error {
	return &Error{Kind: KindConnection, Provider: provider, Message: message}
}

// NewTimeoutError creates an Error for exceeded timeout budgets and
// caller cancellation.
func NewTimeoutError(provider, message string) *Error {
	return &Error{Kind: KindTimeout, Provider: provider, Message: message}
}

// NewHTTPError creates an Error for a non-2xx vendor response.
func NewHTTPError(provider string, status int, message string) *Error {
	return &Error{Kind: KindHTTP, Status: status, Provider: provider, Message: message}
}

// NewEmptyResultError creates the soft error attached to a successful
// listing that produced zero usable models.
func NewEmptyResultError(provider, message string) *Error {
	return &Error{Kind: KindEmptyResult, Provider: provider, Message: message}
}

// NewMalformedPayloadError creates an Error for unparsable vendor payloads.
func NewMalformedPayloadError(provider, message string) *Error {
	return &Error{Kind: KindMalformedPayload, Provider: provider, Message: message}
}

// NewConfigurationError creates an Error for caller and setup mistakes.
func NewConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// KindOf returns the ErrorKind of err if it is or wraps an *Error, and ""
// otherwise.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
