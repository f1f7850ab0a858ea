// Package errors implements error management for ChatWire. It defines the
// failure taxonomy shared by the session core and prepares human-readable
// presentations for the UI: connection-level failures are recovered locally
// (retried) up to the reconnect ceiling, message-level failures are surfaced
// inline on the affected message only.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors forming the client failure taxonomy
var (
	// ErrInvalidAddress marks a malformed connection target. Fatal to the
	// connect attempt, never retried.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNotReady marks a send attempted while the session is not in a ready
	// state. Rejected synchronously.
	ErrNotReady = errors.New("session not ready")

	// ErrEncodingFailure marks a local serialization problem. Fatal for that
	// call only, not a connection failure.
	ErrEncodingFailure = errors.New("encoding failure")

	// ErrAuthenticationFailed marks a terminal credential rejection. Requires
	// an explicit reconnect with corrected credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrMaxReconnectAttempts marks reconnection giving up after the attempt
	// ceiling. The user must re-initiate the connection manually.
	ErrMaxReconnectAttempts = errors.New("max reconnect attempts exceeded")
)

// TransportError wraps a connection-level failure from the socket. It triggers
// the reconnection policy unless the session is manually disconnecting.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a connection-level failure observed during op
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err is a connection-level failure
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ProcessedError represents a failure that has been prepared for display,
// decoupling the raw error from the UI's representation.
type ProcessedError struct {
	Timestamp time.Time
	Message   string
	Terminal  bool
}

// Process transforms a raw session error into a structured ProcessedError for
// the UI model to use.
func Process(err error) *ProcessedError {
	if err == nil {
		return nil
	}

	processed := &ProcessedError{
		Timestamp: time.Now(),
		Message:   err.Error(),
	}

	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		processed.Message = "Authentication failed: check the profile token and reconnect"
		processed.Terminal = true
	case errors.Is(err, ErrMaxReconnectAttempts):
		processed.Message = "Connection lost and could not be re-established; reconnect manually"
		processed.Terminal = true
	case errors.Is(err, ErrInvalidAddress):
		processed.Message = fmt.Sprintf("Invalid connection target: %v", err)
		processed.Terminal = true
	case errors.Is(err, ErrNotReady):
		processed.Message = "Not connected; the message was not sent"
	case IsTransport(err):
		processed.Message = fmt.Sprintf("Connection trouble: %v (retrying)", err)
	}

	return processed
}
