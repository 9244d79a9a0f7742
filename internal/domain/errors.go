package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so handlers can pick the user-facing reply
// deterministically instead of inspecting error strings.
type ErrorKind string

const (
	// ErrConfiguration means a required credential or setting is missing.
	// Fatal to the attempted operation, not to the process.
	ErrConfiguration ErrorKind = "CONFIGURATION"
	// ErrGatewayAuth means credential acquisition from the payment gateway
	// failed. Aborts the payment workflow before any state mutation.
	ErrGatewayAuth ErrorKind = "GATEWAY_AUTH"
	// ErrGatewayRequest means payment submission failed in transport or was
	// refused by the gateway. Aborts before conversation mutation.
	ErrGatewayRequest ErrorKind = "GATEWAY_REQUEST"
	// ErrValidation means a malformed command or non-numeric amount.
	// Rejected before any external call.
	ErrValidation ErrorKind = "VALIDATION"
	// ErrDelivery means an outbound chat message failed to send.
	// Conversation state is not rolled back.
	ErrDelivery ErrorKind = "DELIVERY"
	// ErrPersistence means the conversation store is unavailable.
	ErrPersistence ErrorKind = "PERSISTENCE"
	// ErrUnknownCallback means a callback payload that cannot be correlated
	// or reports failure. Acknowledged but ignored.
	ErrUnknownCallback ErrorKind = "UNKNOWN_CALLBACK"
)

// Error is a kind-coded error carried across layer boundaries.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a kind-coded error.
func NewError(kind ErrorKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf extracts the ErrorKind from err, or empty if err is not kind-coded.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
