package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the UI. Every kind is terminal
// for the operation that raised it; nothing is retried internally.
type ErrorKind int

const (
	ErrorUnknown ErrorKind = iota
	// ErrorAuth means the user is not (or no longer) authenticated.
	ErrorAuth
	// ErrorRegistration covers device-limit and fingerprint conflicts.
	ErrorRegistration
	// ErrorIssuance means the service rejected a config request.
	ErrorIssuance
	// ErrorNetwork is a transport-level failure talking to a service.
	ErrorNetwork
	// ErrorActivation means the tunnel backend refused or failed to come up.
	ErrorActivation
	// ErrorNoEndpointSelected rejects connect() without a selection.
	ErrorNoEndpointSelected
	// ErrorOperationInProgress rejects a second concurrent operation.
	ErrorOperationInProgress
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorAuth:
		return "auth"
	case ErrorRegistration:
		return "registration"
	case ErrorIssuance:
		return "issuance"
	case ErrorNetwork:
		return "network"
	case ErrorActivation:
		return "activation"
	case ErrorNoEndpointSelected:
		return "no_endpoint_selected"
	case ErrorOperationInProgress:
		return "operation_in_progress"
	default:
		return "unknown"
	}
}

// OpError is a classified operation failure. It wraps the underlying cause
// so callers can still use errors.Is/errors.As on it.
type OpError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *OpError) Unwrap() error { return e.Err }

// NewOpError creates an OpError without an underlying cause.
func NewOpError(kind ErrorKind, format string, args ...any) *OpError {
	return &OpError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapOp wraps err with a kind and message. Returns nil if err is nil.
// If err is already an OpError its kind is preserved.
func WrapOp(kind ErrorKind, err error, msg string) error {
	if err == nil {
		return nil
	}
	var op *OpError
	if errors.As(err, &op) {
		return err
	}
	return &OpError{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the ErrorKind from err, or ErrorUnknown.
func KindOf(err error) ErrorKind {
	var op *OpError
	if errors.As(err, &op) {
		return op.Kind
	}
	return ErrorUnknown
}

// LastError is the UI-facing form of a terminal operation failure.
type LastError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ToLastError converts an error into its UI representation.
// Returns nil for a nil error.
func ToLastError(err error) *LastError {
	if err == nil {
		return nil
	}
	return &LastError{
		Kind:    KindOf(err).String(),
		Message: err.Error(),
	}
}
