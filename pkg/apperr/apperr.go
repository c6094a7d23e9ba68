// Copyright 2025 Certen Protocol
//
// Structured Error Model (L3)
// Grounded on the teacher's pkg/ledger/errors.go: sentinel-style errors
// wrapped with %w and rendered with human-readable context, generalized
// here into the spec's {code, message, fields} shape so it serializes into
// the response envelope's error field.

package apperr

import (
	"fmt"
	"strings"
)

// Error is a structured application error: a numeric code, a message
// template with {name} placeholders, and a map of named arguments
// substituted into the template when rendered.
type Error struct {
	Code    int32
	Message string
	Fields  map[string]string
}

// Error implements the stdlib error interface by rendering Message with
// Fields substituted, so Error composes with %w wrapping and errors.As.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Fields) == 0 {
		return e.Message
	}

	msg := e.Message
	for name, value := range e.Fields {
		msg = strings.ReplaceAll(msg, "{"+name+"}", value)
	}
	return msg
}

// WithField returns a copy of e with an additional named argument. It never
// mutates the receiver, so well-known sentinel errors can be reused safely.
func (e *Error) WithField(name, value string) *Error {
	fields := make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[name] = value
	return &Error{Code: e.Code, Message: e.Message, Fields: fields}
}

// WithFields returns a copy of e with several additional named arguments.
func (e *Error) WithFields(fields map[string]string) *Error {
	merged := make(map[string]string, len(e.Fields)+len(fields))
	for k, v := range e.Fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Error{Code: e.Code, Message: e.Message, Fields: merged}
}

// New constructs an ad-hoc application error, used by module handlers for
// codes that don't warrant a package-level sentinel (e.g. one-off
// validation messages with dynamic text).
func New(code int32, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Well-known envelope-level and authorization codes from spec §4.3/§7.
// Negative codes are reserved/system; positive codes are application
// (module) specific and defined alongside each module.
var (
	ErrGeneric               = &Error{Code: -1, Message: "generic error"}
	ErrUnauthenticated       = &Error{Code: -2, Message: "unauthenticated"}
	ErrInvalidFrom           = &Error{Code: -3, Message: "invalid from address"}
	ErrMethodNotFound        = &Error{Code: -4, Message: "method not found: {method}"}
	ErrAnonymousNotAllowed   = &Error{Code: -5, Message: "anonymous sender not allowed for method {method}"}
	ErrTimestampOutOfWindow  = &Error{Code: -6, Message: "timestamp out of window"}
	ErrDuplicateEnvelope     = &Error{Code: -7, Message: "duplicate envelope"}
	ErrMissingPermission     = &Error{Code: -8, Message: "missing permission: role {role} required"}
	ErrUnauthorizedSender    = &Error{Code: -9, Message: "unauthorized-token-sender"}
	ErrInvalidOwner          = &Error{Code: -10, Message: "invalid owner"}
	ErrMalformedArgument     = &Error{Code: -11, Message: "malformed argument: {name}"}
	ErrOutOfRange            = &Error{Code: -12, Message: "value out of range: {name}"}
	ErrEmptyDistribution     = &Error{Code: -13, Message: "empty distribution"}
	ErrOverMaximumSupply     = &Error{Code: -14, Message: "over-maximum"}
	ErrSubresourcesExhausted = &Error{Code: -15, Message: "subresources-exhausted"}
	ErrImmutableToken        = &Error{Code: -16, Message: "immutable-token"}
	ErrPartialBurnDisabled   = &Error{Code: -17, Message: "partial-burn-disabled"}
	ErrUnableToDisableKey    = &Error{Code: -18, Message: "unable-to-disable-empty-key"}
	ErrMultisigTerminal      = &Error{Code: -19, Message: "multisig-terminal"}
	ErrMultisigNotReady      = &Error{Code: -21, Message: "multisig-not-ready"}
	// ErrInsufficientFunds always carries the post-migration code
	// internally; the dispatcher downgrades it to -1 when the
	// legacy-insufficient-funds-code migration is inactive (§4.12).
	ErrInsufficientFunds = &Error{Code: -20003, Message: "insufficient funds"}
)

// IsFatal reports whether an error represents a fatal internal condition
// (store I/O failure, invariant violation at commit) that must abort the
// whole block rather than be serialized to a client. Fatal errors are
// plain Go errors, never *Error, which is reserved for client-facing
// taxonomy per §7.
func IsFatal(err error) bool {
	_, ok := err.(*Error)
	return err != nil && !ok
}
