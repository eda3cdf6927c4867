// Package apperrors defines the typed error envelope returned across the
// RPC tool layer.
package apperrors

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Code is a stable numeric error code, preserved across transports.
type Code int

const (
	_ Code = iota

	// Context errors.
	ContextNotFound
	ContextTooLarge
	ContextInvalidID
	ContextAlreadyExists

	// Session errors.
	SessionNotFound
	SessionExpired
	SessionMaxReached
	SessionMemoryExceeded

	// Execution errors.
	ExecutionTimeout
	ExecutionFailed
	ExecutionInvalidCode
	ExecutionSandboxError

	// Search errors.
	SearchInvalidRegex
	SearchRegexTimeout
	SearchReDoSDetected

	// Resource errors.
	ResourceMemoryLimit
	ResourceVariableLimit
	ResourceChunkLimit
	ResourceOutputLimit
	ResourceRateLimited

	// Validation errors.
	ValidationInvalidInput
	ValidationMissingField
	ValidationOutOfRange

	// System errors.
	SystemInternal
	SystemNotImplemented
)

var names = map[Code]string{
	ContextNotFound:       "CONTEXT_NOT_FOUND",
	ContextTooLarge:       "CONTEXT_TOO_LARGE",
	ContextInvalidID:      "CONTEXT_INVALID_ID",
	ContextAlreadyExists:  "CONTEXT_ALREADY_EXISTS",
	SessionNotFound:       "SESSION_NOT_FOUND",
	SessionExpired:        "SESSION_EXPIRED",
	SessionMaxReached:     "SESSION_MAX_REACHED",
	SessionMemoryExceeded: "SESSION_MEMORY_EXCEEDED",
	ExecutionTimeout:      "EXECUTION_TIMEOUT",
	ExecutionFailed:       "EXECUTION_FAILED",
	ExecutionInvalidCode:  "EXECUTION_INVALID_CODE",
	ExecutionSandboxError: "EXECUTION_SANDBOX_ERROR",
	SearchInvalidRegex:    "INVALID_REGEX",
	SearchRegexTimeout:    "REGEX_TIMEOUT",
	SearchReDoSDetected:   "REDOS_DETECTED",
	ResourceMemoryLimit:   "MEMORY_LIMIT",
	ResourceVariableLimit: "VARIABLE_LIMIT_EXCEEDED",
	ResourceChunkLimit:    "CHUNK_LIMIT_EXCEEDED",
	ResourceOutputLimit:   "OUTPUT_LIMIT",
	ResourceRateLimited:   "RATE_LIMITED",
	ValidationInvalidInput:  "INVALID_INPUT",
	ValidationMissingField:  "MISSING_FIELD",
	ValidationOutOfRange:    "OUT_OF_RANGE",
	SystemInternal:          "INTERNAL",
	SystemNotImplemented:    "NOT_IMPLEMENTED",
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// Error is the typed value every core component returns on failure. It
// never carries process state or filesystem paths in Message/Details.
type Error struct {
	Code      Code                   `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	TraceID   string                 `json:"traceId,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Timestamp: time.Now().UTC()}
}

// Newf builds an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a lower-level cause, preserving it for %+v stack-trace
// logging via github.com/pkg/errors while keeping the typed envelope that
// crosses the RPC boundary.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		cause:     errors.WithStack(cause),
	}
}

// WithDetails attaches a details object naming the offending field(s).
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithTraceID stamps a trace identifier for correlation across logs.
func (e *Error) WithTraceID(id string) *Error {
	e.TraceID = id
	return e
}

// Envelope is the wire shape from spec: {error:true, code, message,
// details?, timestamp, traceId?}.
type Envelope struct {
	Error     bool                   `json:"error"`
	Code      int                    `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	TraceID   string                 `json:"traceId,omitempty"`
}

// ToEnvelope renders an *Error into the wire envelope. A nil/non-Error
// input is mapped to SystemInternal to avoid leaking the original error's
// text verbatim.
func ToEnvelope(err error) Envelope {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		e = New(SystemInternal, "internal error")
	}
	return Envelope{
		Error:     true,
		Code:      int(e.Code),
		Message:   e.Message,
		Details:   e.Details,
		Timestamp: e.Timestamp,
		TraceID:   e.TraceID,
	}
}

// Is reports whether err is an *Error carrying the given code.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
