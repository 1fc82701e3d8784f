package jira

import (
	"errors"
	"fmt"
)

// Kind classifies every failure a tool call can surface to the host.
type Kind string

const (
	KindUnknownTool Kind = "UnknownTool"

	// Validation kinds are produced locally, before any network call.
	KindMissingParameter Kind = "MissingParameter"
	KindUnknownParameter Kind = "UnknownParameter"
	KindInvalidParameter Kind = "InvalidParameter"

	// Transport kinds.
	KindTimeout          Kind = "Timeout"
	KindConnectionFailed Kind = "ConnectionFailed"
	KindExhausted        Kind = "Exhausted"
	KindCancelled        Kind = "Cancelled"

	// JIRA-domain kinds, derived from the response status.
	KindAuthenticationFailed Kind = "AuthenticationFailed"
	KindNotFound             Kind = "NotFound"
	KindValidationRejected   Kind = "ValidationRejected"
	KindRateLimited          Kind = "RateLimited"
	KindServerFault          Kind = "ServerFault"
	KindUnknown              Kind = "Unknown"
)

// ValidationError reports a bad or missing tool argument.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Field)
}

// TransportError reports a failed HTTP exchange.
type TransportError struct {
	Kind       Kind
	LastStatus int
	Attempts   int
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s after %d attempt(s)", e.Kind, e.Attempts)
	if e.LastStatus != 0 {
		msg += fmt.Sprintf(" (last status %d)", e.LastStatus)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// ToolError is any other classified failure (unknown tool, JIRA-domain errors).
type ToolError struct {
	Kind      Kind
	Status    int
	Message   string
	Retryable bool
}

func (e *ToolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrorInfo is the error half of a ToolResult.
type ErrorInfo struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Status    int    `json:"status,omitempty"`
	Field     string `json:"field,omitempty"`
}

// ToolResult is what the dispatcher hands back for every invocation.
type ToolResult struct {
	Success bool       `json:"success"`
	Payload any        `json:"payload,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// Succeeded wraps a normalized payload.
func Succeeded(payload any) ToolResult {
	return ToolResult{Success: true, Payload: payload}
}

// Failed converts any error into an error result, keeping the kind of typed errors.
func Failed(err error) ToolResult {
	return ToolResult{Error: errorInfo(err)}
}

func errorInfo(err error) *ErrorInfo {
	var (
		ve *ValidationError
		te *TransportError
		oe *ToolError
	)
	switch {
	case errors.As(err, &ve):
		return &ErrorInfo{Kind: ve.Kind, Field: ve.Field, Message: ve.Error()}
	case errors.As(err, &te):
		return &ErrorInfo{Kind: te.Kind, Status: te.LastStatus, Retryable: te.Retryable, Message: te.Error()}
	case errors.As(err, &oe):
		return &ErrorInfo{Kind: oe.Kind, Status: oe.Status, Retryable: oe.Retryable, Message: oe.Message}
	default:
		return &ErrorInfo{Kind: KindUnknown, Message: err.Error()}
	}
}
