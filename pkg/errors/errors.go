// SPDX-License-Identifier: Apache-2.0
// Package errors provides the typed error taxonomy shared by the pipeline,
// the skill and action registries, the orchestrator and the agent router.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies kernel errors for propagation, retry and monitoring.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates an unregistered skill, agent or action.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeValidation indicates a skill output kind mismatch or a disallowed model.
	CodeValidation ErrorCode = "VALIDATION_FAILED"

	// CodeTransient indicates a network or timeout class failure eligible for retry.
	CodeTransient ErrorCode = "TRANSIENT_FAILURE"

	// CodeCircuitOpen indicates the downstream is failing and calls are short-circuited.
	CodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"

	// CodeMalformedToolCall indicates an action directive carried unparsable JSON.
	CodeMalformedToolCall ErrorCode = "MALFORMED_TOOL_CALL"

	// CodeCanceled indicates a cooperative abort.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeLLMError indicates a model provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeMemoryError indicates a memory backend error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"

	// CodeTransportError indicates a message transport error.
	CodeTransportError ErrorCode = "TRANSPORT_ERROR"
)

// KernelError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type KernelError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *KernelError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging and error envelopes.
func (e *KernelError) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(struct {
		Code        string                 `json:"code"`
		Message     string                 `json:"message"`
		Err         string                 `json:"error,omitempty"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Attributes  map[string]string      `json:"attributes,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		StatusCode  int                    `json:"statusCode"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Err:         cause,
		Context:     e.Context,
		Attributes:  e.Attributes,
		Recoverable: e.Recoverable,
		StatusCode:  e.StatusCode,
	})
}

// New creates a new KernelError with the given code, message, and cause.
// Transient and timeout errors start out recoverable.
func New(code ErrorCode, msg string, cause error) *KernelError {
	return &KernelError{
		Code:        code,
		Message:     msg,
		Err:         cause,
		Context:     make(map[string]interface{}),
		Attributes:  make(map[string]string),
		Recoverable: code == CodeTransient || code == CodeTimeout,
		StatusCode:  codeToStatusCode(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *KernelError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
func (e *KernelError) WithContext(key string, value interface{}) *KernelError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
func (e *KernelError) WithAttribute(key, value string) *KernelError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be retried.
func (e *KernelError) WithRecoverable(recoverable bool) *KernelError {
	e.Recoverable = recoverable
	return e
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *KernelError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// AsKernelError returns err as a KernelError, wrapping foreign errors.
// Context cancellation is mapped to CodeCanceled and deadlines to CodeTimeout.
func AsKernelError(err error) *KernelError {
	if err == nil {
		return nil
	}
	var ke *KernelError
	if stderrors.As(err, &ke) {
		return ke
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return New(CodeCanceled, "operation canceled", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return New(CodeTimeout, "deadline exceeded", err)
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the code of the first KernelError in the chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsKernelError(err).Code
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var ke *KernelError
		if !stderrors.As(err, &ke) {
			return false
		}
		if ke.Code == code {
			return true
		}
		err = ke.Err
	}
	return false
}

// IsCanceled reports whether err is a cooperative abort.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, context.Canceled) || Is(err, CodeCanceled)
}

// IsTransient reports whether err may be retried.
// Cancellation is never transient, whatever its wrapping says.
func IsTransient(err error) bool {
	if err == nil || IsCanceled(err) {
		return false
	}
	var ke *KernelError
	if !stderrors.As(err, &ke) {
		return false
	}
	switch ke.Code {
	case CodeTransient, CodeTimeout:
		return true
	case CodeNotFound, CodeValidation, CodeCircuitOpen, CodeMalformedToolCall, CodeInvalidInput:
		return false
	}
	return ke.Recoverable
}

// NotFound builds a CodeNotFound error for a named resource.
func NotFound(resource, name string) *KernelError {
	return New(CodeNotFound, fmt.Sprintf("%s %q not found", resource, name), nil).
		WithContext("resource", resource).
		WithContext("name", name)
}

// Canceled reports that the caller's context ended, by cancellation or by
// its own deadline. It is never retried.
func Canceled(cause error) *KernelError {
	return New(CodeCanceled, "operation canceled", cause)
}

// Transient wraps cause as a retryable failure.
func Transient(msg string, cause error) *KernelError {
	return New(CodeTransient, msg, cause)
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput, CodeMalformedToolCall:
		return 400
	case CodeValidation:
		return 422
	case CodeTimeout:
		return 504
	case CodeCanceled:
		return 499
	case CodeCircuitOpen, CodeTransient:
		return 503
	case CodeLLMError, CodeTransportError:
		return 502
	default:
		return 500
	}
}
