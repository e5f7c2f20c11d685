// SPDX-License-Identifier: Apache-2.0
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// CLIError wraps KernelError with a hint for the operator.
type CLIError struct {
	*errors.KernelError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(ke *errors.KernelError, hint string) *CLIError {
	return &CLIError{KernelError: ke, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.KernelError == nil {
		return "unknown error"
	}
	msg := e.KernelError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the kernel error to errors.As.
func (e *CLIError) Unwrap() error { return e.KernelError }

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	ke := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath)

	hint := "check the ARCHENA_ environment variables and --set overrides"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(ke, hint)
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	ke := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg)
	return NewCLIError(ke, "run 'archena --help' for usage information")
}

// NewNotFoundError creates a not found error with CLI hints.
func NewNotFoundError(resource, name string) *CLIError {
	ke := errors.NotFound(resource, name)
	return NewCLIError(ke, fmt.Sprintf("run 'archena %ss' to list what is registered", resource))
}

// NewAgentError reports an error envelope returned by an agent.
func NewAgentError(agent, code, message string) *CLIError {
	if code == "" {
		code = string(errors.CodeInternal)
	}
	ke := errors.New(errors.ErrorCode(code), message, nil).WithContext("agent", agent)
	hint := ""
	if ke.Recoverable {
		hint = "this may be a transient error; try again later"
	}
	return NewCLIError(ke, hint)
}

// PrintError writes err to stderr, as JSON when asJSON is set.
func PrintError(err error, asJSON bool) {
	printError(os.Stderr, err, asJSON)
}

func printError(w io.Writer, err error, asJSON bool) {
	var hint string
	ke := errors.AsKernelError(err)
	if ce, ok := err.(*CLIError); ok {
		hint = ce.Hint
	}

	if asJSON {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{
			"code":    string(ke.Code),
			"message": ke.Message,
			"hint":    hint,
		}})
		return
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", ke.Code, ke.Message)
	if ke.Err != nil {
		fmt.Fprintf(w, "  Cause: %s\n", ke.Err)
	}
	if hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", hint)
	}
}
