// SPDX-License-Identifier: Apache-2.0
package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// ClassifyStatus maps an HTTP status returned by a model API to a kernel
// error: throttling, request timeouts and server errors are transient,
// everything else is a plain LLM error.
func ClassifyStatus(provider string, status int, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("status %d", status)
	}
	var ke *errors.KernelError
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= 500:
		ke = errors.Transient(provider+" api unavailable", cause)
	default:
		ke = errors.New(errors.CodeLLMError, provider+" api rejected the request", cause)
	}
	return ke.WithContext("provider", provider).WithContext("status", status)
}

// ClassifyTransport maps a failure that happened before any HTTP status
// was received. Cancellation passes through untouched.
func ClassifyTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.Transient(provider+" api unreachable", err).WithContext("provider", provider)
	}
	return errors.New(errors.CodeLLMError, provider+" call failed", err).
		WithContext("provider", provider).
		WithRecoverable(true)
}
