// SPDX-License-Identifier: Apache-2.0
package llm

import (
	"context"
	"log/slog"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/resilience"
)

// FallbackProvider tries secondaries in order when the primary fails.
// Cancellation is never masked.
type FallbackProvider struct {
	Primary     Provider
	Secondaries []Provider
	Logger      *slog.Logger
}

// Chat implements Provider.
func (f *FallbackProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fallbacks := make([]resilience.Fallback[*ChatResponse], 0, len(f.Secondaries))
	for i, p := range f.Secondaries {
		idx, provider := i, p
		fallbacks = append(fallbacks, func(ctx context.Context, primaryErr error) (*ChatResponse, error) {
			logger.WarnContext(ctx, "llm.fallback",
				slog.Int("fallback", idx),
				slog.String("cause", primaryErr.Error()),
			)
			return provider.Chat(ctx, req)
		})
	}
	return resilience.WithFallback(ctx, func(ctx context.Context) (*ChatResponse, error) {
		return f.Primary.Chat(ctx, req)
	}, fallbacks...)
}
