// SPDX-License-Identifier: Apache-2.0
package orchestration

import (
	"context"
	stderrors "errors"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
)

// MultiSink fans an event out to every sink in order. All sinks are
// attempted; their errors are joined.
type MultiSink []core.EventSink

// Emit implements core.EventSink.
func (m MultiSink) Emit(ctx context.Context, event core.Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
