// SPDX-License-Identifier: Apache-2.0
package pipeline

import "context"

// HookBehavior runs Before ahead of the continuation and After once it
// returned, whatever the outcome. A Before error aborts without calling next.
type HookBehavior struct {
	ID     string
	Before func(ctx context.Context) error
	After  func(ctx context.Context, result any, err error)
}

// Name implements Behavior.
func (h *HookBehavior) Name() string { return h.ID }

// Handle implements Behavior.
func (h *HookBehavior) Handle(ctx context.Context, next Handler) (any, error) {
	if h.Before != nil {
		if err := h.Before(ctx); err != nil {
			return nil, err
		}
	}
	result, err := next(ctx)
	if h.After != nil {
		h.After(ctx, result, err)
	}
	return result, err
}
