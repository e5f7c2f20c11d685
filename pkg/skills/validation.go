// SPDX-License-Identifier: Apache-2.0
package skills

import (
	"context"
	"log/slog"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/pipeline"
)

// ValidationBehavior checks skill results against the producing skill's
// descriptor: the output kind must match and the model in use must be
// allowed. Non-skill operations pass through untouched.
type ValidationBehavior struct {
	registry *Registry
	model    string
	logger   *slog.Logger
}

var _ pipeline.Behavior = (*ValidationBehavior)(nil)

// NewValidationBehavior creates the behavior. model is the model the kernel
// is configured with; empty disables the allow-list check.
func NewValidationBehavior(registry *Registry, model string, logger *slog.Logger) *ValidationBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationBehavior{registry: registry, model: model, logger: logger}
}

// Name implements pipeline.Behavior.
func (b *ValidationBehavior) Name() string { return "validation" }

// Handle implements pipeline.Behavior.
func (b *ValidationBehavior) Handle(ctx context.Context, next pipeline.Handler) (any, error) {
	out, err := next(ctx)
	if err != nil {
		return out, err
	}
	res, ok := out.(Result)
	if !ok {
		return out, nil
	}

	name := res.SkillName()
	desc, found := b.registry.Descriptor(name)
	if !found {
		b.logger.ErrorContext(ctx, "skills.validation.unknown_skill", slog.String("skill", name))
		return nil, errors.New(errors.CodeValidation, "skill registry mismatch", nil).
			WithContext("skill", name)
	}

	if res.OK() && res.Output() != nil && !desc.OutputKind.Accepts(res.Output().Kind()) {
		b.logger.ErrorContext(ctx, "skills.validation.output_kind",
			slog.String("skill", desc.Name),
			slog.String("returned", string(res.Output().Kind())),
			slog.String("expected", string(desc.OutputKind)),
		)
		return nil, errors.Newf(errors.CodeValidation, "skill %q returned incorrect output kind", desc.Name).
			WithContext("returned", string(res.Output().Kind())).
			WithContext("expected", string(desc.OutputKind))
	}

	if !desc.AllowsModel(b.model) {
		b.logger.ErrorContext(ctx, "skills.validation.model_not_allowed",
			slog.String("skill", desc.Name),
			slog.String("model", b.model),
		)
		return nil, errors.Newf(errors.CodeValidation, "model %q is not allowed for skill %q", b.model, desc.Name)
	}
	return res, nil
}
