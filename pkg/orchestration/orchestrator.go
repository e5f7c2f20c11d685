// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestration drives the iterative reason, act, reflect and
// correct loop against the skill kernel, and the plan-execute-summarize
// flow built on top of it.
package orchestration

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Skill names the loop depends on.
const (
	SkillReasoning     = "reasoning"
	SkillReflection    = "reflection"
	SkillCorrection    = "correction"
	SkillPlanning      = "planning"
	SkillSummarization = "summarization"
)

// SkillRunner executes a skill on text and returns its text output.
type SkillRunner interface {
	ExecuteSkill(ctx context.Context, name, input string) (string, error)
}

// ToolInterceptor replaces model output containing a tool directive with
// the tool's result. Output without a directive is returned unchanged.
type ToolInterceptor interface {
	Process(ctx context.Context, text, correlationID string) (string, error)
}

// MemorySearcher retrieves records similar to a query.
type MemorySearcher interface {
	Search(ctx context.Context, query string, limit int) ([]memory.Record, error)
}

// Orchestrator drives reasoning loops. It holds no per-run state, so one
// instance serves concurrent runs.
type Orchestrator struct {
	skills SkillRunner
	tools  ToolInterceptor
	memory MemorySearcher
	sink   core.EventSink
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithToolInterceptor enables tool directive interception.
func WithToolInterceptor(t ToolInterceptor) Option {
	return func(o *Orchestrator) { o.tools = t }
}

// WithMemory enables memory augmentation for runs with UseMemory set.
func WithMemory(m MemorySearcher) Option {
	return func(o *Orchestrator) { o.memory = m }
}

// WithEventSink sets where lifecycle events go.
func WithEventSink(s core.EventSink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an orchestrator running skills through runner.
func New(runner SkillRunner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		skills: runner,
		sink:   core.NoopEventSink{},
		logger: slog.Default(),
		tracer: otel.Tracer("archena/orchestration"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reason runs the reasoning loop on input under a fresh run id.
func (o *Orchestrator) Reason(ctx context.Context, input string, opts LoopOptions) (string, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Reason")
	defer span.End()

	ctx = o.startRun(ctx, span, opts)
	out, err := o.loop(ctx, input, opts)
	endSpan(span, err)
	return out, err
}

// PlanExecute plans with the planning skill, runs the reasoning loop on
// the plan and summarizes the result. All three stages share one run id.
func (o *Orchestrator) PlanExecute(ctx context.Context, input string, opts LoopOptions) (string, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.PlanExecute")
	defer span.End()

	ctx = o.startRun(ctx, span, opts)
	out, err := o.planExecute(ctx, input, opts)
	endSpan(span, err)
	return out, err
}

// startRun assigns a fresh run id and describes the run on span.
func (o *Orchestrator) startRun(ctx context.Context, span trace.Span, opts LoopOptions) context.Context {
	runID := core.NewID()
	correlationID, _ := core.CorrelationID(ctx)
	span.SetAttributes(telemetry.RunAttributes(runID, correlationID, opts.MaxIterations, opts.UseMemory)...)
	return core.WithRunID(ctx, runID)
}

func (o *Orchestrator) planExecute(ctx context.Context, input string, opts LoopOptions) (string, error) {
	if _, err := opts.compile(); err != nil {
		return "", err
	}
	plan, err := o.skills.ExecuteSkill(ctx, SkillPlanning, input)
	if err != nil {
		return "", err
	}
	o.emit(ctx, core.EventPlanning, 0, plan)

	result, err := o.loop(ctx, plan, opts)
	if err != nil {
		return "", err
	}

	summary, err := o.skills.ExecuteSkill(ctx, SkillSummarization, result)
	if err != nil {
		return "", err
	}
	o.emit(ctx, core.EventSummarization, 0, summary)
	return summary, nil
}

func (o *Orchestrator) loop(ctx context.Context, input string, opts LoopOptions) (string, error) {
	termination, err := opts.compile()
	if err != nil {
		return "", err
	}
	runID, _ := core.RunID(ctx)
	logger := o.logger.With(slog.String("run_id", runID))

	current := input
	var last string
	var haveLast bool

	logger.Info("orchestrator.start", slog.Int("max_iterations", opts.MaxIterations))
	o.emit(ctx, core.EventReasoningStart, 0, current)

	for i := 1; i <= opts.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", errors.Canceled(err)
		}

		if opts.UseMemory {
			augmented, err := o.augment(ctx, logger, current)
			if err != nil {
				return "", err
			}
			current = augmented
		}
		o.emit(ctx, core.EventReasoningPass, i, current)

		output, err := o.skills.ExecuteSkill(ctx, SkillReasoning, current)
		if err != nil {
			return "", err
		}
		o.emit(ctx, core.EventReasoningOutput, i, output)

		if o.tools != nil {
			replaced, err := o.tools.Process(ctx, output, runID)
			if err != nil {
				return "", err
			}
			if replaced != output {
				output = replaced
				o.emit(ctx, core.EventActionExecuted, i, output)
			}
		}

		if opts.UseReflection {
			if output, err = o.skills.ExecuteSkill(ctx, SkillReflection, output); err != nil {
				return "", err
			}
			o.emit(ctx, core.EventReflection, i, output)
		}
		if opts.UseCorrection {
			if output, err = o.skills.ExecuteSkill(ctx, SkillCorrection, output); err != nil {
				return "", err
			}
			o.emit(ctx, core.EventCorrection, i, output)
		}

		logger.Debug("orchestrator.iteration", slog.Int("iteration", i), slog.Int("output_len", len(output)))

		if reason, done := terminated(output, termination); done {
			logger.Info("orchestrator.finish", slog.Int("iteration", i), slog.String("reason", reason))
			o.emitMeta(ctx, core.EventReasoningFinish, i, output, map[string]string{"reason": reason})
			return output, nil
		}
		if haveLast && output == last {
			logger.Info("orchestrator.stalled", slog.Int("iteration", i))
			o.emit(ctx, core.EventReasoningStalled, i, output)
			return output, nil
		}

		last, haveLast = output, true
		current = output
	}

	result := input
	if haveLast {
		result = last
	}
	logger.Warn("orchestrator.max_iterations", slog.Int("max_iterations", opts.MaxIterations))
	o.emit(ctx, core.EventReasoningMaxIter, opts.MaxIterations, result)
	return result, nil
}

// augment wraps current with the top memory matches. Memory is best
// effort: a failing backend is logged and the loop continues without it.
func (o *Orchestrator) augment(ctx context.Context, logger *slog.Logger, current string) (string, error) {
	if o.memory == nil {
		return current, nil
	}
	records, err := o.memory.Search(ctx, current, MemoryMatches)
	if err != nil {
		if errors.IsCanceled(err) {
			return "", err
		}
		logger.Warn("orchestrator.memory.failed", slog.String("error", err.Error()))
		return current, nil
	}
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, r.Content)
	}
	joined := strings.Join(parts, "\n")
	if strings.TrimSpace(joined) == "" {
		return current, nil
	}
	return "Context:\n" + joined + "\n\nUser Input:\n" + current, nil
}

// terminated applies the clean-termination checks in order.
func terminated(output string, pattern *regexp.Regexp) (string, bool) {
	if strings.TrimSpace(output) == "" {
		return "empty", true
	}
	if pattern != nil && pattern.MatchString(output) {
		return "pattern", true
	}
	return "", false
}

func (o *Orchestrator) emit(ctx context.Context, t core.EventType, iteration int, content string) {
	o.emitMeta(ctx, t, iteration, content, nil)
}

// emitMeta never fails the run: sink errors are logged.
func (o *Orchestrator) emitMeta(ctx context.Context, t core.EventType, iteration int, content string, meta map[string]string) {
	ev := core.NewEvent(ctx, t, content)
	ev.Iteration = iteration
	ev.Metadata = meta
	trace.SpanFromContext(ctx).AddEvent(string(t), trace.WithAttributes(attribute.Int(telemetry.AttrIteration, iteration)))
	if err := o.sink.Emit(ctx, ev); err != nil {
		o.logger.Warn("orchestrator.event.failed",
			slog.String("type", string(t)),
			slog.String("run_id", ev.RunID),
			slog.String("error", err.Error()),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if ke := errors.AsKernelError(err); ke != nil {
		span.SetAttributes(attribute.String("error.code", string(ke.Code)))
	}
}
