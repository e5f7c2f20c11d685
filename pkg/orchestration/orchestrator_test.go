// SPDX-License-Identifier: Apache-2.0
package orchestration

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/actions"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory"
)

type call struct {
	skill string
	input string
}

// scriptedRunner returns the scripted outputs for each skill in order,
// repeating the last one when the script runs out. Skills without a
// script echo their input.
type scriptedRunner struct {
	mu      sync.Mutex
	scripts map[string][]string
	errs    map[string]error
	calls   []call
}

func newRunner(scripts map[string][]string) *scriptedRunner {
	return &scriptedRunner{scripts: scripts, errs: map[string]error{}}
}

func (r *scriptedRunner) ExecuteSkill(_ context.Context, name, input string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{name, input})
	if err := r.errs[name]; err != nil {
		return "", err
	}
	script, ok := r.scripts[name]
	if !ok || len(script) == 0 {
		return input, nil
	}
	out := script[0]
	if len(script) > 1 {
		r.scripts[name] = script[1:]
	}
	return out, nil
}

func (r *scriptedRunner) count(name string) int {
	n := 0
	for _, c := range r.calls {
		if c.skill == name {
			n++
		}
	}
	return n
}

type recordingSink struct {
	mu     sync.Mutex
	events []core.Event
}

func (s *recordingSink) Emit(_ context.Context, e core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) types() []core.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func plainOptions(max int, pattern string) LoopOptions {
	return LoopOptions{MaxIterations: max, TerminationPattern: pattern}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReasonFinalAnswerScenario(t *testing.T) {
	runner := newRunner(map[string][]string{"reasoning": {"final answer"}})
	sink := &recordingSink{}
	o := New(runner, WithEventSink(sink), WithLogger(quietLogger()))

	out, err := o.Reason(context.Background(), "question", plainOptions(1, "final answer"))
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
	assert.Equal(t, 1, runner.count("reasoning"), "expected exactly one iteration")
	assert.Equal(t, []core.EventType{
		core.EventReasoningStart, core.EventReasoningPass, core.EventReasoningOutput, core.EventReasoningFinish,
	}, sink.types())
	assert.Equal(t, "question", sink.events[0].Content, "start event must carry the raw input")
}

func TestReasonStallsOnRepeat(t *testing.T) {
	runner := newRunner(map[string][]string{"reasoning": {"same"}})
	sink := &recordingSink{}
	o := New(runner, WithEventSink(sink), WithLogger(quietLogger()))

	out, err := o.Reason(context.Background(), "q", plainOptions(5, ""))
	require.NoError(t, err)
	assert.Equal(t, "same", out)
	assert.Equal(t, 2, runner.count("reasoning"), "expected stall at the second iteration")
	types := sink.types()
	assert.Equal(t, core.EventReasoningStalled, types[len(types)-1])
}

func TestReasonTerminationChecks(t *testing.T) {
	tests := []struct {
		name    string
		outputs []string
		pattern string
		want    string
		last    core.EventType
		reason  string
	}{
		{"empty output", []string{"  \n"}, "", "  \n", core.EventReasoningFinish, "empty"},
		{"pattern is case-insensitive", []string{"FINAL ANSWER: 42"}, "final answer", "FINAL ANSWER: 42", core.EventReasoningFinish, "pattern"},
		{"default pattern", []string{"step one", "we are done"}, DefaultTerminationPattern, "we are done", core.EventReasoningFinish, "pattern"},
		{"pattern wins over stall", []string{"done", "done"}, "done", "done", core.EventReasoningFinish, "pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newRunner(map[string][]string{"reasoning": tt.outputs})
			sink := &recordingSink{}
			o := New(runner, WithEventSink(sink), WithLogger(quietLogger()))

			out, err := o.Reason(context.Background(), "q", plainOptions(5, tt.pattern))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			last := sink.events[len(sink.events)-1]
			assert.Equal(t, tt.last, last.Type)
			assert.Equal(t, tt.reason, last.Metadata["reason"])
		})
	}
}

func TestReasonMaxIterations(t *testing.T) {
	runner := newRunner(map[string][]string{"reasoning": {"a", "b", "c", "d"}})
	sink := &recordingSink{}
	o := New(runner, WithEventSink(sink), WithLogger(quietLogger()))

	out, err := o.Reason(context.Background(), "q", plainOptions(3, ""))
	require.NoError(t, err)
	assert.Equal(t, "c", out)
	last := sink.events[len(sink.events)-1]
	assert.Equal(t, core.EventReasoningMaxIter, last.Type)
	assert.Equal(t, "c", last.Content)
	// each iteration feeds the previous output back in
	assert.Equal(t, "a", runner.calls[1].input)
	assert.Equal(t, "b", runner.calls[2].input)
}

func TestReasonZeroIterationsReturnsInput(t *testing.T) {
	runner := newRunner(nil)
	sink := &recordingSink{}
	o := New(runner, WithEventSink(sink), WithLogger(quietLogger()))

	out, err := o.Reason(context.Background(), "untouched", plainOptions(0, ""))
	require.NoError(t, err)
	assert.Equal(t, "untouched", out)
	assert.Empty(t, runner.calls)
	assert.Equal(t, []core.EventType{core.EventReasoningStart, core.EventReasoningMaxIter}, sink.types())
}

func TestReasonReflectionAndCorrection(t *testing.T) {
	runner := newRunner(map[string][]string{
		"reasoning":  {"draft"},
		"reflection": {"reflected"},
		"correction": {"corrected final answer"},
	})
	sink := &recordingSink{}
	o := New(runner, WithEventSink(sink), WithLogger(quietLogger()))

	opts := plainOptions(3, "final answer")
	opts.UseReflection, opts.UseCorrection = true, true
	out, err := o.Reason(context.Background(), "q", opts)
	require.NoError(t, err)
	assert.Equal(t, "corrected final answer", out)
	assert.Equal(t, []call{{"reasoning", "q"}, {"reflection", "draft"}, {"correction", "reflected"}}, runner.calls)
	assert.Equal(t, []core.EventType{
		core.EventReasoningStart, core.EventReasoningPass, core.EventReasoningOutput,
		core.EventReflection, core.EventCorrection, core.EventReasoningFinish,
	}, sink.types())
}

type stubMemory struct {
	records []memory.Record
	err     error
	queries []string
}

func (m *stubMemory) Search(_ context.Context, query string, limit int) ([]memory.Record, error) {
	m.queries = append(m.queries, query)
	if limit != MemoryMatches {
		return nil, fmt.Errorf("unexpected limit %d", limit)
	}
	return m.records, m.err
}

func TestReasonMemoryAugmentation(t *testing.T) {
	tests := []struct {
		name string
		mem  *stubMemory
		want string
	}{
		{
			"records found",
			&stubMemory{records: []memory.Record{{Content: "fact one"}, {Content: "fact two"}}},
			"Context:\nfact one\nfact two\n\nUser Input:\nquestion",
		},
		{"no records", &stubMemory{}, "question"},
		{"blank records", &stubMemory{records: []memory.Record{{Content: "  "}}}, "question"},
		{"backend failure", &stubMemory{err: stderrors.New("down")}, "question"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newRunner(map[string][]string{"reasoning": {"final answer"}})
			o := New(runner, WithMemory(tt.mem), WithLogger(quietLogger()))

			opts := plainOptions(1, "final answer")
			opts.UseMemory = true
			_, err := o.Reason(context.Background(), "question", opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, runner.calls[0].input)
			assert.Equal(t, []string{"question"}, tt.mem.queries)
		})
	}
}

func TestReasonMemoryDisabled(t *testing.T) {
	mem := &stubMemory{records: []memory.Record{{Content: "fact"}}}
	runner := newRunner(map[string][]string{"reasoning": {"final answer"}})
	o := New(runner, WithMemory(mem), WithLogger(quietLogger()))

	_, err := o.Reason(context.Background(), "q", plainOptions(1, "final answer"))
	require.NoError(t, err)
	assert.Empty(t, mem.queries, "memory must not be queried when UseMemory is false")
}

func TestReasonToolInterception(t *testing.T) {
	reg := actions.NewRegistry()
	var seen actions.Context
	require.NoError(t, reg.Register(actions.NewFunc("lookup", "looks things up", nil, func(_ context.Context, ac actions.Context) (any, error) {
		seen = ac
		return "final answer: " + ac.Argument("q"), nil
	})))

	runner := newRunner(map[string][]string{"reasoning": {`Let me check. <Action name="Lookup">{"q":"uptime"}</Action>`}})
	sink := &recordingSink{}
	o := New(runner,
		WithToolInterceptor(actions.NewPlanner(reg, quietLogger())),
		WithEventSink(sink),
		WithLogger(quietLogger()),
	)

	out, err := o.Reason(context.Background(), "q", plainOptions(2, "final answer"))
	require.NoError(t, err)
	assert.Equal(t, "final answer: uptime", out, "action result replaces the output")
	assert.Equal(t, []core.EventType{
		core.EventReasoningStart, core.EventReasoningPass, core.EventReasoningOutput,
		core.EventActionExecuted, core.EventReasoningFinish,
	}, sink.types())
	assert.NotEmpty(t, seen.CorrelationID)
	assert.Equal(t, sink.events[0].RunID, seen.CorrelationID, "run id is the tool correlation id")
	assert.Equal(t, actions.CallerLLM, seen.CallingAgent)
}

func TestReasonMalformedDirectiveAborts(t *testing.T) {
	runner := newRunner(map[string][]string{"reasoning": {`<Action name="x">{not json}</Action>`}})
	o := New(runner, WithToolInterceptor(actions.NewPlanner(actions.NewRegistry(), quietLogger())), WithLogger(quietLogger()))

	_, err := o.Reason(context.Background(), "q", plainOptions(3, ""))
	assert.True(t, errors.Is(err, errors.CodeMalformedToolCall), "got %v", err)
}

func TestReasonSkillFailureAborts(t *testing.T) {
	runner := newRunner(nil)
	runner.errs["reasoning"] = errors.New(errors.CodeCircuitOpen, "open", nil)
	sink := &recordingSink{}
	o := New(runner, WithEventSink(sink), WithLogger(quietLogger()))

	_, err := o.Reason(context.Background(), "q", plainOptions(3, ""))
	assert.True(t, errors.Is(err, errors.CodeCircuitOpen), "got %v", err)
	for _, typ := range sink.types() {
		assert.False(t, typ.Terminal(), "failed run must not emit terminal event %s", typ)
	}
}

func TestReasonCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := newRunner(nil)
	o := New(runner, WithLogger(quietLogger()))

	_, err := o.Reason(ctx, "q", plainOptions(3, ""))
	assert.True(t, errors.IsCanceled(err), "got %v", err)
	assert.Empty(t, runner.calls, "no skill may run after cancellation")
}

func TestReasonCallerDeadlineIsCanceled(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	runner := newRunner(nil)
	o := New(runner, WithLogger(quietLogger()))

	_, err := o.Reason(ctx, "q", plainOptions(3, ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeCanceled), "got %v", err)
	assert.False(t, errors.Is(err, errors.CodeTimeout))
	assert.False(t, errors.IsTransient(err))
	assert.Empty(t, runner.calls)
}

func TestReasonInvalidOptions(t *testing.T) {
	o := New(newRunner(nil), WithLogger(quietLogger()))
	tests := []LoopOptions{
		{MaxIterations: 1, TerminationPattern: "("},
		{MaxIterations: -1},
	}
	for _, opts := range tests {
		_, err := o.Reason(context.Background(), "q", opts)
		assert.True(t, errors.Is(err, errors.CodeInvalidInput), "options %+v: got %v", opts, err)
	}
}

func TestReasonSinkFailureIsNotFatal(t *testing.T) {
	failing := core.EventSinkFunc(func(context.Context, core.Event) error { return stderrors.New("bus down") })
	runner := newRunner(map[string][]string{"reasoning": {"final answer"}})
	o := New(runner, WithEventSink(failing), WithLogger(quietLogger()))

	out, err := o.Reason(context.Background(), "q", plainOptions(1, "final answer"))
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
}

func TestPlanExecute(t *testing.T) {
	runner := newRunner(map[string][]string{
		"planning":      {"1. check\n2. fix"},
		"reasoning":     {"fixed, final answer"},
		"summarization": {"summary"},
	})
	sink := &recordingSink{}
	o := New(runner, WithEventSink(sink), WithLogger(quietLogger()))

	out, err := o.PlanExecute(context.Background(), "restore service", plainOptions(3, "final answer"))
	require.NoError(t, err)
	assert.Equal(t, "summary", out)
	assert.Equal(t, []call{
		{"planning", "restore service"},
		{"reasoning", "1. check\n2. fix"},
		{"summarization", "fixed, final answer"},
	}, runner.calls)
	assert.Equal(t, []core.EventType{
		core.EventPlanning, core.EventReasoningStart, core.EventReasoningPass,
		core.EventReasoningOutput, core.EventReasoningFinish, core.EventSummarization,
	}, sink.types())
	runID := sink.events[0].RunID
	require.NotEmpty(t, runID)
	for _, e := range sink.events {
		assert.Equal(t, runID, e.RunID, "every stage shares the run id")
	}
}

func TestConcurrentRunsGetDistinctRunIDs(t *testing.T) {
	sink := &recordingSink{}
	o := New(newRunner(map[string][]string{"reasoning": {"final answer"}}), WithEventSink(sink), WithLogger(quietLogger()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = o.Reason(context.Background(), "q", plainOptions(1, "final answer"))
		}()
	}
	wg.Wait()

	runs := map[string]bool{}
	for _, e := range sink.events {
		runs[e.RunID] = true
	}
	assert.Len(t, runs, 4)
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	failing := core.EventSinkFunc(func(context.Context, core.Event) error { return stderrors.New("boom") })
	sink := MultiSink{a, failing, nil, b}

	err := sink.Emit(context.Background(), core.Event{Type: core.EventPlanning})
	assert.Error(t, err, "expected joined error")
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}
