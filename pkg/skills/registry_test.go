// SPDX-License-Identifier: Apache-2.0
package skills

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/pipeline"
)

func echoSkill(name string, prefix string) Skill {
	return NewFunc(Descriptor{Name: name, Category: CategoryUtility, InputKind: KindText, OutputKind: KindText},
		func(_ context.Context, inv Invocation) (Result, error) {
			text, err := inv.Text()
			if err != nil {
				return Failure(err, nil), nil
			}
			return Success(Text(prefix+text), map[string]any{"correlationId": inv.CorrelationID}), nil
		})
}

func TestRegistryCaseInsensitiveLookup(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoSkill("Reasoning", "")))
	for _, name := range []string{"reasoning", "REASONING", " Reasoning "} {
		_, ok := r.Get(name)
		assert.True(t, ok, "expected %q to resolve", name)
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(echoSkill("echo", "first:"), echoSkill("ECHO", "second:"))

	res, err := r.Execute(context.Background(), "echo", TextInvocation("x"))
	require.NoError(t, err)
	got, _ := res.Text()
	assert.Equal(t, "second:x", got)
	assert.Len(t, r.Descriptors(), 1)
}

func TestRegistryRejectsInvalidSkills(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Register(nil)
	assert.True(t, kerrors.Is(err, kerrors.CodeInvalidInput), "nil skill: %v", err)
	err = r.Register(echoSkill("  ", ""))
	assert.True(t, kerrors.Is(err, kerrors.CodeInvalidInput), "blank name: %v", err)
}

func TestRegistryNotFound(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Execute(context.Background(), "ghost", TextInvocation("x"))
	assert.True(t, kerrors.Is(err, kerrors.CodeNotFound), "got %v", err)
}

func TestRegistryRunsThroughPipeline(t *testing.T) {
	var ops []string
	spy := pipeline.BehaviorFunc{ID: "spy", Fn: func(ctx context.Context, next pipeline.Handler) (any, error) {
		ops = append(ops, pipeline.Operation(ctx))
		return next(ctx)
	}}
	r := NewRegistry(pipeline.NewExecutor(spy))
	r.MustRegister(echoSkill("echo", ""))

	res, err := r.Execute(context.Background(), "ECHO", TextInvocation("hi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"skill.echo"}, ops)
	assert.Equal(t, "echo", res.SkillName())
	assert.NotEmpty(t, res.Metadata()["correlationId"], "expected a correlation id to be assigned")
}

func TestRegistryReturnsFailureVerbatim(t *testing.T) {
	cause := errors.New("model refused")
	r := NewRegistry(nil)
	r.MustRegister(NewFunc(Descriptor{Name: "refuse"}, func(context.Context, Invocation) (Result, error) {
		return Failure(cause, map[string]any{"attempt": 1}), nil
	}))

	res, err := r.Execute(context.Background(), "refuse", TextInvocation("x"))
	require.NoError(t, err, "failure results are not errors")
	assert.False(t, res.OK())
	assert.Same(t, cause, res.Err())
	assert.Nil(t, res.Output())
	v, _ := res.Meta("attempt")
	assert.Equal(t, 1, v)
}

func TestRegistryBehaviorFailureReplacesResult(t *testing.T) {
	gate := pipeline.BehaviorFunc{ID: "gate", Fn: func(ctx context.Context, next pipeline.Handler) (any, error) {
		if _, err := next(ctx); err != nil {
			return nil, err
		}
		return nil, kerrors.New(kerrors.CodeTimeout, "too slow", nil)
	}}
	r := NewRegistry(pipeline.NewExecutor(gate))
	r.MustRegister(echoSkill("echo", ""))

	_, err := r.Execute(context.Background(), "echo", TextInvocation("x"))
	assert.True(t, kerrors.Is(err, kerrors.CodeTimeout), "behavior error replaces the result: %v", err)
}

func TestRegistryInputKindMismatch(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(echoSkill("echo", ""))
	_, err := r.Execute(context.Background(), "echo", NewInvocation(Binary([]byte{1})))
	assert.True(t, kerrors.Is(err, kerrors.CodeValidation), "got %v", err)
}

func TestRegistryConcurrentExecute(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(echoSkill("echo", ">"))

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Execute(context.Background(), "echo", TextInvocation("x")); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestDescriptorsSorted(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(echoSkill("planning", ""), echoSkill("Critique", ""), echoSkill("reasoning", ""))
	var names []string
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Critique", "planning", "reasoning"}, names)
}
