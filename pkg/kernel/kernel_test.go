// SPDX-License-Identifier: Apache-2.0
package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
)

func newKernel(t *testing.T, extra ...skills.Skill) (*Kernel, *[]skills.Invocation) {
	t.Helper()
	var seen []skills.Invocation
	reg := skills.NewRegistry(nil)
	reg.MustRegister(
		skills.NewFunc(skills.Descriptor{Name: "reasoning", InputKind: skills.KindText}, func(_ context.Context, inv skills.Invocation) (skills.Result, error) {
			seen = append(seen, inv)
			text, _ := inv.Text()
			return skills.Success(skills.Text("reasoned: "+text), nil), nil
		}),
		skills.NewFunc(skills.Descriptor{Name: "reject"}, func(context.Context, skills.Invocation) (skills.Result, error) {
			return skills.Failure(errors.New(errors.CodeInvalidInput, "nope", nil), nil), nil
		}),
	)
	reg.MustRegister(extra...)
	return New(reg), &seen
}

func TestThink(t *testing.T) {
	k, _ := newKernel(t)
	out, err := k.Think(context.Background(), "why")
	require.NoError(t, err)
	assert.Equal(t, "reasoned: why", out)

	_, err = k.Think(context.Background(), "   ")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput), "blank input: %v", err)
}

func TestExecuteSkillPropagatesCorrelationID(t *testing.T) {
	k, seen := newKernel(t)
	ctx := core.WithCorrelationID(context.Background(), "corr-42")
	_, err := k.ExecuteSkill(ctx, "REASONING", "x")
	require.NoError(t, err)
	require.Len(t, *seen, 1)
	assert.Equal(t, "corr-42", (*seen)[0].CorrelationID)
}

func TestExecuteSkillErrors(t *testing.T) {
	k, _ := newKernel(t)
	tests := []struct {
		name  string
		skill string
		code  errors.ErrorCode
	}{
		{"unknown skill", "missing", errors.CodeNotFound},
		{"failure result", "reject", errors.CodeInvalidInput},
		{"empty name", " ", errors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.ExecuteSkill(context.Background(), tt.skill, "x")
			assert.True(t, errors.Is(err, tt.code), "expected %s, got %v", tt.code, err)
		})
	}
}

func TestExecuteJSON(t *testing.T) {
	type verdict struct {
		Category string `json:"category"`
	}
	classify := skills.NewFunc(skills.Descriptor{Name: "classification"}, func(_ context.Context, inv skills.Invocation) (skills.Result, error) {
		var in map[string]string
		if err := skills.DecodeJSON(inv.Input, &in); err != nil {
			return skills.Failure(err, nil), nil
		}
		return skills.Success(skills.Text(` {"category":"`+in["text"]+`"} `), nil), nil
	})
	k, _ := newKernel(t, classify)

	got, err := ExecuteJSON[verdict](context.Background(), k, "classification", map[string]string{"text": "ops"})
	require.NoError(t, err)
	assert.Equal(t, "ops", got.Category)
}
