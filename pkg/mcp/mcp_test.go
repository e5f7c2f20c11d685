// SPDX-License-Identifier: Apache-2.0
package mcp

import (
	"context"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/actions"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/pipeline"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
)

func opsServer() *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer("ops", "1.0.0")
	srv.AddTool(mcpgo.NewTool("lookup",
		mcpgo.WithDescription("Looks up a service metric"),
		mcpgo.WithString("q", mcpgo.Required(), mcpgo.Description("metric name")),
	), func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		q, _ := args["q"].(string)
		return mcpgo.NewToolResultText(q + " is 99.9%"), nil
	})
	srv.AddTool(mcpgo.NewTool("broken"), func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultError("disk on fire"), nil
	})
	return srv
}

func connect(t *testing.T, srv *mcpserver.MCPServer) *Client {
	t.Helper()
	c, err := ConnectInProcess(context.Background(), srv)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestImportToolsIntoPlanner(t *testing.T) {
	client := connect(t, opsServer())
	reg := actions.NewRegistry()

	names, err := ImportTools(context.Background(), client, "ops", reg, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"ops.broken", "ops.lookup"}, names)

	a, ok := reg.Get("OPS.LOOKUP")
	require.True(t, ok, "lookup action not registered")
	d := a.Descriptor()
	assert.Equal(t, "Looks up a service metric", d.Description)
	assert.True(t, strings.HasPrefix(d.Parameters["q"], "(required)"), "parameter %q", d.Parameters["q"])

	planner := actions.NewPlanner(reg, nil)
	out, err := planner.Process(context.Background(), `<Action name="ops.lookup">{"q":"uptime"}</Action>`, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, "uptime is 99.9%", out)
}

func TestToolActionErrors(t *testing.T) {
	client := connect(t, opsServer())
	reg := actions.NewRegistry()
	_, err := ImportTools(context.Background(), client, "", reg, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		action string
		args   map[string]any
		code   errors.ErrorCode
	}{
		{"missing required argument", "lookup", map[string]any{}, errors.CodeInvalidInput},
		{"tool reported error", "broken", nil, errors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Execute(context.Background(), tt.action, actions.Context{Arguments: tt.args})
			assert.True(t, errors.Is(err, tt.code), "expected %s, got %v", tt.code, err)
		})
	}
}

func TestNewToolActionValidation(t *testing.T) {
	_, err := NewToolAction("", mcpgo.Tool{}, nil)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput), "unnamed tool: %v", err)
	_, err = NewToolAction("", mcpgo.NewTool("x"), nil)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput), "nil caller: %v", err)
}

func TestToolCache(t *testing.T) {
	client := connect(t, opsServer())
	first, err := client.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, client.cachedTools(), len(first))

	uncached := NewClient(client.mcpClient, WithToolCacheTTL(0))
	_, err = uncached.ListTools(context.Background())
	require.NoError(t, err)
	assert.Nil(t, uncached.cachedTools(), "cache stays empty when disabled")
}

func TestSkillServerRoundTrip(t *testing.T) {
	reg := skills.NewRegistry(pipeline.NewExecutor())
	reg.MustRegister(
		skills.NewFunc(skills.Descriptor{Name: "shout", Description: "Upper-cases text"},
			func(_ context.Context, inv skills.Invocation) (skills.Result, error) {
				text, err := inv.Text()
				if err != nil {
					return skills.Failure(err, nil), nil
				}
				return skills.Success(skills.Text(strings.ToUpper(text)), nil), nil
			}),
		skills.NewFunc(skills.Descriptor{Name: "reject"},
			func(context.Context, skills.Invocation) (skills.Result, error) {
				return skills.Failure(errors.New(errors.CodeValidation, "nope", nil), nil), nil
			}),
	)

	srv := NewSkillServer("archena", "test", reg)
	client := connect(t, srv.MCPServer())

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2, "one tool per skill")

	res, err := client.CallTool(context.Background(), "shout", map[string]any{InputArgument: "hello"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "HELLO", extractTextContent(res.Content))

	res, err = client.CallTool(context.Background(), "reject", map[string]any{InputArgument: "x"})
	require.NoError(t, err)
	assert.True(t, res.IsError, "skill failure surfaces as tool error")
	assert.Contains(t, extractTextContent(res.Content), "nope")

	res, err = client.CallTool(context.Background(), "shout", map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.IsError, "blank input must be rejected")
}
