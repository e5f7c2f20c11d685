// SPDX-License-Identifier: Apache-2.0
package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
)

// InputArgument is the single string argument of every skill tool.
const InputArgument = "input"

// SkillExecutor runs skills by name; *skills.Registry satisfies it.
type SkillExecutor interface {
	Descriptors() []skills.Descriptor
	Execute(ctx context.Context, name string, inv skills.Invocation) (skills.Result, error)
}

// Server exposes registered skills as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
}

// NewSkillServer creates a server with one tool per skill descriptor.
func NewSkillServer(name, version string, exec SkillExecutor) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
	}
	for _, d := range exec.Descriptors() {
		tool := mcp.NewTool(d.Name,
			mcp.WithDescription(d.Description),
			mcp.WithString(InputArgument, mcp.Required(), mcp.Description("Text input of the skill")),
		)
		s.mcpServer.AddTool(tool, skillHandler(exec, d.Name))
	}
	return s
}

func skillHandler(exec SkillExecutor, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		input, _ := args[InputArgument].(string)
		if strings.TrimSpace(input) == "" {
			return mcp.NewToolResultError("input is required"), nil
		}

		inv := skills.TextInvocation(input)
		if id, ok := core.CorrelationID(ctx); ok {
			inv = inv.WithCorrelationID(id)
		}
		res, err := exec.Execute(ctx, name, inv)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := res.Text()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// MCPServer returns the underlying server, for in-process clients and tests.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
