// SPDX-License-Identifier: Apache-2.0
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/actions"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ToolAction exposes one MCP tool as an action. Its name is the tool name,
// optionally namespaced as "prefix.tool".
type ToolAction struct {
	name   string
	tool   mcp.Tool
	caller ToolCaller
}

// NewToolAction builds an action backed by tool on caller.
func NewToolAction(prefix string, tool mcp.Tool, caller ToolCaller) (*ToolAction, error) {
	if tool.Name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool name is required", nil)
	}
	if caller == nil {
		return nil, errors.New(errors.CodeInvalidInput, "tool caller is required", nil)
	}
	name := tool.Name
	if prefix != "" {
		name = prefix + "." + tool.Name
	}
	return &ToolAction{name: name, tool: tool, caller: caller}, nil
}

// Descriptor implements actions.Action. Parameters come from the tool's
// input schema; required ones are marked.
func (a *ToolAction) Descriptor() actions.Descriptor {
	params := make(map[string]string, len(a.tool.InputSchema.Properties))
	required := make(map[string]bool, len(a.tool.InputSchema.Required))
	for _, r := range a.tool.InputSchema.Required {
		required[r] = true
	}
	for key, raw := range a.tool.InputSchema.Properties {
		desc := ""
		if prop, ok := raw.(map[string]any); ok {
			desc, _ = prop["description"].(string)
		}
		if required[key] {
			desc = strings.TrimSpace("(required) " + desc)
		}
		params[key] = desc
	}
	return actions.Descriptor{
		Name:        a.name,
		Description: a.tool.Description,
		Parameters:  params,
	}
}

// Execute implements actions.Action.
func (a *ToolAction) Execute(ctx context.Context, ac actions.Context) (any, error) {
	args := ac.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := validateRequiredArgs(a.tool, args); err != nil {
		return nil, err
	}
	result, err := a.caller.CallTool(ctx, a.tool.Name, args)
	if err != nil {
		return nil, err
	}
	return toolResultToOutput(a.tool.Name, result)
}

// ImportTools registers every tool of client as an action in reg and
// returns the registered names, sorted.
func ImportTools(ctx context.Context, client *Client, prefix string, reg *actions.Registry, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tools, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		action, err := NewToolAction(prefix, tool, client)
		if err != nil {
			logger.Warn("mcp.tool.skipped", slog.String("error", err.Error()))
			continue
		}
		if err := reg.Register(action); err != nil {
			return nil, err
		}
		names = append(names, action.name)
	}
	sort.Strings(names)
	logger.Info("mcp.tools.imported", slog.String("server", prefix), slog.Int("count", len(names)))
	return names, nil
}

func validateRequiredArgs(tool mcp.Tool, args map[string]any) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return errors.Newf(errors.CodeInvalidInput, "missing required argument %q", key).
				WithContext("tool", tool.Name)
		}
	}
	return nil
}

func toolResultToOutput(name string, result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New(errors.CodeTransportError, "mcp tool result is nil", nil).WithContext("tool", name)
	}
	if result.IsError {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("mcp tool returned error: %s", extractTextContent(result.Content)), nil).
			WithContext("tool", name)
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	return extractTextContent(result.Content), nil
}

func extractTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ actions.Action = (*ToolAction)(nil)
