package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/jira-mcp/internal/jira"
)

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// toCallToolResult renders a ToolResult as JSON text. Failures set IsError so the
// host model sees them as tool errors rather than protocol errors.
func toCallToolResult(r jira.ToolResult) *mcp.CallToolResult {
	out, err := json.Marshal(r)
	if err != nil {
		return errorResult("failed to marshal tool result: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(out))},
		IsError: !r.Success,
	}
}

// DispatchHandler routes an MCP tool call for the named tool through the dispatcher.
func DispatchHandler(d *jira.Dispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := d.Dispatch(ctx, jira.Invocation{
			Tool:      name,
			Arguments: r.GetArguments(),
		})
		return toCallToolResult(result), nil
	}
}
