package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/jira-mcp/internal/jira"
)

// BuildMCPTool converts a ToolSpec into an mcp.Tool whose input schema carries the
// same types, patterns, bounds and defaults the request builder enforces.
func BuildMCPTool(spec jira.ToolSpec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, p := range spec.Params {
		opts = append(opts, buildParamOption(p))
	}
	return mcp.NewTool(spec.Name, opts...)
}

// buildParamOption maps a Param to the appropriate mcp-go tool option.
func buildParamOption(p jira.Param) mcp.ToolOption {
	var opts []mcp.PropertyOption
	if p.Description != "" {
		opts = append(opts, mcp.Description(p.Description))
	}
	if p.Required {
		opts = append(opts, mcp.Required())
	}

	switch p.Type {
	case jira.TypeInteger:
		if p.Minimum != nil {
			opts = append(opts, mcp.Min(float64(*p.Minimum)))
		}
		if p.Maximum != nil {
			opts = append(opts, mcp.Max(float64(*p.Maximum)))
		}
		if d, ok := p.Default.(int); ok {
			opts = append(opts, mcp.DefaultNumber(float64(d)))
		}
		return mcp.WithNumber(p.Name, opts...)
	case jira.TypeBoolean:
		if d, ok := p.Default.(bool); ok {
			opts = append(opts, mcp.DefaultBool(d))
		}
		return mcp.WithBoolean(p.Name, opts...)
	case jira.TypeObject:
		return mcp.WithObject(p.Name, opts...)
	case jira.TypeArray:
		items := map[string]any{"type": "string"}
		if p.Pattern != "" {
			items["pattern"] = p.Pattern
		}
		opts = append([]mcp.PropertyOption{mcp.Items(items)}, opts...)
		if p.Maximum != nil {
			opts = append(opts, mcp.MaxItems(*p.Maximum))
		}
		return mcp.WithArray(p.Name, opts...)
	default:
		if p.Pattern != "" {
			opts = append(opts, mcp.Pattern(p.Pattern))
		}
		if d, ok := p.Default.(string); ok {
			opts = append(opts, mcp.DefaultString(d))
		}
		return mcp.WithString(p.Name, opts...)
	}
}
