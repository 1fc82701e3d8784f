package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/jira-mcp/internal/jira"
)

// RegisterTools registers one MCP tool per registry entry, each dispatched through d.
func RegisterTools(s *server.MCPServer, d *jira.Dispatcher) int {
	specs := d.Registry().List()
	for _, spec := range specs {
		s.AddTool(BuildMCPTool(spec), DispatchHandler(d, spec.Name))
	}
	return len(specs)
}

// NewServer creates the MCP server with every JIRA tool plus get_version.
func NewServer(name, version string, d *jira.Dispatcher, info VersionInfo) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	RegisterTools(s, d)
	s.AddTool(VersionTool(), VersionToolHandler(info))
	return s
}
