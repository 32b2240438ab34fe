package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewRepoforgeMCPServer creates an MCP server exposing the read-only
// repoforge operations (detect, audit, plan). Mutating operations stay
// behind the interactive approval gate and are not exposed here.
func NewRepoforgeMCPServer(repoPath string) *server.MCPServer {
	s := server.NewMCPServer(
		"repoforge",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	registerTools(s, repoPath)

	return s
}
