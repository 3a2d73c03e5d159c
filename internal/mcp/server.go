// Package mcp exposes the shop tools and the full agent over the Model
// Context Protocol on stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/shopagent/internal/task"
	"github.com/ziadkadry99/shopagent/internal/tools"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes product, shop and web search
// tools plus an ask tool that runs a full task.
type Server struct {
	toolbox  *tools.Toolbox
	executor *task.Executor
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server. executor may be nil, in which case
// the ask tool is not registered.
func NewServer(toolbox *tools.Toolbox, executor *task.Executor) *Server {
	s := &Server{
		toolbox:  toolbox,
		executor: executor,
	}

	s.mcp = server.NewMCPServer(
		"shopagent",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(ragSearchTool, s.handleRagSearch)
	s.mcp.AddTool(shopInfoTool, s.handleShopInfo)
	s.mcp.AddTool(webSearchTool, s.handleWebSearch)
	if s.executor != nil {
		s.mcp.AddTool(askTool, s.handleAsk)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
