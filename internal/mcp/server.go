package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/advisory"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the catalog resolvers and image
// advice as tools.
type Server struct {
	catalog *catalog.Store
	oracle  llm.Oracle
	stage   advisory.Stage
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server. oracle may be nil, in which case
// ambiguous field matches are returned unresolved.
func NewServer(cat *catalog.Store, oracle llm.Oracle, stage advisory.Stage) *Server {
	if stage == "" {
		stage = advisory.PostOperation
	}
	s := &Server{
		catalog: cat,
		oracle:  oracle,
		stage:   stage,
	}

	s.mcp = server.NewMCPServer(
		"pluginassist",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(resolveRequirementsTool, s.handleResolveRequirements)
	s.mcp.AddTool(resolveFieldsTool, s.handleResolveFields)
	s.mcp.AddTool(pluginImageAdviceTool, s.handlePluginImageAdvice)
	s.mcp.AddTool(listEntitiesTool, s.handleListEntities)
	s.mcp.AddTool(describeFieldTool, s.handleDescribeField)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
