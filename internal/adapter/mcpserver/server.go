// Package mcpserver exposes retrieval as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"codegraph/internal/domain"
	"codegraph/internal/usecase"
)

const ServerName = "codegraph"

// Service is what the tools call into.
type Service interface {
	Ask(ctx context.Context, query string, limit int) (domain.Context, error)
	Health() usecase.Health
}

type Server struct {
	mcp          *server.MCPServer
	svc          Service
	defaultLimit int
	logger       *slog.Logger
}

func New(svc Service, version string, defaultLimit int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultLimit <= 0 {
		defaultLimit = 8
	}
	s := &Server{
		mcp:          server.NewMCPServer(ServerName, version, server.WithLogging()),
		svc:          svc,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Retrieve ranked code context for a question, with call relationships"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language question or identifier")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum results (default %d)", s.defaultLimit))),
	), s.handleAsk)

	s.mcp.AddTool(mcp.NewTool("health",
		mcp.WithDescription("Report whether the index is ready and its size"),
	), s.handleHealth)
}

// Serve blocks serving stdio until the client disconnects.
func (s *Server) Serve() error {
	s.logger.Info("serving MCP on stdio", "tools", []string{"ask", "health"})
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	limit := req.GetInt("limit", s.defaultLimit)

	out, err := s.svc.Ask(ctx, query, limit)
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return mcp.NewToolResultError("query is required"), nil
	case errors.Is(err, domain.ErrIndexNotReady):
		return mcp.NewToolResultError(fmt.Sprintf("status: %s. %v", usecase.StatusNotReady, err)), nil
	case err != nil:
		s.logger.Warn("ask failed", "query", query, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}
	return jsonResult(out)
}

func (s *Server) handleHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Health())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
