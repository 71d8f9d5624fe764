// Package mcp exposes the scoring engine as Model Context Protocol tools so
// that assistants can score a questionnaire without touching patient data.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/scoring"
)

// Server is the MCP server. Every tool is read-only.
type Server struct {
	engine    *scoring.Engine
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance and registers its tools.
func NewServer(cfg domain.MCPConfig, engine *scoring.Engine, logger *logrus.Logger) *Server {
	serverInfo := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	s := &Server{
		engine:    engine,
		mcpServer: mcp.NewServer(serverInfo, nil),
		logger:    logger,
	}
	s.registerTools()
	return s
}

// Start serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting clinic assessment MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_catalog",
		Description: "List the questionnaire categories, questions and weights, optionally filtered by patient gender, with the treatment tiers and maximum score.",
	}, s.handleGetCatalog)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "score_selection",
		Description: "Score a set of selected questions for a patient gender. Returns raw, maximum and normalized (0-100) scores, the per-category breakdown and the treatment tier.",
	}, s.handleScoreSelection)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "classify_score",
		Description: "Map a normalized score (0-100) to its treatment tier.",
	}, s.handleClassifyScore)

	s.logger.WithField("tool_count", 3).Debug("Registered MCP tools")
}

// createErrorResult builds a tool result that reports failure to the client.
func createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
