// Package mcpserver offers the assistant as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/graph"
)

const ToolName = "ask_travel_assistant"

// Runner answers one question.
type Runner interface {
	Run(ctx context.Context, question string) (graph.State, error)
}

// New registers the assistant tool on a fresh MCP server.
func New(runner Runner, version string, log *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer("vietnam-travel-assistant", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	tool := mcp.NewTool(ToolName,
		mcp.WithDescription("Answer questions about travelling in Vietnam: cities, hotels, attractions and activities."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The traveller's question")),
	)
	s.AddTool(tool, askHandler(runner, log))
	return s
}

func askHandler(runner Runner, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question is required"), nil
		}
		state, err := runner.Run(ctx, question)
		if err != nil {
			log.Error("workflow failed", zap.Error(err))
			return mcp.NewToolResultError("failed to answer question: " + err.Error()), nil
		}
		log.Info("tool answered", zap.String("route", string(state.Route())))
		return mcp.NewToolResultText(state.Answer()), nil
	}
}

// Serve blocks serving stdio until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
