package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"notebot/internal/middleware"
	"notebot/internal/models"
	"notebot/internal/session"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes the caller's notes to MCP clients. The caller is the
// identity established by middleware.UserID on the HTTP request.
type MCPServer struct {
	svc *session.Service
}

func NewMCPServer(svc *session.Service) *MCPServer {
	return &MCPServer{svc: svc}
}

func (s *MCPServer) listNotesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("caller identity is missing"), nil
	}

	items, err := s.svc.OnList(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("storage error: %v", err)), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("No notes stored for this user."), nil
	}

	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%d. %s", it.ID, it.Preview)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Notes (%d/%d):\n%s", len(items), models.MaxNotes, strings.Join(lines, "\n"))), nil
}

// Handler returns the streamable HTTP transport serving the list_notes tool.
// It must be mounted behind middleware.UserID.
func (s *MCPServer) Handler() *server.StreamableHTTPServer {
	mcpServer := server.NewMCPServer("notebot", "1.0.0")

	// Listing starts a new daily window when the old one has ended, which
	// clears and persists the record, so the tool is not read-only.
	tool := mcp.NewTool("list_notes",
		mcp.WithDescription("List the caller's notes for the current daily window, numbered as shown in the chat. "+
			"If the window has expired, the notes are cleared and a new window starts."),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
	mcpServer.AddTool(tool, s.listNotesHandler)

	return server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(callerContext),
	)
}

// callerContext carries the authenticated caller into tool handlers.
func callerContext(ctx context.Context, r *http.Request) context.Context {
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		return middleware.WithUserID(ctx, userID)
	}
	return ctx
}
