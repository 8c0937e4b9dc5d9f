package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/opsdesk/internal/models"
	"github.com/joescharf/opsdesk/internal/store"
)

// Server exposes the issue store as MCP tools.
type Server struct {
	store   store.Store
	version string
}

// NewServer creates the MCP server wrapper over s.
func NewServer(s store.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{store: s, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("opsdesk", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.updateIssueTool())
	srv.AddTool(s.addCommentTool())
	srv.AddTool(s.deleteIssueTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

const (
	platformHelp = "Platform: DISNEY_PLUS, ESPN_PLUS, HULU, STAR_PLUS"
	statusHelp   = "Status: OPEN, IN_PROGRESS, RESOLVED, CLOSED"
	severityHelp = "Severity: LOW, MEDIUM, HIGH, CRITICAL"
)

// opsdesk_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("opsdesk_list_issues",
		mcp.WithDescription("List issues in insertion order. All filters are optional and combined with AND. Returns a JSON array of issues."),
		mcp.WithString("platform", mcp.Description(platformHelp)),
		mcp.WithString("status", mcp.Description(statusHelp)),
		mcp.WithString("severity", mcp.Description(severityHelp)),
		mcp.WithString("assignee", mcp.Description("Case-insensitive substring of the assignee name")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter store.IssueListFilter
	var err error

	if v := request.GetString("platform", ""); v != "" {
		if filter.Platform, err = models.ParsePlatform(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v := request.GetString("status", ""); v != "" {
		if filter.Status, err = models.ParseStatus(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v := request.GetString("severity", ""); v != "" {
		if filter.Severity, err = models.ParseSeverity(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	filter.Assignee = request.GetString("assignee", "")

	issues, err := s.store.ListIssues(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	return jsonResult(issues)
}

// opsdesk_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("opsdesk_get_issue",
		mcp.WithDescription("Get a single issue with its comments by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Issue ID")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issue)
}

// opsdesk_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("opsdesk_create_issue",
		mcp.WithDescription("Create a new issue. New issues start OPEN and unassigned. Returns the created issue as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What is going wrong")),
		mcp.WithString("platform", mcp.Required(), mcp.Description(platformHelp)),
		mcp.WithString("severity", mcp.Required(), mcp.Description(severityHelp)),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := models.NewIssue{
		Title:       request.GetString("title", ""),
		Description: request.GetString("description", ""),
	}
	var err error
	if v := request.GetString("platform", ""); v != "" {
		if in.Platform, err = models.ParsePlatform(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v := request.GetString("severity", ""); v != "" {
		if in.Severity, err = models.ParseSeverity(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	issue, err := s.store.CreateIssue(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}
	return jsonResult(issue)
}

// opsdesk_update_issue
func (s *Server) updateIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("opsdesk_update_issue",
		mcp.WithDescription("Update an existing issue. Only the supplied fields change; at least one is required. Returns the updated issue as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Issue ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("platform", mcp.Description(platformHelp)),
		mcp.WithString("status", mcp.Description(statusHelp)),
		mcp.WithString("severity", mcp.Description(severityHelp)),
		mcp.WithString("assignee", mcp.Description("New assignee name")),
	)
	return tool, s.handleUpdateIssue
}

func (s *Server) handleUpdateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	args := request.GetArguments()
	str := func(key string) *string {
		v, ok := args[key].(string)
		if !ok {
			return nil
		}
		return &v
	}

	upd := models.IssueUpdate{
		Title:       str("title"),
		Description: str("description"),
		Assignee:    str("assignee"),
	}
	if v := str("platform"); v != nil {
		p, err := models.ParsePlatform(*v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		upd.Platform = &p
	}
	if v := str("status"); v != nil {
		st, err := models.ParseStatus(*v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		upd.Status = &st
	}
	if v := str("severity"); v != nil {
		sv, err := models.ParseSeverity(*v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		upd.Severity = &sv
	}

	if upd.IsEmpty() {
		return mcp.NewToolResultError("no fields provided to update; specify at least one of: title, description, platform, status, severity, assignee"), nil
	}

	issue, err := s.store.UpdateIssue(ctx, id, upd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issue)
}

// opsdesk_add_comment
func (s *Server) addCommentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("opsdesk_add_comment",
		mcp.WithDescription("Append a comment to an issue. Returns the parent issue with all comments as JSON."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Comment text")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Comment author")),
	)
	return tool, s.handleAddComment
}

func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := request.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	issue, err := s.store.AddComment(ctx, issueID, models.NewComment{
		Text:   request.GetString("text", ""),
		Author: request.GetString("author", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issue)
}

// opsdesk_delete_issue
func (s *Server) deleteIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("opsdesk_delete_issue",
		mcp.WithDescription("Delete an issue by ID. Returns {\"deleted\": true} when an issue was removed and false when none had the ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Issue ID")),
	)
	return tool, s.handleDeleteIssue
}

func (s *Server) handleDeleteIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	ok, err := s.store.DeleteIssue(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete issue: %v", err)), nil
	}
	return jsonResult(map[string]any{"id": id, "deleted": ok})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
