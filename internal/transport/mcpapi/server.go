// Package mcpapi exposes the workflow engine as MCP tools.
package mcpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/ports"
	"qcflow/internal/usecase/workflow"
)

// Engine is the workflow surface served as tools.
type Engine interface {
	CreateIssue(ctx context.Context, input workflow.CreateIssueInput) (quality.Issue, error)
	GetIssue(ctx context.Context, issueID string) (quality.Issue, error)
	ListIssues(ctx context.Context, filter ports.IssueFilter) ([]quality.Issue, error)
	EditFields(ctx context.Context, input workflow.EditFieldsInput) (quality.Issue, error)
	DeleteIssue(ctx context.Context, input workflow.DeleteIssueInput) error

	AssignWorker(ctx context.Context, input workflow.AssignWorkerInput) (quality.Issue, error)
	StartWork(ctx context.Context, input workflow.StartWorkInput) (quality.Issue, error)
	SubmitFix(ctx context.Context, input workflow.SubmitFixInput) (quality.Issue, error)
	AcceptForReview(ctx context.Context, input workflow.AcceptForReviewInput) (quality.Issue, error)
	RejectAtFirstPass(ctx context.Context, input workflow.RejectAtFirstPassInput) (quality.Issue, error)
	Finalize(ctx context.Context, input workflow.FinalizeInput) (quality.Issue, error)

	AddComment(ctx context.Context, input workflow.AddCommentInput) (quality.Comment, error)
	ListComments(ctx context.Context, issueID string) iter.Seq2[quality.Comment, error]
	GetHistory(ctx context.Context, issueID string) ([]quality.AuditRecord, error)
	GetDashboardStats(ctx context.Context, now time.Time) (quality.DashboardStats, error)
}

var _ Engine = (*workflow.Service)(nil)

type Server struct {
	engine  Engine
	version string
	now     func() time.Time
}

func NewServer(engine Engine, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{engine: engine, version: version, now: time.Now}
}

// MCPServer returns an mcp-go server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("qcflow", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.editIssueTool())
	srv.AddTool(s.deleteIssueTool())
	srv.AddTool(s.transitionTool())
	srv.AddTool(s.addCommentTool())
	srv.AddTool(s.listCommentsTool())
	srv.AddTool(s.historyTool())
	srv.AddTool(s.dashboardTool())

	return srv
}

// ServeStdio blocks serving the stdio transport until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// issueView adds the triggers valid from the current status.
type issueView struct {
	quality.Issue
	AvailableTriggers []quality.Trigger `json:"availableTriggers"`
}

func viewOf(issue quality.Issue) issueView {
	return issueView{Issue: issue, AvailableTriggers: quality.AvailableTriggers(issue.Status)}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports an engine failure with its stable code first, e.g.
// "invalid_transition: start_work is not allowed from reported".
func errorResult(err error) (*mcp.CallToolResult, error) {
	code := errs.Code(err)
	if code == "" {
		code = "internal_error"
	}
	msg := fmt.Sprintf("%s: %v", code, err)
	if quality.Retryable(err) {
		msg += " (retryable)"
	}
	return mcp.NewToolResultError(msg), nil
}

func requireArg(request mcp.CallToolRequest, name string) (string, *mcp.CallToolResult) {
	v, err := request.RequireString(name)
	if err != nil || strings.TrimSpace(v) == "" {
		return "", mcp.NewToolResultError("missing required parameter: " + name)
	}
	return strings.TrimSpace(v), nil
}

func optionalString(request mcp.CallToolRequest, name string) *string {
	args := request.GetArguments()
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil
	}
	v, ok := raw.(string)
	if !ok {
		return nil
	}
	return &v
}

func optionalInt(request mcp.CallToolRequest, name string) *int {
	args := request.GetArguments()
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		return &v
	default:
		return nil
	}
}
