package mcpapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"qcflow/internal/domain/quality"
	"qcflow/internal/ports"
	"qcflow/internal/usecase/workflow"
)

func actorOption() mcp.ToolOption {
	return mcp.WithString("actor", mcp.Required(), mcp.Description("Id of the acting person, as listed in the roster"))
}

func requestIDOption() mcp.ToolOption {
	return mcp.WithString("request_id", mcp.Description("Optional idempotency key; a retry with the same key returns the first result"))
}

// qc_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_create_issue",
		mcp.WithDescription("Report a new quality issue. It starts in status reported."),
		actorOption(),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short summary of the defect")),
		mcp.WithString("supervisor_id", mcp.Required(), mcp.Description("Supervisor responsible for the issue")),
		mcp.WithString("before_photo_ref", mcp.Required(), mcp.Description("Reference (URI) of the photo showing the defect")),
		mcp.WithString("description", mcp.Description("Details of the defect")),
		mcp.WithString("location", mcp.Description("Where on the floor the defect was found")),
		mcp.WithString("priority", mcp.Description("low, medium, high or critical (default medium)"), mcp.Enum("low", "medium", "high", "critical")),
		mcp.WithNumber("estimated_fix_time_minutes", mcp.Description("Estimated minutes to fix")),
		requestIDOption(),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actor, missing := requireArg(request, "actor")
	if missing != nil {
		return missing, nil
	}
	issue, err := s.engine.CreateIssue(ctx, workflow.CreateIssueInput{
		ActorID:                 actor,
		RequestID:               request.GetString("request_id", ""),
		Title:                   request.GetString("title", ""),
		Description:             request.GetString("description", ""),
		Location:                request.GetString("location", ""),
		Priority:                request.GetString("priority", ""),
		SupervisorID:            request.GetString("supervisor_id", ""),
		BeforePhotoRef:          request.GetString("before_photo_ref", ""),
		EstimatedFixTimeMinutes: optionalInt(request, "estimated_fix_time_minutes"),
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(viewOf(issue))
}

// qc_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_get_issue",
		mcp.WithDescription("Get one issue with the workflow triggers available from its status."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, missing := requireArg(request, "issue_id")
	if missing != nil {
		return missing, nil
	}
	issue, err := s.engine.GetIssue(ctx, issueID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(viewOf(issue))
}

// qc_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_list_issues",
		mcp.WithDescription("List issues, optionally filtered. Returns a JSON array ordered by creation time."),
		mcp.WithString("status", mcp.Description("Comma separated statuses, e.g. fixed,review")),
		mcp.WithString("assigned_to", mcp.Description("Filter by assigned worker")),
		mcp.WithString("supervisor_id", mcp.Description("Filter by supervisor")),
		mcp.WithString("reporter_id", mcp.Description("Filter by reporter")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := ports.IssueFilter{
		AssignedTo:   request.GetString("assigned_to", ""),
		SupervisorID: request.GetString("supervisor_id", ""),
		ReporterID:   request.GetString("reporter_id", ""),
	}
	for _, part := range strings.Split(request.GetString("status", ""), ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, ok := quality.ParseStatus(part)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", part)), nil
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	issues, err := s.engine.ListIssues(ctx, filter)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(issues)
}

// qc_edit_issue
func (s *Server) editIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_edit_issue",
		mcp.WithDescription("Edit descriptive fields of an issue. Status is not changed. Only provided fields are updated."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue id")),
		actorOption(),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("location", mcp.Description("New location")),
		mcp.WithString("priority", mcp.Description("New priority"), mcp.Enum("low", "medium", "high", "critical")),
		mcp.WithNumber("estimated_fix_time_minutes", mcp.Description("New estimate in minutes")),
		mcp.WithBoolean("clear_estimate", mcp.Description("Remove the estimate")),
		requestIDOption(),
	)
	return tool, s.handleEditIssue
}

func (s *Server) handleEditIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, missing := requireArg(request, "issue_id")
	if missing != nil {
		return missing, nil
	}
	actor, missing := requireArg(request, "actor")
	if missing != nil {
		return missing, nil
	}
	issue, err := s.engine.EditFields(ctx, workflow.EditFieldsInput{
		IssueID:   issueID,
		ActorID:   actor,
		RequestID: request.GetString("request_id", ""),
		Patch: quality.Patch{
			Title:                   optionalString(request, "title"),
			Description:             optionalString(request, "description"),
			Location:                optionalString(request, "location"),
			Priority:                optionalString(request, "priority"),
			EstimatedFixTimeMinutes: optionalInt(request, "estimated_fix_time_minutes"),
			ClearEstimate:           request.GetBool("clear_estimate", false),
		},
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(viewOf(issue))
}

// qc_delete_issue
func (s *Server) deleteIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_delete_issue",
		mcp.WithDescription("Permanently delete an issue with its comments and history. Admin only."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue id")),
		actorOption(),
		requestIDOption(),
		mcp.WithDestructiveHintAnnotation(true),
	)
	return tool, s.handleDeleteIssue
}

func (s *Server) handleDeleteIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, missing := requireArg(request, "issue_id")
	if missing != nil {
		return missing, nil
	}
	actor, missing := requireArg(request, "actor")
	if missing != nil {
		return missing, nil
	}
	err := s.engine.DeleteIssue(ctx, workflow.DeleteIssueInput{
		IssueID:   issueID,
		ActorID:   actor,
		RequestID: request.GetString("request_id", ""),
	})
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted issue %s", issueID)), nil
}

// qc_transition
func (s *Server) transitionTool() (mcp.Tool, server.ToolHandlerFunc) {
	triggers := make([]string, 0, len(quality.Triggers()))
	for _, t := range quality.Triggers() {
		triggers = append(triggers, string(t))
	}
	tool := mcp.NewTool("qc_transition",
		mcp.WithDescription("Move an issue through the workflow: reported -assign_worker-> assigned -start_work-> in_progress "+
			"-submit_fix-> fixed -accept_for_review-> review -finalize-> approved|rejected; fixed -reject_at_first_pass-> rejected."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue id")),
		actorOption(),
		mcp.WithString("trigger", mcp.Required(), mcp.Description("Workflow trigger"), mcp.Enum(triggers...)),
		mcp.WithString("worker_id", mcp.Description("Worker to assign (assign_worker)")),
		mcp.WithString("after_photo_ref", mcp.Description("Reference of the photo after the fix (submit_fix)")),
		mcp.WithString("decision", mcp.Description("approved or rejected (finalize)"), mcp.Enum("approved", "rejected")),
		mcp.WithString("reason", mcp.Description("Reason; required for rejections")),
		requestIDOption(),
	)
	return tool, s.handleTransition
}

func (s *Server) handleTransition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, missing := requireArg(request, "issue_id")
	if missing != nil {
		return missing, nil
	}
	actor, missing := requireArg(request, "actor")
	if missing != nil {
		return missing, nil
	}
	trigger, missing := requireArg(request, "trigger")
	if missing != nil {
		return missing, nil
	}
	requestID := request.GetString("request_id", "")
	reason := request.GetString("reason", "")

	var (
		issue quality.Issue
		err   error
	)
	switch quality.Trigger(trigger) {
	case quality.TriggerAssignWorker:
		issue, err = s.engine.AssignWorker(ctx, workflow.AssignWorkerInput{
			IssueID: issueID, ActorID: actor, RequestID: requestID, WorkerID: request.GetString("worker_id", ""),
		})
	case quality.TriggerStartWork:
		issue, err = s.engine.StartWork(ctx, workflow.StartWorkInput{IssueID: issueID, ActorID: actor, RequestID: requestID})
	case quality.TriggerSubmitFix:
		issue, err = s.engine.SubmitFix(ctx, workflow.SubmitFixInput{
			IssueID: issueID, ActorID: actor, RequestID: requestID, AfterPhotoRef: request.GetString("after_photo_ref", ""),
		})
	case quality.TriggerAcceptForReview:
		issue, err = s.engine.AcceptForReview(ctx, workflow.AcceptForReviewInput{
			IssueID: issueID, ActorID: actor, RequestID: requestID, Reason: reason,
		})
	case quality.TriggerRejectAtFirstPass:
		issue, err = s.engine.RejectAtFirstPass(ctx, workflow.RejectAtFirstPassInput{
			IssueID: issueID, ActorID: actor, RequestID: requestID, Reason: reason,
		})
	case quality.TriggerFinalize:
		issue, err = s.engine.Finalize(ctx, workflow.FinalizeInput{
			IssueID: issueID, ActorID: actor, RequestID: requestID, Decision: request.GetString("decision", ""), Reason: reason,
		})
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown trigger %q", trigger)), nil
	}
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(viewOf(issue))
}

// qc_add_comment
func (s *Server) addCommentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_add_comment",
		mcp.WithDescription("Add a comment to an issue thread. Only the reporter, supervisor, assigned worker or an admin may comment."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue id")),
		actorOption(),
		mcp.WithString("text", mcp.Required(), mcp.Description("Comment text")),
		mcp.WithString("kind", mcp.Description("general, progress, solution or review"), mcp.Enum("general", "progress", "solution", "review")),
		requestIDOption(),
	)
	return tool, s.handleAddComment
}

func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, missing := requireArg(request, "issue_id")
	if missing != nil {
		return missing, nil
	}
	actor, missing := requireArg(request, "actor")
	if missing != nil {
		return missing, nil
	}
	comment, err := s.engine.AddComment(ctx, workflow.AddCommentInput{
		IssueID:   issueID,
		ActorID:   actor,
		RequestID: request.GetString("request_id", ""),
		Text:      request.GetString("text", ""),
		Kind:      request.GetString("kind", ""),
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(comment)
}

// qc_list_comments
func (s *Server) listCommentsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_list_comments",
		mcp.WithDescription("List the comments of an issue, oldest first."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithNumber("limit", mcp.Description("Return at most this many comments (0 = all)")),
	)
	return tool, s.handleListComments
}

func (s *Server) handleListComments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, missing := requireArg(request, "issue_id")
	if missing != nil {
		return missing, nil
	}
	limit := request.GetInt("limit", 0)

	comments := make([]quality.Comment, 0)
	for c, err := range s.engine.ListComments(ctx, issueID) {
		if err != nil {
			return errorResult(err)
		}
		comments = append(comments, c)
		if limit > 0 && len(comments) >= limit {
			break
		}
	}
	return jsonResult(comments)
}

// qc_history
func (s *Server) historyTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_history",
		mcp.WithDescription("Audit trail of an issue, oldest first: one record per transition plus notes for field edits."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleHistory
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, missing := requireArg(request, "issue_id")
	if missing != nil {
		return missing, nil
	}
	records, err := s.engine.GetHistory(ctx, issueID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(records)
}

// qc_dashboard
func (s *Server) dashboardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("qc_dashboard",
		mcp.WithDescription("Totals for the dashboard: total, open (not approved), created today and average fix time in minutes."),
		mcp.WithString("tz", mcp.Description("IANA time zone used for 'today', default UTC")),
	)
	return tool, s.handleDashboard
}

func (s *Server) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(request.GetString("tz", "")); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown time zone %q", tz)), nil
		}
		loc = parsed
	}
	stats, err := s.engine.GetDashboardStats(ctx, s.now().In(loc))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(stats)
}
