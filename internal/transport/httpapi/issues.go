package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"

	"qcflow/internal/domain/quality"
	"qcflow/internal/ports"
	"qcflow/internal/usecase/workflow"
)

type createIssueRequest struct {
	Title                   string `json:"title"`
	Description             string `json:"description"`
	Location                string `json:"location"`
	Priority                string `json:"priority"`
	ReporterID              string `json:"reporterId"`
	SupervisorID            string `json:"supervisorId"`
	BeforePhotoRef          string `json:"beforePhotoRef"`
	EstimatedFixTimeMinutes *int   `json:"estimatedFixTimeMinutes"`
}

type editIssueRequest struct {
	Title                   *string `json:"title"`
	Description             *string `json:"description"`
	Location                *string `json:"location"`
	Priority                *string `json:"priority"`
	EstimatedFixTimeMinutes *int    `json:"estimatedFixTimeMinutes"`
	ClearEstimate           bool    `json:"clearEstimate"`
}

type assignRequest struct {
	WorkerID string `json:"workerId"`
}

type fixRequest struct {
	AfterPhotoRef string `json:"afterPhotoRef"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type finalizeRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

type commentRequest struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderActorID))
}

func requestID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
}

func issueID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "issueID"))
}

func (h *Handler) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := decodeJSONBody(r.Context(), w, r, &req, false); err != nil {
		writeErrorFrom(w, err)
		return
	}
	issue, err := h.engine.CreateIssue(r.Context(), workflow.CreateIssueInput{
		ActorID:                 actorID(r),
		RequestID:               requestID(r),
		Title:                   req.Title,
		Description:             req.Description,
		Location:                req.Location,
		Priority:                req.Priority,
		ReporterID:              req.ReporterID,
		SupervisorID:            req.SupervisorID,
		BeforePhotoRef:          req.BeforePhotoRef,
		EstimatedFixTimeMinutes: req.EstimatedFixTimeMinutes,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.Header().Set("Location", "/v1/issues/"+issue.ID)
	writeJSON(w, http.StatusCreated, issue)
}

func (h *Handler) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := h.engine.GetIssue(r.Context(), issueID(r))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// handleListIssues serves GET /v1/issues?status=a,b&assignedTo=&supervisorId=&reporterId=.
func (h *Handler) handleListIssues(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ports.IssueFilter{
		AssignedTo:   query.Get("assignedTo"),
		SupervisorID: query.Get("supervisorId"),
		ReporterID:   query.Get("reporterId"),
	}
	for _, raw := range query["status"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := quality.ParseStatus(part)
			if !ok {
				writeErrorFrom(w, fmt.Errorf("%w: unknown status %q", errInvalidRequest, part))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	issues, err := h.engine.ListIssues(r.Context(), filter)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": issues})
}

func (h *Handler) handleEditIssue(w http.ResponseWriter, r *http.Request) {
	var req editIssueRequest
	if err := decodeJSONBody(r.Context(), w, r, &req, false); err != nil {
		writeErrorFrom(w, err)
		return
	}
	issue, err := h.engine.EditFields(r.Context(), workflow.EditFieldsInput{
		IssueID:   issueID(r),
		ActorID:   actorID(r),
		RequestID: requestID(r),
		Patch: quality.Patch{
			Title:                   req.Title,
			Description:             req.Description,
			Location:                req.Location,
			Priority:                req.Priority,
			EstimatedFixTimeMinutes: req.EstimatedFixTimeMinutes,
			ClearEstimate:           req.ClearEstimate,
		},
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (h *Handler) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	err := h.engine.DeleteIssue(r.Context(), workflow.DeleteIssueInput{
		IssueID:   issueID(r),
		ActorID:   actorID(r),
		RequestID: requestID(r),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSONBody(r.Context(), w, r, &req, false); err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeIssue(w)(h.engine.AssignWorker(r.Context(), workflow.AssignWorkerInput{
		IssueID:   issueID(r),
		ActorID:   actorID(r),
		RequestID: requestID(r),
		WorkerID:  req.WorkerID,
	}))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.writeIssue(w)(h.engine.StartWork(r.Context(), workflow.StartWorkInput{
		IssueID:   issueID(r),
		ActorID:   actorID(r),
		RequestID: requestID(r),
	}))
}

func (h *Handler) handleFix(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if err := decodeJSONBody(r.Context(), w, r, &req, true); err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeIssue(w)(h.engine.SubmitFix(r.Context(), workflow.SubmitFixInput{
		IssueID:       issueID(r),
		ActorID:       actorID(r),
		RequestID:     requestID(r),
		AfterPhotoRef: req.AfterPhotoRef,
	}))
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeJSONBody(r.Context(), w, r, &req, true); err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeIssue(w)(h.engine.AcceptForReview(r.Context(), workflow.AcceptForReviewInput{
		IssueID:   issueID(r),
		ActorID:   actorID(r),
		RequestID: requestID(r),
		Reason:    req.Reason,
	}))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeJSONBody(r.Context(), w, r, &req, true); err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeIssue(w)(h.engine.RejectAtFirstPass(r.Context(), workflow.RejectAtFirstPassInput{
		IssueID:   issueID(r),
		ActorID:   actorID(r),
		RequestID: requestID(r),
		Reason:    req.Reason,
	}))
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := decodeJSONBody(r.Context(), w, r, &req, false); err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeIssue(w)(h.engine.Finalize(r.Context(), workflow.FinalizeInput{
		IssueID:   issueID(r),
		ActorID:   actorID(r),
		RequestID: requestID(r),
		Decision:  req.Decision,
		Reason:    req.Reason,
	}))
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSONBody(r.Context(), w, r, &req, false); err != nil {
		writeErrorFrom(w, err)
		return
	}
	comment, err := h.engine.AddComment(r.Context(), workflow.AddCommentInput{
		IssueID:   issueID(r),
		ActorID:   actorID(r),
		RequestID: requestID(r),
		Text:      req.Text,
		Kind:      req.Kind,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments := make([]quality.Comment, 0)
	for c, err := range h.engine.ListComments(r.Context(), issueID(r)) {
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		comments = append(comments, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": comments})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.engine.GetHistory(r.Context(), issueID(r))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}

// handleDashboard serves GET /v1/dashboard?tz=Europe/Istanbul. The calendar
// day for createdToday is taken in tz, UTC when absent.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			writeErrorFrom(w, fmt.Errorf("%w: unknown time zone %q", errInvalidRequest, tz))
			return
		}
		loc = parsed
	}

	stats, err := h.engine.GetDashboardStats(r.Context(), h.now().In(loc))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeIssue(w http.ResponseWriter) func(quality.Issue, error) {
	return func(issue quality.Issue, err error) {
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, issue)
	}
}
