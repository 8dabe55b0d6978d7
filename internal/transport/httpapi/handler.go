// Package httpapi exposes the workflow engine over REST.
package httpapi

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qcflow/internal/domain/quality"
	"qcflow/internal/ports"
	"qcflow/internal/usecase/workflow"
)

const (
	// HeaderActorID names the calling actor on every request.
	HeaderActorID = "X-Actor-ID"
	// HeaderIdempotencyKey carries the optional request id of a mutating call.
	HeaderIdempotencyKey = "Idempotency-Key"
)

// Engine is the workflow surface the REST adapter serves.
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

type Handler struct {
	engine Engine
	now    func() time.Time
}

func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine, now: time.Now}
}

// Routes builds the router: /healthz plus the /v1 API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{Code: "not_found", Message: "endpoint not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, APIError{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)

		r.Route("/issues", func(r chi.Router) {
			r.Get("/", h.handleListIssues)
			r.Post("/", h.handleCreateIssue)

			r.Route("/{issueID}", func(r chi.Router) {
				r.Get("/", h.handleGetIssue)
				r.Patch("/", h.handleEditIssue)
				r.Delete("/", h.handleDeleteIssue)

				r.Post("/assign", h.handleAssign)
				r.Post("/start", h.handleStart)
				r.Post("/fix", h.handleFix)
				r.Post("/accept", h.handleAccept)
				r.Post("/reject", h.handleReject)
				r.Post("/finalize", h.handleFinalize)

				r.Get("/comments", h.handleListComments)
				r.Post("/comments", h.handleAddComment)
				r.Get("/history", h.handleHistory)
			})
		})
	})
	return r
}
