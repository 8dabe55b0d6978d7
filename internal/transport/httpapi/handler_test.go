package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcflow/internal/bootstrap/config"
	"qcflow/internal/bootstrap/database"
	"qcflow/internal/domain/quality"
	"qcflow/internal/infrastructure/identity"
	"qcflow/internal/infrastructure/persistence/gormstore/repository"
	"qcflow/internal/infrastructure/persistence/gormstore/uow"
	"qcflow/internal/usecase/workflow"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "qcflow.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, database.Migrate(ctx, db))

	roster := identity.NewStaticRoster(map[string]quality.Role{
		"adm-1": quality.RoleAdmin,
		"sup-1": quality.RoleSupervisor,
		"wrk-1": quality.RoleWorker,
		"rep-1": quality.RoleReporter,
	})
	svc := workflow.NewService(
		repository.NewIssueRepository(db),
		uow.NewUnitOfWork(db),
		roster,
		nil,
		workflow.DefaultOptions(),
	)

	srv := httptest.NewServer(WithCORS(NewHandler(svc).Routes(), []string{"http://localhost:3000"}))
	t.Cleanup(srv.Close)
	return srv
}

type apiCall struct {
	method  string
	path    string
	actor   string
	key     string
	body    string
	headers map[string]string
}

func do(t *testing.T, srv *httptest.Server, call apiCall) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if call.body != "" {
		body = strings.NewReader(call.body)
	}
	req, err := http.NewRequest(call.method, srv.URL+call.path, body)
	require.NoError(t, err)
	if call.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if call.actor != "" {
		req.Header.Set(HeaderActorID, call.actor)
	}
	if call.key != "" {
		req.Header.Set(HeaderIdempotencyKey, call.key)
	}
	for k, v := range call.headers {
		req.Header.Set(k, v)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func decode[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(payload, &out), string(payload))
	return out
}

func createIssue(t *testing.T, srv *httptest.Server) quality.Issue {
	t.Helper()
	resp, payload := do(t, srv, apiCall{
		method: http.MethodPost,
		path:   "/v1/issues",
		actor:  "rep-1",
		body:   `{"title":"Dent in hood","priority":"high","supervisorId":"sup-1","beforePhotoRef":"blob://before.jpg"}`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(payload))
	issue := decode[quality.Issue](t, payload)
	assert.Equal(t, "/v1/issues/"+issue.ID, resp.Header.Get("Location"))
	return issue
}

func TestIssueLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	issue := createIssue(t, srv)
	base := "/v1/issues/" + issue.ID

	steps := []struct {
		call apiCall
		want quality.Status
	}{
		{apiCall{method: http.MethodPost, path: base + "/assign", actor: "sup-1", body: `{"workerId":"wrk-1"}`}, quality.StatusAssigned},
		{apiCall{method: http.MethodPost, path: base + "/start", actor: "wrk-1"}, quality.StatusInProgress},
		{apiCall{method: http.MethodPost, path: base + "/fix", actor: "wrk-1", body: `{"afterPhotoRef":"blob://after.jpg"}`}, quality.StatusFixed},
		{apiCall{method: http.MethodPost, path: base + "/accept", actor: "sup-1"}, quality.StatusReview},
		{apiCall{method: http.MethodPost, path: base + "/finalize", actor: "sup-1", body: `{"decision":"approved"}`}, quality.StatusApproved},
	}
	for _, step := range steps {
		resp, payload := do(t, srv, step.call)
		require.Equal(t, http.StatusOK, resp.StatusCode, "%s: %s", step.call.path, payload)
		assert.Equal(t, step.want, decode[quality.Issue](t, payload).Status)
	}

	resp, payload := do(t, srv, apiCall{method: http.MethodGet, path: base + "/history"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[struct {
		Items []quality.AuditRecord `json:"items"`
	}](t, payload)
	assert.Len(t, history.Items, 5)

	resp, payload = do(t, srv, apiCall{method: http.MethodGet, path: "/v1/issues?status=approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Items []quality.Issue `json:"items"`
	}](t, payload)
	require.Len(t, list.Items, 1)
	assert.Equal(t, issue.ID, list.Items[0].ID)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	issue := createIssue(t, srv)
	base := "/v1/issues/" + issue.ID

	cases := []struct {
		name   string
		call   apiCall
		status int
		code   string
	}{
		{"missing actor", apiCall{method: http.MethodPost, path: base + "/start"}, http.StatusForbidden, "forbidden"},
		{"wrong status", apiCall{method: http.MethodPost, path: base + "/start", actor: "wrk-1"}, http.StatusConflict, "invalid_transition"},
		{"guard", apiCall{method: http.MethodPost, path: base + "/assign", actor: "wrk-1", body: `{"workerId":"wrk-1"}`}, http.StatusForbidden, "forbidden"},
		{"precondition", apiCall{method: http.MethodPost, path: base + "/assign", actor: "sup-1", body: `{"workerId":"rep-1"}`}, http.StatusUnprocessableEntity, "precondition_failed"},
		{"unknown issue", apiCall{method: http.MethodGet, path: "/v1/issues/nope"}, http.StatusNotFound, "not_found"},
		{"malformed body", apiCall{method: http.MethodPost, path: base + "/assign", actor: "sup-1", body: `{"workerId":`}, http.StatusBadRequest, "invalid_request"},
		{"unknown field", apiCall{method: http.MethodPost, path: base + "/assign", actor: "sup-1", body: `{"worker":"wrk-1"}`}, http.StatusBadRequest, "invalid_request"},
		{"bad status filter", apiCall{method: http.MethodGet, path: "/v1/issues?status=done"}, http.StatusBadRequest, "invalid_request"},
		{"bad tz", apiCall{method: http.MethodGet, path: "/v1/dashboard?tz=Mars/Olympus"}, http.StatusBadRequest, "invalid_request"},
		{"unknown route", apiCall{method: http.MethodGet, path: "/v2/issues"}, http.StatusNotFound, "not_found"},
		{"delete by non-admin", apiCall{method: http.MethodDelete, path: base, actor: "sup-1"}, http.StatusForbidden, "forbidden"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, payload := do(t, srv, tc.call)
			require.Equal(t, tc.status, resp.StatusCode, string(payload))
			envelope := decode[ErrorEnvelope](t, payload)
			assert.Equal(t, tc.code, envelope.Error.Code)
			assert.NotEmpty(t, envelope.Error.Message)
		})
	}
}

func TestIdempotencyKeyReplaysResponse(t *testing.T) {
	srv := newTestServer(t)
	issue := createIssue(t, srv)
	call := apiCall{
		method: http.MethodPost,
		path:   "/v1/issues/" + issue.ID + "/assign",
		actor:  "sup-1",
		key:    "assign-7",
		body:   `{"workerId":"wrk-1"}`,
	}

	first, firstBody := do(t, srv, call)
	require.Equal(t, http.StatusOK, first.StatusCode)
	second, secondBody := do(t, srv, call)
	require.Equal(t, http.StatusOK, second.StatusCode, string(secondBody))
	assert.JSONEq(t, string(firstBody), string(secondBody))

	reuse := apiCall{method: http.MethodPost, path: "/v1/issues/" + issue.ID + "/start", actor: "wrk-1", key: "assign-7"}
	resp, payload := do(t, srv, reuse)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decode[ErrorEnvelope](t, payload).Error.Code)
}

func TestCommentsEditAndDelete(t *testing.T) {
	srv := newTestServer(t)
	issue := createIssue(t, srv)
	base := "/v1/issues/" + issue.ID

	resp, payload := do(t, srv, apiCall{method: http.MethodPost, path: base + "/comments", actor: "sup-1", body: `{"text":"check paint code","kind":"review"}`})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(payload))
	resp, payload = do(t, srv, apiCall{method: http.MethodPost, path: base + "/comments", actor: "rep-1", body: `{"text":"   "}`})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(payload))

	resp, payload = do(t, srv, apiCall{method: http.MethodGet, path: base + "/comments"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := decode[struct {
		Items []quality.Comment `json:"items"`
	}](t, payload)
	require.Len(t, comments.Items, 1)
	assert.Equal(t, quality.CommentReview, comments.Items[0].Kind)

	resp, payload = do(t, srv, apiCall{method: http.MethodPatch, path: base, actor: "rep-1", body: `{"location":"Bay 4"}`})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(payload))
	assert.Equal(t, "Bay 4", decode[quality.Issue](t, payload).Location)

	resp, _ = do(t, srv, apiCall{method: http.MethodDelete, path: base, actor: "adm-1"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, srv, apiCall{method: http.MethodGet, path: base + "/comments"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditSetsAndClearsEstimate(t *testing.T) {
	srv := newTestServer(t)
	issue := createIssue(t, srv)
	base := "/v1/issues/" + issue.ID

	resp, payload := do(t, srv, apiCall{method: http.MethodPatch, path: base, actor: "rep-1", body: `{"estimatedFixTimeMinutes":30}`})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(payload))
	require.NotNil(t, decode[quality.Issue](t, payload).EstimatedFixTimeMinutes)

	resp, payload = do(t, srv, apiCall{method: http.MethodPatch, path: base, actor: "rep-1", body: `{"estimatedFixTimeMinutes":10,"clearEstimate":true}`})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(payload))

	resp, payload = do(t, srv, apiCall{method: http.MethodPatch, path: base, actor: "rep-1", body: `{"clearEstimate":true}`})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(payload))
	assert.Nil(t, decode[quality.Issue](t, payload).EstimatedFixTimeMinutes)

	resp, payload = do(t, srv, apiCall{method: http.MethodGet, path: base})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, decode[quality.Issue](t, payload).EstimatedFixTimeMinutes)
}

func TestDashboardAndHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := do(t, srv, apiCall{method: http.MethodGet, path: "/v1/dashboard"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[quality.DashboardStats](t, payload)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.AverageFixTimeMinutes)

	createIssue(t, srv)
	resp, payload = do(t, srv, apiCall{method: http.MethodGet, path: "/v1/dashboard?tz=Europe/Istanbul"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[quality.DashboardStats](t, payload)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Open)

	resp, _ = do(t, srv, apiCall{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, srv, apiCall{
		method: http.MethodOptions,
		path:   "/v1/issues",
		headers: map[string]string{
			"Origin":                         "http://localhost:3000",
			"Access-Control-Request-Method":  http.MethodPost,
			"Access-Control-Request-Headers": HeaderActorID,
		},
	})
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = do(t, srv, apiCall{
		method:  http.MethodGet,
		path:    "/healthz",
		headers: map[string]string{"Origin": "https://evil.example"},
	})
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnavailableSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErrorFrom(rec, quality.Unavailable(errors.New("database is locked")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	envelope := decode[ErrorEnvelope](t, rec.Body.Bytes())
	assert.Equal(t, "unavailable", envelope.Error.Code)

	rec = httptest.NewRecorder()
	writeErrorFrom(rec, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decode[ErrorEnvelope](t, rec.Body.Bytes()).Error.Code)
}
