package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcflow/internal/domain/quality"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	color.NoColor = true
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func sampleIssue() quality.Issue {
	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	assigned := created.Add(10 * time.Minute)
	est := 30
	return quality.Issue{
		ID:                      "iss-1",
		Title:                   "Scratched door panel",
		Description:             "Deep scratch",
		Priority:                quality.PriorityHigh,
		Status:                  quality.StatusAssigned,
		ReporterID:              "rep-1",
		AssignedTo:              "wrk-1",
		SupervisorID:            "sup-1",
		BeforePhotoRef:          "blob://before.jpg",
		EstimatedFixTimeMinutes: &est,
		CreatedAt:               created,
		AssignedAt:              &assigned,
		UpdatedAt:               assigned,
		Version:                 2,
	}
}

func TestMessagesGoToTheirStreams(t *testing.T) {
	u, out, errOut := newTestUI()
	u.Info("hello %s", "world")
	u.Success("done %d", 42)
	u.Warning("careful %s", "now")
	u.Error("failed %s", "badly")

	assert.Contains(t, out.String(), "hello world")
	assert.Contains(t, out.String(), "done 42")
	assert.Contains(t, errOut.String(), "careful now")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestStatusColor(t *testing.T) {
	for _, status := range quality.Statuses() {
		assert.Contains(t, StatusColor(status), string(status))
	}
	assert.Equal(t, "unknown", StatusColor(quality.Status("unknown")))
	assert.Equal(t, "low", PriorityColor(quality.PriorityLow))
}

func TestIssuesTable(t *testing.T) {
	u, out, _ := newTestUI()
	require.NoError(t, u.Issues([]quality.Issue{sampleIssue()}))

	result := out.String()
	assert.Contains(t, result, "iss-1")
	assert.Contains(t, result, "assigned")
	assert.Contains(t, result, "wrk-1")
}

func TestIssuesEmpty(t *testing.T) {
	u, out, _ := newTestUI()
	require.NoError(t, u.Issues(nil))
	assert.Contains(t, out.String(), "no issues")
}

func TestIssueDetailListsNextTriggers(t *testing.T) {
	u, out, _ := newTestUI()
	require.NoError(t, u.Issue(sampleIssue()))

	result := out.String()
	assert.Contains(t, result, "Scratched door panel")
	assert.Contains(t, result, "Deep scratch")
	assert.Contains(t, result, "start_work")
}

func TestJSONMode(t *testing.T) {
	u, out, _ := newTestUI()
	u.JSON = true
	require.NoError(t, u.Issue(sampleIssue()))

	var decoded quality.Issue
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "iss-1", decoded.ID)
	assert.Equal(t, quality.StatusAssigned, decoded.Status)
}

func TestHistoryAndDashboard(t *testing.T) {
	u, out, _ := newTestUI()
	from := quality.StatusReported
	require.NoError(t, u.History([]quality.AuditRecord{{
		ID:         "aud-1",
		IssueID:    "iss-1",
		ActorID:    "sup-1",
		Kind:       quality.AuditTransition,
		FromStatus: &from,
		ToStatus:   quality.StatusAssigned,
		At:         time.Date(2026, 3, 2, 8, 10, 0, 0, time.UTC),
	}}))
	assert.Contains(t, out.String(), "sup-1")
	assert.Contains(t, out.String(), "reported")

	out.Reset()
	require.NoError(t, u.Dashboard(quality.DashboardStats{
		Total:                 3,
		Open:                  2,
		AverageFixTimeMinutes: 12.5,
		ByStatus:              map[quality.Status]int{quality.StatusApproved: 1},
	}))
	assert.Contains(t, out.String(), "12.5")
	assert.Contains(t, out.String(), "approved")
}
