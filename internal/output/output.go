// Package output renders command results for terminals.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"qcflow/internal/domain/quality"
)

// UI writes human output to Out and diagnostics to ErrOut. With JSON set,
// results are emitted as indented JSON instead of tables.
type UI struct {
	JSON   bool
	Out    io.Writer
	ErrOut io.Writer
}

func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	magenta       = color.New(color.FgHiMagenta).SprintFunc()
)

// StatusColor colors a workflow status: waiting states yellow, active work
// cyan, approved green and rejected red.
func StatusColor(status quality.Status) string {
	s := string(status)
	switch status {
	case quality.StatusReported, quality.StatusAssigned:
		return yellow(s)
	case quality.StatusInProgress, quality.StatusFixed, quality.StatusReview:
		return cyan(s)
	case quality.StatusApproved:
		return green(s)
	case quality.StatusRejected:
		return red(s)
	default:
		return s
	}
}

func PriorityColor(priority quality.Priority) string {
	s := string(priority)
	switch priority {
	case quality.PriorityCritical:
		return magenta(s)
	case quality.PriorityHigh:
		return red(s)
	case quality.PriorityMedium:
		return yellow(s)
	default:
		return s
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) PrintJSON(v any) error {
	enc := json.NewEncoder(u.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

func (u *UI) Issues(issues []quality.Issue) error {
	if u.JSON {
		return u.PrintJSON(issues)
	}
	if len(issues) == 0 {
		u.Info("no issues")
		return nil
	}
	table := u.Table([]string{"ID", "Status", "Priority", "Title", "Assigned", "Supervisor", "Created"})
	for _, issue := range issues {
		if err := table.Append([]string{
			issue.ID,
			StatusColor(issue.Status),
			PriorityColor(issue.Priority),
			issue.Title,
			dash(issue.AssignedTo),
			issue.SupervisorID,
			formatTime(issue.CreatedAt),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// Issue prints one issue as a key/value listing, followed by the triggers
// that are valid from its status.
func (u *UI) Issue(issue quality.Issue) error {
	if u.JSON {
		return u.PrintJSON(issue)
	}
	table := u.Table([]string{"Field", "Value"})
	rows := [][]string{
		{"id", issue.ID},
		{"title", issue.Title},
		{"status", StatusColor(issue.Status)},
		{"priority", PriorityColor(issue.Priority)},
		{"location", dash(issue.Location)},
		{"reporter", issue.ReporterID},
		{"supervisor", issue.SupervisorID},
		{"assigned to", dash(issue.AssignedTo)},
		{"before photo", issue.BeforePhotoRef},
		{"after photo", dash(issue.AfterPhotoRef)},
		{"estimate (min)", intOrDash(issue.EstimatedFixTimeMinutes)},
		{"actual (min)", intOrDash(issue.ActualFixTimeMinutes)},
		{"created", formatTime(issue.CreatedAt)},
		{"assigned", timeOrDash(issue.AssignedAt)},
		{"started", timeOrDash(issue.StartedAt)},
		{"completed", timeOrDash(issue.CompletedAt)},
		{"reviewed", timeOrDash(issue.ReviewedAt)},
		{"approved", timeOrDash(issue.ApprovedAt)},
		{"version", strconv.FormatInt(issue.Version, 10)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	if desc := issue.Description; desc != "" {
		fmt.Fprintf(u.Out, "\n%s\n", desc)
	}
	if next := quality.AvailableTriggers(issue.Status); len(next) > 0 {
		fmt.Fprintf(u.Out, "\nnext: %v\n", next)
	}
	return nil
}

func (u *UI) History(records []quality.AuditRecord) error {
	if u.JSON {
		return u.PrintJSON(records)
	}
	table := u.Table([]string{"At", "Actor", "Kind", "From", "To", "Reason"})
	for _, record := range records {
		from := "-"
		if record.FromStatus != nil {
			from = string(*record.FromStatus)
		}
		if err := table.Append([]string{
			formatTime(record.At),
			record.ActorID,
			string(record.Kind),
			from,
			StatusColor(record.ToStatus),
			dash(record.Reason),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func (u *UI) Comments(comments []quality.Comment) error {
	if u.JSON {
		return u.PrintJSON(comments)
	}
	if len(comments) == 0 {
		u.Info("no comments")
		return nil
	}
	for _, c := range comments {
		fmt.Fprintf(u.Out, "%s %s [%s]\n  %s\n", cyan(formatTime(c.CreatedAt)), c.AuthorID, c.Kind, c.Text)
	}
	return nil
}

func (u *UI) Dashboard(stats quality.DashboardStats) error {
	if u.JSON {
		return u.PrintJSON(stats)
	}
	table := u.Table([]string{"Metric", "Value"})
	rows := [][]string{
		{"total", strconv.Itoa(stats.Total)},
		{"open", strconv.Itoa(stats.Open)},
		{"created today", strconv.Itoa(stats.CreatedToday)},
		{"avg fix time (min)", strconv.FormatFloat(stats.AverageFixTimeMinutes, 'f', 1, 64)},
	}
	for _, status := range quality.Statuses() {
		rows = append(rows, []string{"  " + StatusColor(status), strconv.Itoa(stats.ByStatus[status])})
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func timeOrDash(v *time.Time) string {
	if v == nil {
		return "-"
	}
	return formatTime(*v)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
