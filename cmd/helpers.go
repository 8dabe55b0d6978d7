package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"qcflow/internal/output"
)

func actorFrom(cmd *cobra.Command) (string, error) {
	actor, _ := cmd.Flags().GetString("actor")
	if strings.TrimSpace(actor) == "" {
		actor = os.Getenv("QC_ACTOR")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", errors.New("--actor is required (or set QC_ACTOR)")
	}
	return actor, nil
}

// requestIDFrom returns --request-id, or a fresh ULID so that every CLI
// invocation is still recorded for replay.
func requestIDFrom(cmd *cobra.Command) string {
	requestID, _ := cmd.Flags().GetString("request-id")
	if trimmed := strings.TrimSpace(requestID); trimmed != "" {
		return trimmed
	}
	return ulid.Make().String()
}

func issueFrom(cmd *cobra.Command) (string, error) {
	issueID, _ := cmd.Flags().GetString("issue")
	issueID = strings.TrimSpace(issueID)
	if issueID == "" {
		return "", errors.New("--issue is required")
	}
	return issueID, nil
}

func newUI(cmd *cobra.Command) *output.UI {
	return &output.UI{
		JSON:   jsonOutput,
		Out:    cmd.OutOrStdout(),
		ErrOut: cmd.ErrOrStderr(),
	}
}

func optionalStringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func optionalIntFlag(cmd *cobra.Command, name string) (*int, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil, fmt.Errorf("read --%s: %w", name, err)
	}
	return &v, nil
}
