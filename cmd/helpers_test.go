package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCommand() *cobra.Command {
	c := &cobra.Command{Use: "probe"}
	c.Flags().String("actor", "", "")
	c.Flags().String("request-id", "", "")
	c.Flags().String("issue", "", "")
	c.Flags().String("title", "", "")
	c.Flags().Int("estimate", 0, "")
	return c
}

func TestActorFromFlagThenEnv(t *testing.T) {
	c := newFlagCommand()
	t.Setenv("QC_ACTOR", "")
	_, err := actorFrom(c)
	require.Error(t, err)

	t.Setenv("QC_ACTOR", "sup-1")
	actor, err := actorFrom(c)
	require.NoError(t, err)
	assert.Equal(t, "sup-1", actor)

	require.NoError(t, c.Flags().Set("actor", " wrk-1 "))
	actor, err = actorFrom(c)
	require.NoError(t, err)
	assert.Equal(t, "wrk-1", actor)
}

func TestRequestIDFromGeneratesWhenUnset(t *testing.T) {
	c := newFlagCommand()
	first := requestIDFrom(c)
	second := requestIDFrom(c)
	assert.Len(t, first, 26)
	assert.NotEqual(t, first, second)

	require.NoError(t, c.Flags().Set("request-id", "req-7"))
	assert.Equal(t, "req-7", requestIDFrom(c))
}

func TestOptionalFlagsOnlyWhenChanged(t *testing.T) {
	c := newFlagCommand()
	assert.Nil(t, optionalStringFlag(c, "title"))
	estimate, err := optionalIntFlag(c, "estimate")
	require.NoError(t, err)
	assert.Nil(t, estimate)

	require.NoError(t, c.Flags().Set("title", ""))
	require.NoError(t, c.Flags().Set("estimate", "0"))
	title := optionalStringFlag(c, "title")
	require.NotNil(t, title)
	assert.Empty(t, *title)
	estimate, err = optionalIntFlag(c, "estimate")
	require.NoError(t, err)
	require.NotNil(t, estimate)
	assert.Equal(t, 0, *estimate)
}

func TestIssueFromRequiresValue(t *testing.T) {
	c := newFlagCommand()
	_, err := issueFrom(c)
	require.Error(t, err)

	require.NoError(t, c.Flags().Set("issue", "iss-1"))
	issueID, err := issueFrom(c)
	require.NoError(t, err)
	assert.Equal(t, "iss-1", issueID)
}

func TestCommandTreeRegistersWorkflowCommands(t *testing.T) {
	for _, path := range [][]string{
		{"issue", "create"}, {"issue", "assign"}, {"issue", "finalize"}, {"issue", "history"},
		{"comment", "add"}, {"dashboard"}, {"serve"}, {"mcp"}, {"init-db"}, {"config", "show"},
	} {
		found, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}
