package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcflow/internal/domain/quality"
)

const sampleRoster = `
[[actors]]
id = "sup-1"
name = "Ayşe Demir"
role = "supervisor"

[[actors]]
id = "wrk-1"
name = "Mehmet Kaya"
role = "worker"
`

func writeRoster(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseRoster(t *testing.T) {
	roles, err := ParseRoster([]byte(sampleRoster))
	require.NoError(t, err)
	assert.Equal(t, map[string]quality.Role{
		"sup-1": quality.RoleSupervisor,
		"wrk-1": quality.RoleWorker,
	}, roles)

	_, err = ParseRoster([]byte("[[actors]]\nid = \"x\"\nrole = \"janitor\"\n"))
	assert.Error(t, err)

	_, err = ParseRoster([]byte("[[actors]]\nid = \"x\"\nrole = \"admin\"\n[[actors]]\nid = \"x\"\nrole = \"worker\"\n"))
	assert.Error(t, err)

	_, err = ParseRoster([]byte("[[actors]]\nrole = \"admin\"\n"))
	assert.Error(t, err)
}

func TestRosterResolveRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.toml")
	writeRoster(t, path, sampleRoster)

	roster, err := LoadRoster(context.Background(), path)
	require.NoError(t, err)

	role, err := roster.ResolveRole(context.Background(), "wrk-1")
	require.NoError(t, err)
	assert.Equal(t, quality.RoleWorker, role)

	_, err = roster.ResolveRole(context.Background(), "ghost")
	assert.True(t, errors.Is(err, quality.ErrNotFound), "err = %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = roster.ResolveRole(ctx, "wrk-1")
	assert.True(t, errors.Is(err, quality.ErrUnavailable), "err = %v", err)
}

func TestRosterWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.toml")
	writeRoster(t, path, sampleRoster)

	roster, err := LoadRoster(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, roster.Watch(context.Background()))
	t.Cleanup(func() { _ = roster.Close() })

	writeRoster(t, path, sampleRoster+"\n[[actors]]\nid = \"adm-1\"\nrole = \"admin\"\n")

	require.Eventually(t, func() bool {
		role, err := roster.ResolveRole(context.Background(), "adm-1")
		return err == nil && role == quality.RoleAdmin
	}, 5*time.Second, 20*time.Millisecond)

	writeRoster(t, path, "not = [valid")
	time.Sleep(100 * time.Millisecond)
	role, err := roster.ResolveRole(context.Background(), "sup-1")
	require.NoError(t, err, "broken file must keep the previous roster")
	assert.Equal(t, quality.RoleSupervisor, role)
}

func TestStaticRosterCannotReload(t *testing.T) {
	roster := NewStaticRoster(map[string]quality.Role{"adm-1": quality.RoleAdmin})

	role, err := roster.ResolveRole(context.Background(), " adm-1 ")
	require.NoError(t, err)
	assert.Equal(t, quality.RoleAdmin, role)
	assert.Error(t, roster.Reload(context.Background()))
	assert.Error(t, roster.Watch(context.Background()))
	assert.NoError(t, roster.Close())
}
