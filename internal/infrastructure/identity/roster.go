package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/ports"
)

// RosterEntry is one actor in roster.toml:
//
//	[[actors]]
//	id = "sup-1"
//	name = "Ayşe Demir"
//	role = "supervisor"
type RosterEntry struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	Role string `toml:"role"`
}

type rosterDocument struct {
	Actors []RosterEntry `toml:"actors"`
}

// Roster resolves actor roles from a TOML file, optionally reloading it when
// the file changes. A failed reload keeps the previous roster.
type Roster struct {
	path string

	mu    sync.RWMutex
	roles map[string]quality.Role

	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ ports.IdentityProvider = (*Roster)(nil)

// NewStaticRoster returns an in-memory roster that never reloads.
func NewStaticRoster(roles map[string]quality.Role) *Roster {
	copied := make(map[string]quality.Role, len(roles))
	for id, role := range roles {
		copied[id] = role
	}
	return &Roster{roles: copied}
}

func LoadRoster(ctx context.Context, path string) (*Roster, error) {
	r := &Roster{path: filepath.Clean(path)}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseRoster decodes roster TOML into an id -> role map.
func ParseRoster(data []byte) (map[string]quality.Role, error) {
	var doc rosterDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(err, "decode roster toml")
	}

	roles := make(map[string]quality.Role, len(doc.Actors))
	for idx, entry := range doc.Actors {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("roster actor #%d has no id", idx+1)
		}
		role, ok := quality.ParseRole(entry.Role)
		if !ok {
			return nil, fmt.Errorf("roster actor %q has unknown role %q", id, entry.Role)
		}
		if _, dup := roles[id]; dup {
			return nil, fmt.Errorf("roster actor %q is listed twice", id)
		}
		roles[id] = role
	}
	return roles, nil
}

func (r *Roster) Reload(ctx context.Context) error {
	if r.path == "" {
		return errors.New("roster has no backing file")
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return errs.Wrapf(err, "read roster %q", r.path)
	}
	roles, err := ParseRoster(data)
	if err != nil {
		return errs.Wrapf(err, "parse roster %q", r.path)
	}

	r.mu.Lock()
	r.roles = roles
	r.mu.Unlock()

	logging.Info(
		logging.WithComponent(ctx, "identity.roster"),
		"roster loaded",
		slog.String("path", r.path),
		slog.Int("actors", len(roles)),
	)
	return nil
}

func (r *Roster) ResolveRole(ctx context.Context, actorID string) (quality.Role, error) {
	if err := ctx.Err(); err != nil {
		return "", quality.Unavailable(err)
	}

	r.mu.RLock()
	role, ok := r.roles[strings.TrimSpace(actorID)]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: actor %q", quality.ErrNotFound, actorID)
	}
	return role, nil
}

// Watch reloads the roster whenever its file is written or replaced, until
// Close. The parent directory is watched so editors that swap files are seen.
func (r *Roster) Watch(ctx context.Context) error {
	if r.path == "" {
		return errors.New("roster has no backing file")
	}
	if r.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create roster watcher")
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		_ = watcher.Close()
		return errs.Wrapf(err, "watch roster dir %q", filepath.Dir(r.path))
	}

	r.watcher = watcher
	r.done = make(chan struct{})
	logCtx := logging.WithComponent(context.WithoutCancel(ctx), "identity.roster")

	go func() {
		defer close(r.done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != r.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := r.Reload(logCtx); err != nil {
					logging.Warn(logCtx, "roster reload failed, keeping previous roster", slog.Any("err", errs.Loggable(err)))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn(logCtx, "roster watcher error", slog.Any("err", errs.Loggable(err)))
			}
		}
	}()
	return nil
}

func (r *Roster) Close() error {
	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Close()
	<-r.done
	r.watcher = nil
	return err
}
