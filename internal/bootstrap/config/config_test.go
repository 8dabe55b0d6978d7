package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "database:\n  dsn: /tmp/qc-test.sqlite\nworkflow:\n  request_ttl: 2h\nhttp:\n  allowed_origins:\n    - https://qc.example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "/tmp/qc-test.sqlite" {
		t.Fatalf("Load() database = %+v", cfg.Database)
	}
	if cfg.Workflow.RequestTTL != 2*time.Hour || cfg.Workflow.OperationTimeout != 5*time.Second {
		t.Fatalf("Load() workflow = %+v", cfg.Workflow)
	}
	if cfg.Workflow.MaxCommentLength != 5000 {
		t.Fatalf("Load() max_comment_length = %d", cfg.Workflow.MaxCommentLength)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "https://qc.example.com" {
		t.Fatalf("Load() allowed_origins = %v", cfg.HTTP.AllowedOrigins)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QC_LOG_LEVEL", "debug")
	t.Setenv("QC_EVENTS_NATS_URL", "nats://127.0.0.1:4222")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Load() log.level = %q", cfg.Log.Level)
	}
	if cfg.Events.NATSURL != "nats://127.0.0.1:4222" {
		t.Fatalf("Load() events.nats_url = %q", cfg.Events.NATSURL)
	}
}

func TestValidateRejectsBadWorkflowSettings(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{DSN: "x.sqlite"},
		Workflow: WorkflowConfig{RequestTTL: time.Hour, MaxCommentLength: 10, CommentPageSize: 0},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() expected error for comment_page_size")
	}
	cfg.Workflow.CommentPageSize = 50
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
