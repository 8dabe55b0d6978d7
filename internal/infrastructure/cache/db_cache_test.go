package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"qcflow/internal/bootstrap/config"
	"qcflow/internal/bootstrap/database"
)

func setupDBCache(t *testing.T) *DBCache {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "cache.sqlite"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewDBCache(db)
}

func TestDBCacheSetGetDelete(t *testing.T) {
	cache := setupDBCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "role:sup-1", "supervisor", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "role:sup-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "supervisor" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "role:sup-1", "admin", 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, found, err = cache.Get(ctx, "role:sup-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "admin" {
		t.Fatalf("Get() after update = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "role:sup-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, err := cache.Get(ctx, "role:sup-1"); err != nil || found {
		t.Fatalf("Get() after delete found=%v err=%v", found, err)
	}
}

func TestDBCacheHonorsTTL(t *testing.T) {
	cache := setupDBCache(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "role:wrk-1", "worker", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, err := cache.Get(ctx, "role:wrk-1"); err != nil || !found {
		t.Fatalf("Get() before expiry found=%v err=%v", found, err)
	}

	now = now.Add(2 * time.Minute)
	if _, found, err := cache.Get(ctx, "role:wrk-1"); err != nil || found {
		t.Fatalf("Get() after expiry found=%v err=%v", found, err)
	}

	if err := cache.Set(ctx, "role:wrk-1", "worker", 0); err != nil {
		t.Fatalf("Set(no ttl) error = %v", err)
	}
	now = now.Add(24 * time.Hour)
	if _, found, err := cache.Get(ctx, "role:wrk-1"); err != nil || !found {
		t.Fatalf("Get() without ttl found=%v err=%v", found, err)
	}
}

func TestDBCacheRejectsEmptyKey(t *testing.T) {
	cache := setupDBCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, " "); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
