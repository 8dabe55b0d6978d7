package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qcflow/internal/errs"
	"qcflow/internal/infrastructure/persistence/gormstore/model"
	"qcflow/internal/ports"
)

// DBCache is a ports.Cache stored in the application database. Expired
// entries read as missing and are removed lazily.
type DBCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.Cache = (*DBCache)(nil)

func NewDBCache(db *gorm.DB) *DBCache {
	return &DBCache{db: db, now: time.Now}
}

func (c *DBCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.CacheEntry
	if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query cache by key")
	}

	if row.ExpiresAt != nil && *row.ExpiresAt <= model.FormatTime(c.now()) {
		if err := c.db.WithContext(ctx).
			Where("key = ? AND expires_at = ?", trimmedKey, *row.ExpiresAt).
			Delete(&model.CacheEntry{}).Error; err != nil {
			return "", false, errs.Wrap(err, "delete expired cache key")
		}
		return "", false, nil
	}

	return row.Value, true, nil
}

func (c *DBCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	now := c.now()
	row := model.CacheEntry{
		Key:       trimmedKey,
		Value:     value,
		UpdatedAt: model.FormatTime(now),
	}
	if ttl > 0 {
		expires := model.FormatTime(now.Add(ttl))
		row.ExpiresAt = &expires
	}

	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
			"expires_at": row.ExpiresAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

func (c *DBCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Delete(&model.CacheEntry{}).Error; err != nil {
		return errs.Wrap(err, "delete cache key")
	}
	return nil
}

func checkKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", errors.New("key is required")
	}
	return trimmedKey, nil
}
