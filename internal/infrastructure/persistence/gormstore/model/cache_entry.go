package model

// CacheEntry backs the key-value cache. ExpiresAt nil never expires.
type CacheEntry struct {
	Key       string  `gorm:"column:key;type:text;primaryKey"`
	Value     string  `gorm:"column:value;type:text;not null"`
	UpdatedAt string  `gorm:"column:updated_at;type:text;not null"`
	ExpiresAt *string `gorm:"column:expires_at;type:text;index"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
