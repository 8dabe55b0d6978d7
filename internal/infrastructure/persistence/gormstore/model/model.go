package model

import "time"

// TimeLayout is fixed width so stored timestamps sort lexically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// All lists every table for schema migration.
func All() []any {
	return []any{
		&Issue{},
		&Comment{},
		&AuditRecord{},
		&RequestRecord{},
		&CacheEntry{},
	}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

func ParseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
