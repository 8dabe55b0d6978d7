package model

type AuditRecord struct {
	Seq        uint64  `gorm:"column:seq;primaryKey;autoIncrement"`
	AuditID    string  `gorm:"column:audit_id;type:text;not null;uniqueIndex"`
	IssueID    string  `gorm:"column:issue_id;type:text;not null;index"`
	ActorID    string  `gorm:"column:actor_id;type:text;not null"`
	Kind       string  `gorm:"column:kind;type:text;not null"`
	FromStatus *string `gorm:"column:from_status;type:text"`
	ToStatus   string  `gorm:"column:to_status;type:text;not null"`
	Reason     string  `gorm:"column:reason;type:text;not null;default:''"`
	At         string  `gorm:"column:at;type:text;not null"`
}

func (AuditRecord) TableName() string {
	return "issue_audit"
}
