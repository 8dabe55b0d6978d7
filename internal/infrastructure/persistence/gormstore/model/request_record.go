package model

type RequestRecord struct {
	RequestID    string `gorm:"column:request_id;type:text;primaryKey"`
	Operation    string `gorm:"column:operation;type:text;not null"`
	IssueID      string `gorm:"column:issue_id;type:text;not null;default:''"`
	ActorID      string `gorm:"column:actor_id;type:text;not null;default:''"`
	ResponseJSON string `gorm:"column:response_json;type:text;not null"`
	CreatedAt    string `gorm:"column:created_at;type:text;not null"`
	ExpiresAt    string `gorm:"column:expires_at;type:text;not null;index"`
}

func (RequestRecord) TableName() string {
	return "request_records"
}
