package model

type Issue struct {
	IssueID                 string  `gorm:"column:issue_id;type:text;primaryKey"`
	Title                   string  `gorm:"column:title;type:text;not null"`
	Description             string  `gorm:"column:description;type:text;not null"`
	Location                string  `gorm:"column:location;type:text;not null;default:''"`
	Priority                string  `gorm:"column:priority;type:text;not null"`
	Status                  string  `gorm:"column:status;type:text;not null;index"`
	ReporterID              string  `gorm:"column:reporter_id;type:text;not null;index"`
	AssignedTo              *string `gorm:"column:assigned_to;type:text;index"`
	SupervisorID            string  `gorm:"column:supervisor_id;type:text;not null;index"`
	BeforePhotoRef          string  `gorm:"column:before_photo_ref;type:text;not null"`
	AfterPhotoRef           *string `gorm:"column:after_photo_ref;type:text"`
	EstimatedFixTimeMinutes *int    `gorm:"column:estimated_fix_time_minutes"`
	ActualFixTimeMinutes    *int    `gorm:"column:actual_fix_time_minutes"`
	CreatedAt               string  `gorm:"column:created_at;type:text;not null;index"`
	AssignedAt              *string `gorm:"column:assigned_at;type:text"`
	StartedAt               *string `gorm:"column:started_at;type:text"`
	CompletedAt             *string `gorm:"column:completed_at;type:text"`
	ReviewedAt              *string `gorm:"column:reviewed_at;type:text"`
	ApprovedAt              *string `gorm:"column:approved_at;type:text"`
	UpdatedAt               string  `gorm:"column:updated_at;type:text;not null"`
	Version                 int64   `gorm:"column:version;not null;default:1"`
}

func (Issue) TableName() string {
	return "issues"
}
