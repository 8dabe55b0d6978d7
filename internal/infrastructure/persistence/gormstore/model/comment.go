package model

// Comment rows are ordered by Seq, which follows insertion order.
type Comment struct {
	Seq       uint64 `gorm:"column:seq;primaryKey;autoIncrement"`
	CommentID string `gorm:"column:comment_id;type:text;not null;uniqueIndex"`
	IssueID   string `gorm:"column:issue_id;type:text;not null;index"`
	AuthorID  string `gorm:"column:author_id;type:text;not null"`
	Body      string `gorm:"column:body;type:text;not null"`
	Kind      string `gorm:"column:kind;type:text;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (Comment) TableName() string {
	return "issue_comments"
}
