package models

import "time"

// Filter audit stage constants
const (
	AuditStageHeuristic  = "heuristic"
	AuditStageClassifier = "classifier"
)

// FilterAudit records one filtering decision for later rule tuning.
// Written best-effort; a failed audit insert never fails the sync.
type FilterAudit struct {
	ID             string    `gorm:"column:id;primaryKey"`
	JobID          string    `gorm:"column:job_id;index"`
	GmailMessageID string    `gorm:"column:gmail_message_id"`
	Stage          string    `gorm:"column:stage"`
	Accepted       bool      `gorm:"column:accepted"`
	Score          float64   `gorm:"column:score"`
	Reason         string    `gorm:"column:reason"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (FilterAudit) TableName() string {
	return "filter_audit"
}
