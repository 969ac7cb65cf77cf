package models

import "time"

// Application lifecycle status constants. The set is closed: every
// classified message maps onto exactly one of these.
type ApplicationStatus string

const (
	StatusApplied    ApplicationStatus = "applied"
	StatusInterview  ApplicationStatus = "interview"
	StatusOffer      ApplicationStatus = "offer"
	StatusRejected   ApplicationStatus = "rejected"
	StatusGhosted    ApplicationStatus = "ghosted"
	StatusUncertain  ApplicationStatus = "uncertain" // job-related but stage unclear
	StatusExcluded   ApplicationStatus = "excluded"  // sentinel, never persisted
)

// CompanyUnknown is the sentinel company name; the company column is
// never empty.
const CompanyUnknown = "Unknown"

// MergeRank orders statuses for upsert conflict resolution. An incoming
// status overwrites the stored one only when its rank is strictly higher.
// Rejection is the dominant terminal state.
var MergeRank = map[ApplicationStatus]int{
	StatusUncertain: 0,
	StatusApplied:   1,
	StatusGhosted:   1, // same rank as applied: any real signal un-ghosts via the merge path
	StatusInterview: 2,
	StatusOffer:     3,
	StatusRejected:  4,
}

// TimelineRank orders statuses for read-time timeline grouping.
var TimelineRank = map[ApplicationStatus]int{
	StatusApplied:   1,
	StatusUncertain: 2,
	StatusInterview: 3,
	StatusRejected:  4,
	StatusOffer:     5,
	StatusGhosted:   6,
}

// Application is the durable output of the sync pipeline, one row per
// classified Gmail message. gmail_message_id is the dedup key.
type Application struct {
	ID                string            `gorm:"column:id;primaryKey"`
	UserID            string            `gorm:"column:user_id;index"`
	GmailMessageID    string            `gorm:"column:gmail_message_id;uniqueIndex"`
	ThreadID          string            `gorm:"column:thread_id;index"`
	Company           string            `gorm:"column:company;index"`
	CompanyConfidence int               `gorm:"column:company_confidence"`
	CompanySource     string            `gorm:"column:company_source"`
	CompanyCandidates JSONB             `gorm:"column:company_candidates;type:jsonb"`
	ATSProvider       *string           `gorm:"column:ats_provider"`
	Role              string            `gorm:"column:role"`
	Status            ApplicationStatus `gorm:"column:status;index"`
	Subject           string            `gorm:"column:subject"`
	Snippet           string            `gorm:"column:snippet"`
	Sender            string            `gorm:"column:sender"`
	ReceivedAt        time.Time         `gorm:"column:received_at;index"`
	LastUpdatedAt     time.Time         `gorm:"column:last_updated_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Application) TableName() string {
	return "application"
}
