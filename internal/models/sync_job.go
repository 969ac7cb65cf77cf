package models

import "time"

type SyncJobStatus string

const (
	JobStatusQueued    SyncJobStatus = "queued"    // Created, waiting for the worker goroutine
	JobStatusRunning   SyncJobStatus = "running"   // Fetch/classify loop in progress
	JobStatusCompleted SyncJobStatus = "completed" // Finished, cursor advanced
	JobStatusFailed    SyncJobStatus = "failed"    // Terminal error or abandoned lock
	JobStatusCancelled SyncJobStatus = "cancelled" // User-initiated stop
)

type SyncPhase string

const (
	PhaseFetching    SyncPhase = "fetching"
	PhaseClassifying SyncPhase = "classifying"
	PhaseStoring     SyncPhase = "storing"
	PhaseFinalizing  SyncPhase = "finalizing"
)

// IsTerminal reports whether the status is one of the three final states.
func (s SyncJobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// SyncJob is one sync attempt for one user's mailbox. The row is the
// polling source of truth; progress counters and the heartbeat are
// persisted on every checkpoint.
type SyncJob struct {
	ID                 string        `gorm:"column:id;primaryKey"`
	UserID             string        `gorm:"column:user_id;index"`
	AccountID          string        `gorm:"column:account_id"`
	Status             SyncJobStatus `gorm:"column:status;index"`
	Phase              SyncPhase     `gorm:"column:phase"`
	MessagesFetched    int           `gorm:"column:messages_fetched"`
	MessagesClassified int           `gorm:"column:messages_classified"`
	MessagesStored     int           `gorm:"column:messages_stored"`
	MessagesSkipped    int           `gorm:"column:messages_skipped"`
	CategoryCounts     JSONB         `gorm:"column:category_counts;type:jsonb"`
	RatePerSecond      float64       `gorm:"column:rate_per_second"`
	ETASeconds         int           `gorm:"column:eta_seconds"`
	NextLogSeq         int64         `gorm:"column:next_log_seq"`
	HeartbeatAt        *time.Time    `gorm:"column:heartbeat_at"`
	LockExpiresAt      *time.Time    `gorm:"column:lock_expires_at"`
	ErrorMessage       *string       `gorm:"column:error_message"`
	StartedAt          *time.Time    `gorm:"column:started_at"`
	FinishedAt         *time.Time    `gorm:"column:finished_at"`
	CreatedAt          time.Time     `gorm:"column:created_at"`
	UpdatedAt          time.Time     `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (SyncJob) TableName() string {
	return "sync_job"
}

// SyncJobLog is an append-only, per-job ordered log line. Seq is strictly
// increasing within a job so clients can poll incrementally.
type SyncJobLog struct {
	ID        string    `gorm:"column:id;primaryKey"`
	JobID     string    `gorm:"column:job_id;index"`
	Seq       int64     `gorm:"column:seq"`
	Level     string    `gorm:"column:level"`
	Message   string    `gorm:"column:message"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (SyncJobLog) TableName() string {
	return "sync_job_log"
}
