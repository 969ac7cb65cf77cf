package models

import "time"

// SyncState is one row per user: the incremental cursor, the last
// successful sync time, and the advisory lock. Only the sync controller
// mutates it; the cursor advances exactly once per completed sync.
type SyncState struct {
	UserID        string     `gorm:"column:user_id;primaryKey"`
	LastSyncedAt  *time.Time `gorm:"column:last_synced_at"`
	HistoryID     *string    `gorm:"column:history_id"` // opaque Gmail history cursor
	LockJobID     *string    `gorm:"column:lock_job_id"`
	LockExpiresAt *time.Time `gorm:"column:lock_expires_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (SyncState) TableName() string {
	return "sync_state"
}

// LockActive reports whether the advisory lock is held and not expired
// as of now. An expired lock means the owning job is presumed dead.
func (s *SyncState) LockActive(now time.Time) bool {
	return s.LockJobID != nil && s.LockExpiresAt != nil && s.LockExpiresAt.After(now)
}
