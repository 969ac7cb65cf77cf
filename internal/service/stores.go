package service

import (
	"context"
	"errors"
	"time"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrAlreadyRunning = errors.New("sync already running for user")
	ErrLockLost       = errors.New("sync lock lost")
	ErrCancelled      = errors.New("job cancelled")
)

// SyncJobStore persists job rows and their ordered logs.
type SyncJobStore interface {
	Create(ctx context.Context, job *models.SyncJob) error
	GetByID(ctx context.Context, jobID string) (*models.SyncJob, error)
	Update(ctx context.Context, job *models.SyncJob) error
	// AppendLog assigns and returns the next per-job sequence number.
	AppendLog(ctx context.Context, jobID, level, message string) (int64, error)
	GetLogs(ctx context.Context, jobID string, afterSeq int64) ([]models.SyncJobLog, error)
}

// SyncStateStore owns the per-user cursor and the TTL advisory lock.
type SyncStateStore interface {
	Get(ctx context.Context, userID string) (*models.SyncState, error)
	// AcquireLock is a compare-and-set: it succeeds only when no
	// non-expired lock is held for the user.
	AcquireLock(ctx context.Context, userID, jobID string, expiresAt time.Time) (bool, error)
	RefreshLock(ctx context.Context, userID, jobID string, expiresAt time.Time) error
	ReleaseLock(ctx context.Context, userID, jobID string) error
	// AdvanceCursor records the new history cursor and sync time; called
	// exactly once per completed sync.
	AdvanceCursor(ctx context.Context, userID, historyID string, syncedAt time.Time) error
}

// ApplicationStore persists the pipeline output.
type ApplicationStore interface {
	GetByMessageID(ctx context.Context, gmailMessageID string) (*models.Application, error)
	Upsert(ctx context.Context, app *models.Application) error
	BulkUpsert(ctx context.Context, apps []models.Application) error
	ListByUser(ctx context.Context, userID string) ([]models.Application, error)
	// ListStale returns rows in the given status last updated before the cutoff.
	ListStale(ctx context.Context, status models.ApplicationStatus, before time.Time) ([]models.Application, error)
	// HasSibling reports whether the user has another row for the same
	// company in any of the given statuses.
	HasSibling(ctx context.Context, userID, company, excludeID string, statuses []models.ApplicationStatus) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// AccountStore reads and refreshes the stored mailbox credential.
type AccountStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)
	UpdateTokens(ctx context.Context, accountID, accessToken, refreshToken string, accessTokenExpiresAt time.Time) error
}

// AuditStore records filtering decisions, best effort.
type AuditStore interface {
	Record(ctx context.Context, audit models.FilterAudit) error
}
