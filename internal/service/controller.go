package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

// Controller owns the sync job lifecycle: creation under the per-user
// advisory lock, progress checkpoints with heartbeat and lock refresh,
// and terminal transitions. All lock mutations go through here.
type Controller struct {
	jobs   SyncJobStore
	states SyncStateStore
	// LockTTL bounds how long a crashed job can block its user.
	lockTTL time.Duration
	now     func() time.Time
}

func NewController(jobs SyncJobStore, states SyncStateStore, lockTTL time.Duration) *Controller {
	return &Controller{
		jobs:    jobs,
		states:  states,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// CreateJob creates a queued job for the user if no other sync is active.
// When an unexpired lock is held it returns the existing job alongside
// ErrAlreadyRunning. An expired lock means the owner died mid-sync: that
// job is force-failed and the lock is taken over.
func (c *Controller) CreateJob(ctx context.Context, userID, accountID string) (*models.SyncJob, error) {
	now := c.now()

	state, err := c.states.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	if state != nil && state.LockJobID != nil {
		if state.LockActive(now) {
			existing, err := c.jobs.GetByID(ctx, *state.LockJobID)
			if err != nil {
				return nil, fmt.Errorf("failed to load running job: %w", err)
			}
			return existing, ErrAlreadyRunning
		}
		if err := c.failAbandoned(ctx, *state.LockJobID); err != nil {
			log.Printf("failed to mark abandoned job %s: %v", *state.LockJobID, err)
		}
	}

	jobID := uuid.New().String()
	expiresAt := now.Add(c.lockTTL)
	acquired, err := c.states.AcquireLock(ctx, userID, jobID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		// Lost the race to a concurrent start.
		state, err = c.states.Get(ctx, userID)
		if err == nil && state != nil && state.LockJobID != nil {
			if existing, gerr := c.jobs.GetByID(ctx, *state.LockJobID); gerr == nil {
				return existing, ErrAlreadyRunning
			}
		}
		return nil, ErrAlreadyRunning
	}

	job := &models.SyncJob{
		ID:             jobID,
		UserID:         userID,
		AccountID:      accountID,
		Status:         models.JobStatusQueued,
		Phase:          models.PhaseFetching,
		CategoryCounts: models.JSONB{},
		NextLogSeq:     1,
		LockExpiresAt:  &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		if rerr := c.states.ReleaseLock(ctx, userID, jobID); rerr != nil {
			log.Printf("failed to release lock after job create error: %v", rerr)
		}
		return nil, fmt.Errorf("failed to create sync job: %w", err)
	}
	c.AppendLog(ctx, job, "info", "sync job created")
	return job, nil
}

// failAbandoned marks a lock-holding job whose heartbeat lapsed as failed.
// Terminal jobs are left untouched; the stale lock alone is harmless
// because AcquireLock ignores expired locks.
func (c *Controller) failAbandoned(ctx context.Context, jobID string) error {
	job, err := c.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	now := c.now()
	msg := "abandoned: lock expired without heartbeat"
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &msg
	job.FinishedAt = &now
	job.UpdatedAt = now
	if err := c.jobs.Update(ctx, job); err != nil {
		return err
	}
	c.AppendLog(ctx, job, "error", msg)
	return nil
}

// StartJob transitions a queued job to running.
func (c *Controller) StartJob(ctx context.Context, job *models.SyncJob) error {
	now := c.now()
	job.Status = models.JobStatusRunning
	job.Phase = models.PhaseFetching
	job.StartedAt = &now
	job.HeartbeatAt = &now
	job.UpdatedAt = now
	if err := c.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to start job: %w", err)
	}
	c.AppendLog(ctx, job, "info", "sync started")
	return nil
}

// Checkpoint persists the job's counters, refreshes the heartbeat and the
// advisory lock, and recomputes rate and ETA. It is also the cancellation
// and fencing point: a cancelled row or a lost lock aborts the sync.
func (c *Controller) Checkpoint(ctx context.Context, job *models.SyncJob, phase models.SyncPhase) error {
	current, err := c.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to reload job: %w", err)
	}
	if current.Status == models.JobStatusCancelled {
		return ErrCancelled
	}

	state, err := c.states.Get(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}
	if state == nil || state.LockJobID == nil || *state.LockJobID != job.ID {
		return ErrLockLost
	}

	now := c.now()
	expiresAt := now.Add(c.lockTTL)
	if err := c.states.RefreshLock(ctx, job.UserID, job.ID, expiresAt); err != nil {
		return fmt.Errorf("failed to refresh sync lock: %w", err)
	}

	job.Phase = phase
	job.HeartbeatAt = &now
	job.LockExpiresAt = &expiresAt
	if job.StartedAt != nil {
		elapsed := now.Sub(*job.StartedAt).Seconds()
		if elapsed > 0 && job.MessagesFetched > 0 {
			job.RatePerSecond = float64(job.MessagesFetched) / elapsed
			remaining := job.MessagesFetched - job.MessagesClassified - job.MessagesSkipped
			if remaining > 0 && job.RatePerSecond > 0 {
				job.ETASeconds = int(float64(remaining) / job.RatePerSecond)
			} else {
				job.ETASeconds = 0
			}
		}
	}
	job.UpdatedAt = now
	if err := c.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to checkpoint job: %w", err)
	}
	return nil
}

// CompleteJob finalizes a successful sync: the cursor advances and the
// lock is released, in that order.
func (c *Controller) CompleteJob(ctx context.Context, job *models.SyncJob, historyID string) error {
	now := c.now()
	if historyID != "" {
		if err := c.states.AdvanceCursor(ctx, job.UserID, historyID, now); err != nil {
			return fmt.Errorf("failed to advance sync cursor: %w", err)
		}
	}
	if err := c.states.ReleaseLock(ctx, job.UserID, job.ID); err != nil {
		log.Printf("failed to release sync lock for job %s: %v", job.ID, err)
	}

	job.Status = models.JobStatusCompleted
	job.Phase = models.PhaseFinalizing
	job.FinishedAt = &now
	job.LockExpiresAt = nil
	job.ETASeconds = 0
	job.UpdatedAt = now
	if err := c.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	c.AppendLog(ctx, job, "info", fmt.Sprintf("sync completed: %d fetched, %d classified, %d stored, %d skipped",
		job.MessagesFetched, job.MessagesClassified, job.MessagesStored, job.MessagesSkipped))
	return nil
}

// FailJob marks the job failed and releases the lock. The cursor is not
// advanced, so the next sync retries the same window.
func (c *Controller) FailJob(ctx context.Context, job *models.SyncJob, cause error) {
	ctx = context.WithoutCancel(ctx)
	now := c.now()
	msg := cause.Error()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &msg
	job.FinishedAt = &now
	job.LockExpiresAt = nil
	job.UpdatedAt = now
	if err := c.jobs.Update(ctx, job); err != nil {
		log.Printf("failed to mark job %s failed: %v", job.ID, err)
	}
	if err := c.states.ReleaseLock(ctx, job.UserID, job.ID); err != nil {
		log.Printf("failed to release sync lock for job %s: %v", job.ID, err)
	}
	c.AppendLog(ctx, job, "error", fmt.Sprintf("sync failed: %s", msg))
}

// CancelJob requests cooperative cancellation. The running goroutine
// observes the status flip at its next checkpoint.
func (c *Controller) CancelJob(ctx context.Context, jobID string) error {
	job, err := c.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	now := c.now()
	job.Status = models.JobStatusCancelled
	job.FinishedAt = &now
	job.UpdatedAt = now
	if err := c.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	if err := c.states.ReleaseLock(ctx, job.UserID, job.ID); err != nil {
		log.Printf("failed to release sync lock for job %s: %v", job.ID, err)
	}
	c.AppendLog(ctx, job, "warn", "sync cancelled by user")
	return nil
}

// AppendLog appends a job log line with the next per-job sequence number.
// Log failures are reported but never fail the sync itself.
func (c *Controller) AppendLog(ctx context.Context, job *models.SyncJob, level, message string) {
	if _, err := c.jobs.AppendLog(ctx, job.ID, level, message); err != nil {
		log.Printf("failed to append log for job %s: %v", job.ID, err)
	}
}
