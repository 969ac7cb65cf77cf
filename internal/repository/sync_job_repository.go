package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
	"github.com/prachikotadia/jobpulse-worker/internal/service"
)

// SyncJobRepository uses raw SQL: the job row is the hot path, written on
// every checkpoint and polled by the progress endpoint, and log appends
// need a transactional sequence allocation that is awkward to express in
// the ORM.
type SyncJobRepository struct {
	db *sql.DB
}

func NewSyncJobRepository(db *sql.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Create creates a new sync job row
func (r *SyncJobRepository) Create(ctx context.Context, job *models.SyncJob) error {
	query := `
		INSERT INTO sync_job (
			id, user_id, account_id, status, phase,
			messages_fetched, messages_classified, messages_stored, messages_skipped,
			category_counts, rate_per_second, eta_seconds, next_log_seq,
			heartbeat_at, lock_expires_at, error_message,
			started_at, finished_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.AccountID,
		job.Status,
		job.Phase,
		job.MessagesFetched,
		job.MessagesClassified,
		job.MessagesStored,
		job.MessagesSkipped,
		job.CategoryCounts,
		job.RatePerSecond,
		job.ETASeconds,
		job.NextLogSeq,
		job.HeartbeatAt,
		job.LockExpiresAt,
		job.ErrorMessage,
		job.StartedAt,
		job.FinishedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync job: %w", err)
	}
	return nil
}

// GetByID retrieves a sync job by ID
func (r *SyncJobRepository) GetByID(ctx context.Context, jobID string) (*models.SyncJob, error) {
	query := `
		SELECT id, user_id, account_id, status, phase,
		       messages_fetched, messages_classified, messages_stored, messages_skipped,
		       category_counts, rate_per_second, eta_seconds, next_log_seq,
		       heartbeat_at, lock_expires_at, error_message,
		       started_at, finished_at, created_at, updated_at
		FROM sync_job
		WHERE id = $1
	`

	var job models.SyncJob
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID,
		&job.UserID,
		&job.AccountID,
		&job.Status,
		&job.Phase,
		&job.MessagesFetched,
		&job.MessagesClassified,
		&job.MessagesStored,
		&job.MessagesSkipped,
		&job.CategoryCounts,
		&job.RatePerSecond,
		&job.ETASeconds,
		&job.NextLogSeq,
		&job.HeartbeatAt,
		&job.LockExpiresAt,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.FinishedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get sync job: %w", err)
	}
	return &job, nil
}

// Update persists the full mutable state of a job. A row already in a
// terminal status keeps it; a late checkpoint from the worker loop must
// not resurrect a cancelled job.
func (r *SyncJobRepository) Update(ctx context.Context, job *models.SyncJob) error {
	query := `
		UPDATE sync_job
		SET status = CASE WHEN status IN ('completed', 'failed', 'cancelled') THEN status ELSE $2 END,
		    phase = $3,
		    messages_fetched = $4,
		    messages_classified = $5,
		    messages_stored = $6,
		    messages_skipped = $7,
		    category_counts = $8,
		    rate_per_second = $9,
		    eta_seconds = $10,
		    heartbeat_at = $11,
		    lock_expires_at = $12,
		    error_message = $13,
		    started_at = $14,
		    finished_at = $15,
		    updated_at = $16
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.Status,
		job.Phase,
		job.MessagesFetched,
		job.MessagesClassified,
		job.MessagesStored,
		job.MessagesSkipped,
		job.CategoryCounts,
		job.RatePerSecond,
		job.ETASeconds,
		job.HeartbeatAt,
		job.LockExpiresAt,
		job.ErrorMessage,
		job.StartedAt,
		job.FinishedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return service.ErrJobNotFound
	}
	return nil
}

// AppendLog allocates the next per-job sequence number and inserts the
// log line in one transaction, so sequences are gapless and strictly
// increasing even with concurrent writers.
func (r *SyncJobRepository) AppendLog(ctx context.Context, jobID, level, message string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin log transaction: %w", err)
	}
	defer tx.Rollback()

	var nextSeq int64
	err = tx.QueryRowContext(ctx,
		`UPDATE sync_job SET next_log_seq = next_log_seq + 1 WHERE id = $1 RETURNING next_log_seq`,
		jobID,
	).Scan(&nextSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, service.ErrJobNotFound
		}
		return 0, fmt.Errorf("failed to allocate log sequence: %w", err)
	}
	seq := nextSeq - 1

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_job_log (id, job_id, seq, level, message, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), jobID, seq, level, message, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert log line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit log transaction: %w", err)
	}
	return seq, nil
}

// GetLogs retrieves log lines with seq greater than afterSeq, in order
func (r *SyncJobRepository) GetLogs(ctx context.Context, jobID string, afterSeq int64) ([]models.SyncJobLog, error) {
	query := `
		SELECT id, job_id, seq, level, message, created_at
		FROM sync_job_log
		WHERE job_id = $1 AND seq > $2
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, jobID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to query job logs: %w", err)
	}
	defer rows.Close()

	var logs []models.SyncJobLog
	for rows.Next() {
		var l models.SyncJobLog
		if err := rows.Scan(&l.ID, &l.JobID, &l.Seq, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log line: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job logs: %w", err)
	}
	return logs, nil
}
