package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

type SyncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// Get retrieves a user's sync state. Returns (nil, nil) when the user has
// never synced.
func (r *SyncStateRepository) Get(ctx context.Context, userID string) (*models.SyncState, error) {
	var state models.SyncState
	result := r.db.WithContext(ctx).First(&state, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync state: %w", result.Error)
	}
	return &state, nil
}

// AcquireLock takes the per-user advisory lock if it is free or expired.
// The conditional UPDATE is the atomicity point: exactly one of two
// concurrent callers sees RowsAffected == 1.
func (r *SyncStateRepository) AcquireLock(ctx context.Context, userID, jobID string, expiresAt time.Time) (bool, error) {
	now := time.Now()

	// Ensure the row exists; first sync for this user races here too.
	seed := models.SyncState{UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, fmt.Errorf("failed to seed sync state: %w", err)
	}

	result := r.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("user_id = ? AND (lock_job_id IS NULL OR lock_expires_at IS NULL OR lock_expires_at < ?)", userID, now).
		Updates(map[string]interface{}{
			"lock_job_id":     jobID,
			"lock_expires_at": expiresAt,
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// RefreshLock extends the lock expiry, only for the current owner
func (r *SyncStateRepository) RefreshLock(ctx context.Context, userID, jobID string, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("user_id = ? AND lock_job_id = ?", userID, jobID).
		Updates(map[string]interface{}{
			"lock_expires_at": expiresAt,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to refresh sync lock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("sync lock not held")
	}
	return nil
}

// ReleaseLock clears the lock, only for the current owner. Releasing a
// lock already taken over by another job is a no-op.
func (r *SyncStateRepository) ReleaseLock(ctx context.Context, userID, jobID string) error {
	result := r.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("user_id = ? AND lock_job_id = ?", userID, jobID).
		Updates(map[string]interface{}{
			"lock_job_id":     nil,
			"lock_expires_at": nil,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to release sync lock: %w", result.Error)
	}
	return nil
}

// AdvanceCursor records the new history cursor and last sync time
func (r *SyncStateRepository) AdvanceCursor(ctx context.Context, userID, historyID string, syncedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"history_id":     historyID,
			"last_synced_at": syncedAt,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to advance sync cursor: %w", result.Error)
	}
	return nil
}
