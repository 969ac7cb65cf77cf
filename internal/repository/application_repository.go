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

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// applicationConflict makes writes idempotent on the dedup key. Merge
// semantics (status priority, un-ghosting) are decided upstream; by the
// time a row reaches the repository it is the winning version.
var applicationConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "gmail_message_id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"status", "company", "company_confidence", "company_source",
		"company_candidates", "ats_provider", "role", "last_updated_at",
	}),
}

// GetByMessageID retrieves an application by its Gmail message ID.
// Returns (nil, nil) when no row exists.
func (r *ApplicationRepository) GetByMessageID(ctx context.Context, gmailMessageID string) (*models.Application, error) {
	var app models.Application
	result := r.db.WithContext(ctx).First(&app, "gmail_message_id = ?", gmailMessageID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", result.Error)
	}
	return &app, nil
}

// Upsert writes a single application row
func (r *ApplicationRepository) Upsert(ctx context.Context, app *models.Application) error {
	if err := r.db.WithContext(ctx).Clauses(applicationConflict).Create(app).Error; err != nil {
		return fmt.Errorf("failed to upsert application: %w", err)
	}
	return nil
}

// BulkUpsert writes a batch of application rows in a single statement
func (r *ApplicationRepository) BulkUpsert(ctx context.Context, apps []models.Application) error {
	if len(apps) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(applicationConflict).Create(&apps).Error; err != nil {
		return fmt.Errorf("failed to bulk upsert applications: %w", err)
	}
	return nil
}

// ListByUser retrieves all applications for a user, newest first
func (r *ApplicationRepository) ListByUser(ctx context.Context, userID string) ([]models.Application, error) {
	var apps []models.Application
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("received_at DESC").
		Find(&apps)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list applications: %w", result.Error)
	}
	return apps, nil
}

// ListStale retrieves rows in the given status whose last activity is
// older than the cutoff
func (r *ApplicationRepository) ListStale(ctx context.Context, status models.ApplicationStatus, before time.Time) ([]models.Application, error) {
	var apps []models.Application
	result := r.db.WithContext(ctx).
		Where("status = ? AND last_updated_at < ?", status, before).
		Find(&apps)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list stale applications: %w", result.Error)
	}
	return apps, nil
}

// HasSibling reports whether the user has another application for the
// same company in any of the given statuses
func (r *ApplicationRepository) HasSibling(ctx context.Context, userID, company, excludeID string, statuses []models.ApplicationStatus) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("user_id = ? AND company = ? AND id <> ? AND status IN ?", userID, company, excludeID, statuses).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check sibling applications: %w", result.Error)
	}
	return count > 0, nil
}

// UpdateStatus sets a row's status and touches the update timestamp
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update application status: %w", result.Error)
	}
	return nil
}

// DeleteByUser removes all of a user's applications and returns the count
func (r *ApplicationRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Application{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete applications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
