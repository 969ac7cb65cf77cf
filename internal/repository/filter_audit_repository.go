package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

type FilterAuditRepository struct {
	db *gorm.DB
}

func NewFilterAuditRepository(db *gorm.DB) *FilterAuditRepository {
	return &FilterAuditRepository{db: db}
}

// Record inserts one filter decision row
func (r *FilterAuditRepository) Record(ctx context.Context, audit models.FilterAudit) error {
	if err := r.db.WithContext(ctx).Create(&audit).Error; err != nil {
		return fmt.Errorf("failed to record filter audit: %w", err)
	}
	return nil
}
