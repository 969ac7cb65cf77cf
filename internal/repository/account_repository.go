package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByUserID retrieves the user's Google account credential
func (r *AccountRepository) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).First(&account, `"userId" = ? AND "providerId" = ?`, userID, "google")
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return &account, nil
}

// UpdateTokens updates access token, refresh token, and the access token expiry
func (r *AccountRepository) UpdateTokens(ctx context.Context, accountID string, accessToken string, refreshToken string, accessTokenExpiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"accessToken":          accessToken,
			"refreshToken":         refreshToken,
			"accessTokenExpiresAt": accessTokenExpiresAt,
			"updatedAt":            time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update tokens: %w", result.Error)
	}
	return nil
}
