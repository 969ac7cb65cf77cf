package models

import "time"

// Account holds the stored mailbox-access credential for a user. Token
// issuance itself happens in the identity service; the worker only reads
// and refreshes. Column names use camelCase to match the frontend schema.
type Account struct {
	ID                    string     `gorm:"column:id;primaryKey"`
	AccountID             string     `gorm:"column:accountId"`
	ProviderID            string     `gorm:"column:providerId"`
	UserID                string     `gorm:"column:userId;index"`
	AccessToken           *string    `gorm:"column:accessToken"`
	RefreshToken          *string    `gorm:"column:refreshToken"`
	AccessTokenExpiresAt  *time.Time `gorm:"column:accessTokenExpiresAt"`
	RefreshTokenExpiresAt *time.Time `gorm:"column:refreshTokenExpiresAt"`
	Scope                 *string    `gorm:"column:scope"`
	CreatedAt             time.Time  `gorm:"column:createdAt"`
	UpdatedAt             time.Time  `gorm:"column:updatedAt"`
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "account"
}

// TokenExpired reports whether the access token is expired or will expire
// within the given leeway. A missing expiry is treated as expired.
func (a *Account) TokenExpired(leeway time.Duration) bool {
	if a.AccessTokenExpiresAt == nil {
		return true
	}
	return time.Now().Add(leeway).After(*a.AccessTokenExpiresAt)
}
