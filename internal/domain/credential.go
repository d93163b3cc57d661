package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the single authentication record per account. Lockout state
// and the token epoch live here; nothing outside the credential service may
// mutate them.
type Credential struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserID              uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	PasswordHash        string     `gorm:"size:1024;not null" json:"-"`
	TokenEpoch          int        `gorm:"not null;default:0" json:"token_epoch"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	Locked              bool       `gorm:"not null;default:false" json:"locked"`
	FailedAttempts      int        `gorm:"not null;default:0" json:"failed_attempts"`
	ResetToken          *string    `gorm:"size:128;uniqueIndex" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasActiveResetToken treats an expired token as absent.
func (c *Credential) HasActiveResetToken(now time.Time) bool {
	return c.ResetToken != nil && c.ResetTokenExpiresAt != nil && c.ResetTokenExpiresAt.After(now)
}
