package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken binds an opaque refresh token to its owner. Only a peppered
// hash of the token is stored; rotation revokes the row and issues a new one,
// so every refresh token is single-use.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	UserAgent string     `gorm:"size:512" json:"user_agent"`
	IP        string     `gorm:"size:64" json:"ip"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
