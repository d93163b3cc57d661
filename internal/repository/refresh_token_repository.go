package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sai-edu/sai-backend/internal/domain"
)

type RefreshTokenRepository interface {
	Create(t *domain.RefreshToken) error
	FindValidByHash(hash string) (*domain.RefreshToken, error)
	RevokeByHash(hash string) error
	RevokeByUserID(userID uuid.UUID) (int64, error)
	CleanupExpired() (int64, error)
}

type GormRefreshTokenRepository struct{ db *gorm.DB }

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

func (r *GormRefreshTokenRepository) Create(t *domain.RefreshToken) error {
	return r.db.Create(t).Error
}

func (r *GormRefreshTokenRepository) FindValidByHash(hash string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", hash, time.Now()).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormRefreshTokenRepository) RevokeByHash(hash string) error {
	now := time.Now()
	return r.db.Model(&domain.RefreshToken{}).Where("token_hash = ? AND revoked_at IS NULL", hash).Update("revoked_at", now).Error
}

func (r *GormRefreshTokenRepository) RevokeByUserID(userID uuid.UUID) (int64, error) {
	now := time.Now()
	res := r.db.Model(&domain.RefreshToken{}).Where("user_id = ? AND revoked_at IS NULL", userID).Update("revoked_at", now)
	return res.RowsAffected, res.Error
}

func (r *GormRefreshTokenRepository) CleanupExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", time.Now()).Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}
