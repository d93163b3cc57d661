package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sai-edu/sai-backend/internal/domain"
)

var (
	ErrCredentialNotFound  = errors.New("credential not found")
	ErrDuplicateCredential = errors.New("credential already exists for account")
)

type CredentialRepository interface {
	Create(credential *domain.Credential) error
	FindByUserID(userID uuid.UUID) (*domain.Credential, error)
	FindByEmail(email string) (*domain.Credential, error)
	FindByActiveResetToken(token string, now time.Time) (*domain.Credential, error)
	RecordLoginSuccess(userID uuid.UUID, now time.Time) error
	RecordLoginFailure(userID uuid.UUID, threshold int) (*domain.Credential, error)
	SetResetToken(userID uuid.UUID, token string, expiresAt time.Time) error
	ClearResetToken(userID uuid.UUID) error
	UpdatePassword(userID uuid.UUID, newHash string) error
	BumpTokenEpoch(userID uuid.UUID) error
	TokenEpoch(userID uuid.UUID) (int, error)
	DeleteByUserID(userID uuid.UUID) error
}

type GormCredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) Create(credential *domain.Credential) error {
	var existing domain.Credential
	err := r.db.Where("user_id = ?", credential.UserID).First(&existing).Error
	if err == nil {
		return ErrDuplicateCredential
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := r.db.Create(credential).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCredential
		}
		return err
	}
	return nil
}

func (r *GormCredentialRepository) FindByUserID(userID uuid.UUID) (*domain.Credential, error) {
	var c domain.Credential
	if err := r.db.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormCredentialRepository) FindByEmail(email string) (*domain.Credential, error) {
	var c domain.Credential
	err := r.db.
		Joins("JOIN users ON users.id = credentials.user_id").
		Where("users.email = ?", email).
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormCredentialRepository) FindByActiveResetToken(token string, now time.Time) (*domain.Credential, error) {
	var c domain.Credential
	err := r.db.
		Where("reset_token = ? AND reset_token_expires_at > ?", token, now).
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormCredentialRepository) RecordLoginSuccess(userID uuid.UUID, now time.Time) error {
	return r.db.Model(&domain.Credential{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"last_login_at":   now,
			"failed_attempts": 0,
			"locked":          false,
			"updated_at":      now,
		}).Error
}

// RecordLoginFailure increments the counter and derives the lock flag in a
// single UPDATE so concurrent failures against the same account cannot
// observe a stale count and undercount the lockout.
func (r *GormCredentialRepository) RecordLoginFailure(userID uuid.UUID, threshold int) (*domain.Credential, error) {
	res := r.db.Model(&domain.Credential{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"failed_attempts": gorm.Expr("failed_attempts + 1"),
			"locked":          gorm.Expr("failed_attempts + 1 >= ?", threshold),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrCredentialNotFound
	}
	return r.FindByUserID(userID)
}

func (r *GormCredentialRepository) SetResetToken(userID uuid.UUID, token string, expiresAt time.Time) error {
	return r.db.Model(&domain.Credential{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"reset_token":            token,
			"reset_token_expires_at": expiresAt,
			"updated_at":             time.Now().UTC(),
		}).Error
}

func (r *GormCredentialRepository) ClearResetToken(userID uuid.UUID) error {
	return r.db.Model(&domain.Credential{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"reset_token":            nil,
			"reset_token_expires_at": nil,
			"updated_at":             time.Now().UTC(),
		}).Error
}

// UpdatePassword installs the new hash and clears the lockout state so a
// reset always restores access.
func (r *GormCredentialRepository) UpdatePassword(userID uuid.UUID, newHash string) error {
	return r.db.Model(&domain.Credential{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"password_hash":   newHash,
			"failed_attempts": 0,
			"locked":          false,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *GormCredentialRepository) BumpTokenEpoch(userID uuid.UUID) error {
	res := r.db.Model(&domain.Credential{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"token_epoch": gorm.Expr("token_epoch + 1"),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

func (r *GormCredentialRepository) TokenEpoch(userID uuid.UUID) (int, error) {
	var c domain.Credential
	if err := r.db.Select("token_epoch").Where("user_id = ?", userID).First(&c).Error; err != nil {
		return 0, notFound(err)
	}
	return c.TokenEpoch, nil
}

func (r *GormCredentialRepository) DeleteByUserID(userID uuid.UUID) error {
	return r.db.Where("user_id = ?", userID).Delete(&domain.Credential{}).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCredentialNotFound
	}
	return err
}
