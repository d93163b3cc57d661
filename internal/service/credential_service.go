package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/repository"
	"github.com/sai-edu/sai-backend/internal/security"
)

var (
	ErrDuplicateAccount  = errors.New("account already has a credential")
	ErrHashingFailure    = errors.New("password hashing failed")
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
)

// CredentialService owns the credential record and every lockout transition.
// Nothing else in the system may flip the locked flag or touch the
// failed-attempt counter.
type CredentialService struct {
	credRepo         repository.CredentialRepository
	lockoutThreshold int
	resetTokenTTL    time.Duration
}

func NewCredentialService(credRepo repository.CredentialRepository, lockoutThreshold int, resetTokenTTL time.Duration) *CredentialService {
	return &CredentialService{
		credRepo:         credRepo,
		lockoutThreshold: lockoutThreshold,
		resetTokenTTL:    resetTokenTTL,
	}
}

func (s *CredentialService) Create(userID uuid.UUID, password string) (*domain.Credential, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}
	cred := &domain.Credential{UserID: userID, PasswordHash: hash}
	if err := s.credRepo.Create(cred); err != nil {
		if errors.Is(err, repository.ErrDuplicateCredential) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	return cred, nil
}

func (s *CredentialService) VerifyPassword(cred *domain.Credential, password string) bool {
	return security.VerifyPassword(cred.PasswordHash, password)
}

// RecordLoginAttempt applies the lockout policy. A success clears the counter
// and the lock; a failure increments atomically at the store and locks the
// account once the threshold is reached.
func (s *CredentialService) RecordLoginAttempt(cred *domain.Credential, success bool) (*domain.Credential, error) {
	if success {
		now := time.Now().UTC()
		if err := s.credRepo.RecordLoginSuccess(cred.UserID, now); err != nil {
			return nil, err
		}
		return s.credRepo.FindByUserID(cred.UserID)
	}
	return s.credRepo.RecordLoginFailure(cred.UserID, s.lockoutThreshold)
}

// GenerateResetToken mints a fresh token, overwriting any prior one so at
// most one reset token is live per account.
func (s *CredentialService) GenerateResetToken(cred *domain.Credential) (string, time.Time, error) {
	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(s.resetTokenTTL)
	if err := s.credRepo.SetResetToken(cred.UserID, token, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *CredentialService) ClearResetToken(userID uuid.UUID) error {
	return s.credRepo.ClearResetToken(userID)
}

// ConsumeResetToken resolves a token to its credential and clears it, so the
// same token can never be redeemed twice.
func (s *CredentialService) ConsumeResetToken(token string) (*domain.Credential, error) {
	cred, err := s.credRepo.FindByActiveResetToken(token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	if err := s.credRepo.ClearResetToken(cred.UserID); err != nil {
		return nil, err
	}
	return cred, nil
}

func (s *CredentialService) UpdatePassword(userID uuid.UUID, newPassword string) error {
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}
	return s.credRepo.UpdatePassword(userID, hash)
}

// BumpTokenEpoch invalidates every access token issued before the bump at its
// next validation.
func (s *CredentialService) BumpTokenEpoch(userID uuid.UUID) error {
	return s.credRepo.BumpTokenEpoch(userID)
}

func (s *CredentialService) FindByUserID(userID uuid.UUID) (*domain.Credential, error) {
	return s.credRepo.FindByUserID(userID)
}

func (s *CredentialService) FindByEmail(email string) (*domain.Credential, error) {
	return s.credRepo.FindByEmail(email)
}
