package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/repository"
	"github.com/sai-edu/sai-backend/internal/security"
)

var (
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrEpochMismatch  = errors.New("token epoch is stale")
	ErrRefreshInvalid = errors.New("refresh token invalid or expired")
)

// TokenPair is what a successful login or refresh hands back to the transport
// layer. RefreshToken is the only place the opaque value exists in plaintext;
// the store keeps a peppered hash.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type TokenService struct {
	jwtManager  *security.JWTManager
	credRepo    repository.CredentialRepository
	refreshRepo repository.RefreshTokenRepository
	userRepo    repository.UserRepository
	registry    RevocationRegistry
	pepper      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewTokenService(
	jwtManager *security.JWTManager,
	credRepo repository.CredentialRepository,
	refreshRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
	registry RevocationRegistry,
	pepper string,
	accessTTL, refreshTTL time.Duration,
) *TokenService {
	return &TokenService{
		jwtManager:  jwtManager,
		credRepo:    credRepo,
		refreshRepo: refreshRepo,
		userRepo:    userRepo,
		registry:    registry,
		pepper:      pepper,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// Issue signs an access token carrying the account's current epoch and mints
// an opaque single-use refresh token persisted by hash.
func (s *TokenService) Issue(user *domain.User, epoch int, userAgent, ip string) (*TokenPair, error) {
	access, claims, err := s.jwtManager.SignAccessToken(user.ID.String(), string(user.Role), epoch, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := security.NewRandomString(32)
	if err != nil {
		return nil, err
	}
	refreshExpiresAt := time.Now().UTC().Add(s.refreshTTL)
	record := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: security.HashRefreshToken(refresh, s.pepper),
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: refreshExpiresAt,
	}
	if err := s.refreshRepo.Create(record); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  claims.ExpiresAt.Time,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Validate runs the full acceptance pipeline: signature and expiry, then the
// revocation registry, then a live epoch check against the credential store.
// A token that was valid when signed is still rejected here once its account
// bumped epochs or its id was blacklisted.
func (s *TokenService) Validate(ctx context.Context, raw string) (*security.Claims, error) {
	claims, err := s.jwtManager.ParseAccessToken(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := s.registry.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, security.ErrTokenMalformed
	}
	epoch, err := s.credRepo.TokenEpoch(userID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, ErrEpochMismatch
		}
		return nil, err
	}
	if epoch != claims.TokenEpoch {
		return nil, ErrEpochMismatch
	}
	return claims, nil
}

// Rotate exchanges a live refresh token for a new pair. The presented token
// is revoked first so it can be redeemed exactly once.
func (s *TokenService) Rotate(_ context.Context, refreshToken, userAgent, ip string) (*TokenPair, *domain.User, error) {
	hash := security.HashRefreshToken(refreshToken, s.pepper)
	record, err := s.refreshRepo.FindValidByHash(hash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRefreshInvalid
		}
		return nil, nil, err
	}
	if err := s.refreshRepo.RevokeByHash(hash); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.FindByID(record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrRefreshInvalid
		}
		return nil, nil, err
	}
	epoch, err := s.credRepo.TokenEpoch(user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, nil, ErrRefreshInvalid
		}
		return nil, nil, err
	}

	pair, err := s.Issue(user, epoch, userAgent, ip)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Revoke blacklists an access token id until its natural expiry.
func (s *TokenService) Revoke(ctx context.Context, claims *security.Claims) error {
	return s.registry.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// RevokeRefreshToken invalidates a single refresh session by its plaintext
// value, if it is still live.
func (s *TokenService) RevokeRefreshToken(refreshToken string) error {
	return s.refreshRepo.RevokeByHash(security.HashRefreshToken(refreshToken, s.pepper))
}

// RevokeAllSessions kills every live refresh session for an account. Access
// tokens already in the wild die through the epoch check.
func (s *TokenService) RevokeAllSessions(userID uuid.UUID) (int64, error) {
	return s.refreshRepo.RevokeByUserID(userID)
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }
