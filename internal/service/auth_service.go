package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/observability"
	"github.com/sai-edu/sai-backend/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrEmailTaken         = errors.New("email already registered")
)

// PasswordResetNotifier delivers a reset token to the account holder. The
// development implementation just logs it; production wires a mailer here.
type PasswordResetNotifier interface {
	SendPasswordReset(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error
}

type LogPasswordResetNotifier struct {
	logger *slog.Logger
}

func NewLogPasswordResetNotifier(logger *slog.Logger) *LogPasswordResetNotifier {
	return &LogPasswordResetNotifier{logger: logger}
}

func (n *LogPasswordResetNotifier) SendPasswordReset(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error {
	n.logger.InfoContext(ctx, "password reset token issued",
		slog.String("user_id", user.ID.String()),
		slog.String("token", token),
		slog.Time("expires_at", expiresAt),
	)
	return nil
}

type LoginResult struct {
	User   *domain.User
	Tokens *TokenPair
}

// AuthService orchestrates the login, logout, refresh and password reset
// flows across the credential store, the token issuer and the revocation
// registry.
type AuthService struct {
	userRepo repository.UserRepository
	credSvc  *CredentialService
	tokenSvc *TokenService
	notifier PasswordResetNotifier
}

func NewAuthService(
	userRepo repository.UserRepository,
	credSvc *CredentialService,
	tokenSvc *TokenService,
	notifier PasswordResetNotifier,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		credSvc:  credSvc,
		tokenSvc: tokenSvc,
		notifier: notifier,
	}
}

// Login authenticates by email and password. The lock flag is consulted
// before the password is verified, so a locked account rejects even the
// correct password, and attempts against it never touch the hash.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	cred, err := s.credSvc.FindByUserID(user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if cred.Locked {
		return nil, ErrAccountLocked
	}

	if !s.credSvc.VerifyPassword(cred, password) {
		updated, err := s.credSvc.RecordLoginAttempt(cred, false)
		if err != nil {
			return nil, err
		}
		if updated.Locked {
			observability.RecordAccountLockout(ctx)
		}
		return nil, ErrInvalidCredentials
	}

	cred, err = s.credSvc.RecordLoginAttempt(cred, true)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokenSvc.Issue(user, cred.TokenEpoch, userAgent, ip)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Logout revokes whatever credentials accompany the request. An absent or
// invalid access token is not an error; revocation is best-effort and the
// caller always succeeds.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		if claims, err := s.tokenSvc.Validate(ctx, accessToken); err == nil {
			if err := s.tokenSvc.Revoke(ctx, claims); err != nil {
				return err
			}
		}
	}
	if refreshToken != "" {
		return s.tokenSvc.RevokeRefreshToken(refreshToken)
	}
	return nil
}

// ForgotPassword issues a reset token for the account behind the email. An
// unknown email is not an error; callers respond identically either way so
// the endpoint cannot be used to probe for registered addresses.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	cred, err := s.credSvc.FindByUserID(user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil
		}
		return err
	}
	token, expiresAt, err := s.credSvc.GenerateResetToken(cred)
	if err != nil {
		return err
	}
	return s.notifier.SendPasswordReset(ctx, user, token, expiresAt)
}

// ResetPassword redeems a reset token, installs the new password, bumps the
// token epoch and revokes every refresh session. All previously issued tokens
// are dead after this returns.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	cred, err := s.credSvc.ConsumeResetToken(token)
	if err != nil {
		return err
	}
	if err := s.credSvc.UpdatePassword(cred.UserID, newPassword); err != nil {
		return err
	}
	if err := s.credSvc.BumpTokenEpoch(cred.UserID); err != nil {
		return err
	}
	revoked, err := s.tokenSvc.RevokeAllSessions(cred.UserID)
	if err != nil {
		return err
	}
	observability.RecordSessionRevokedCount(ctx, "password_reset", revoked)
	return nil
}

// Refresh rotates a refresh token into a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, userAgent, ip string) (*LoginResult, error) {
	pair, user, err := s.tokenSvc.Rotate(ctx, refreshToken, userAgent, ip)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Register creates an account together with its credential. Registration is
// an administrative action; the route guarding it requires the users:write
// capability.
func (s *AuthService) Register(_ context.Context, user *domain.User, password string) (*domain.User, error) {
	if !user.Role.Valid() {
		return nil, domain.ErrUnknownRole
	}
	if _, err := s.userRepo.FindByEmail(user.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	if _, err := s.credSvc.Create(user.ID, password); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) FindUser(id uuid.UUID) (*domain.User, error) {
	return s.userRepo.FindByID(id)
}
