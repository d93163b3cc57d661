package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/repository"
	"github.com/sai-edu/sai-backend/internal/security"
)

const (
	testLockoutThreshold = 5
	testPassword         = "correct-horse-battery"
)

type captureNotifier struct {
	token     string
	expiresAt time.Time
	calls     int
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, _ *domain.User, token string, expiresAt time.Time) error {
	n.token = token
	n.expiresAt = expiresAt
	n.calls++
	return nil
}

type authEnv struct {
	db       *gorm.DB
	users    repository.UserRepository
	creds    repository.CredentialRepository
	tokens   repository.RefreshTokenRepository
	registry *InMemoryRevocationRegistry
	credSvc  *CredentialService
	tokenSvc *TokenService
	authSvc  *AuthService
	notifier *captureNotifier
}

func newAuthEnvForTest(t *testing.T) *authEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Credential{}, &domain.RefreshToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepository(db)
	creds := repository.NewCredentialRepository(db)
	tokens := repository.NewRefreshTokenRepository(db)
	registry := NewInMemoryRevocationRegistry()

	jwtMgr := security.NewJWTManager("sai-backend", "sai-backend-api", "0123456789abcdef0123456789abcdef")
	credSvc := NewCredentialService(creds, testLockoutThreshold, 24*time.Hour)
	tokenSvc := NewTokenService(jwtMgr, creds, tokens, users, registry, "test-pepper-test-pepper", time.Hour, 24*time.Hour)
	notifier := &captureNotifier{}
	authSvc := NewAuthService(users, credSvc, tokenSvc, notifier)

	return &authEnv{
		db:       db,
		users:    users,
		creds:    creds,
		tokens:   tokens,
		registry: registry,
		credSvc:  credSvc,
		tokenSvc: tokenSvc,
		authSvc:  authSvc,
		notifier: notifier,
	}
}

func (e *authEnv) registerUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{FullName: "Test User", Email: email, Role: role}
	created, err := e.authSvc.Register(context.Background(), user, testPassword)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return created
}
