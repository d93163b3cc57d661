package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/sai-edu/sai-backend/internal/domain"
)

func TestUserRepositoryEmailNormalization(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)

	u := &domain.User{FullName: "Casey", Email: "  Casey@School.EDU ", Role: domain.RoleTeacher}
	if err := repo.Create(u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "casey@school.edu" {
		t.Fatalf("email not normalized: %q", u.Email)
	}

	found, err := repo.FindByEmail("CASEY@school.edu")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if found.ID != u.ID {
		t.Fatalf("id mismatch: got %s want %s", found.ID, u.ID)
	}
}

func TestUserRepositoryDeleteCascades(t *testing.T) {
	db := newRepositoryDBForTest(t)
	userRepo := NewUserRepository(db)
	credRepo := NewCredentialRepository(db)
	tokenRepo := NewRefreshTokenRepository(db)

	user := createUserForTest(t, db, "gone@school.edu", domain.RoleStudent)
	if err := credRepo.Create(&domain.Credential{UserID: user.ID, PasswordHash: "h"}); err != nil {
		t.Fatalf("create credential: %v", err)
	}
	if err := tokenRepo.Create(&domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: "h1",
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("create refresh token: %v", err)
	}

	if err := userRepo.DeleteByID(user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := userRepo.FindByID(user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	if _, err := credRepo.FindByUserID(user.ID); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected credential gone, got %v", err)
	}
}
