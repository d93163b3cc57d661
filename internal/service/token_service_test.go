package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/security"
)

func TestValidateRejectsStaleEpoch(t *testing.T) {
	env := newAuthEnvForTest(t)
	ctx := context.Background()
	user := env.registerUser(t, "epoch@school.edu", domain.RoleTeacher)

	result, err := env.authSvc.Login(ctx, "epoch@school.edu", testPassword, "ua", "ip")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := env.tokenSvc.Validate(ctx, result.Tokens.AccessToken); err != nil {
		t.Fatalf("validate before bump: %v", err)
	}

	if err := env.credSvc.BumpTokenEpoch(user.ID); err != nil {
		t.Fatalf("bump epoch: %v", err)
	}
	if _, err := env.tokenSvc.Validate(ctx, result.Tokens.AccessToken); !errors.Is(err, ErrEpochMismatch) {
		t.Fatalf("expected ErrEpochMismatch, got %v", err)
	}

	// A token issued after the bump carries the new epoch and passes.
	after, err := env.authSvc.Login(ctx, "epoch@school.edu", testPassword, "ua", "ip")
	if err != nil {
		t.Fatalf("login after bump: %v", err)
	}
	claims, err := env.tokenSvc.Validate(ctx, after.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate after bump: %v", err)
	}
	if claims.TokenEpoch != 1 {
		t.Fatalf("expected epoch 1 in claims, got %d", claims.TokenEpoch)
	}
}

func TestValidateRejectsDeletedAccount(t *testing.T) {
	env := newAuthEnvForTest(t)
	ctx := context.Background()
	user := env.registerUser(t, "deleted@school.edu", domain.RoleStudent)

	result, err := env.authSvc.Login(ctx, "deleted@school.edu", testPassword, "ua", "ip")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := env.users.DeleteByID(user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := env.tokenSvc.Validate(ctx, result.Tokens.AccessToken); !errors.Is(err, ErrEpochMismatch) {
		t.Fatalf("expected ErrEpochMismatch for deleted account, got %v", err)
	}
}

func TestValidateRejectsGarbageToken(t *testing.T) {
	env := newAuthEnvForTest(t)
	if _, err := env.tokenSvc.Validate(context.Background(), "garbage"); !errors.Is(err, security.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestRotateIsSingleUse(t *testing.T) {
	env := newAuthEnvForTest(t)
	ctx := context.Background()
	user := env.registerUser(t, "rotate@school.edu", domain.RoleParent)

	result, err := env.authSvc.Login(ctx, "rotate@school.edu", testPassword, "ua", "ip")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	pair, rotatedUser, err := env.tokenSvc.Rotate(ctx, result.Tokens.RefreshToken, "ua2", "ip2")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotatedUser.ID != user.ID {
		t.Fatalf("user mismatch after rotate: got %s", rotatedUser.ID)
	}
	if pair.RefreshToken == result.Tokens.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}

	if _, _, err := env.tokenSvc.Rotate(ctx, result.Tokens.RefreshToken, "ua", "ip"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected reuse to fail, got %v", err)
	}
	if _, _, err := env.tokenSvc.Rotate(ctx, pair.RefreshToken, "ua", "ip"); err != nil {
		t.Fatalf("rotate with fresh token: %v", err)
	}
}

func TestRevokeAllSessions(t *testing.T) {
	env := newAuthEnvForTest(t)
	ctx := context.Background()
	user := env.registerUser(t, "all@school.edu", domain.RoleAccountant)

	var refreshTokens []string
	for i := 0; i < 3; i++ {
		result, err := env.authSvc.Login(ctx, "all@school.edu", testPassword, "ua", "ip")
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		refreshTokens = append(refreshTokens, result.Tokens.RefreshToken)
	}

	revoked, err := env.tokenSvc.RevokeAllSessions(user.ID)
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if revoked != 3 {
		t.Fatalf("expected 3 sessions revoked, got %d", revoked)
	}
	for i, refresh := range refreshTokens {
		if _, _, err := env.tokenSvc.Rotate(ctx, refresh, "ua", "ip"); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("session %d: expected ErrRefreshInvalid, got %v", i, err)
		}
	}
}
