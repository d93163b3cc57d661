package security

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestJWTManager() *JWTManager {
	return NewJWTManager("sai-backend", "sai-backend-api", testSecret)
}

func TestSignAndParseAccessToken(t *testing.T) {
	mgr := newTestJWTManager()
	raw, issued, err := mgr.SignAccessToken("user-1", "teacher", 3, time.Hour)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	claims, err := mgr.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject mismatch: got %q", claims.Subject)
	}
	if claims.Role != "teacher" {
		t.Fatalf("role mismatch: got %q", claims.Role)
	}
	if claims.TokenEpoch != 3 {
		t.Fatalf("epoch mismatch: got %d", claims.TokenEpoch)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Fatalf("jti mismatch: got %q want %q", claims.ID, issued.ID)
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	mgr := newTestJWTManager()
	raw, _, err := mgr.SignAccessToken("user-1", "student", 0, -time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	if _, err := mgr.ParseAccessToken(raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	mgr := newTestJWTManager()
	raw, _, err := mgr.SignAccessToken("user-1", "student", 0, time.Hour)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	other := NewJWTManager("sai-backend", "sai-backend-api", "another-secret-another-secret-32")
	if _, err := other.ParseAccessToken(raw); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestParseAccessTokenTampered(t *testing.T) {
	mgr := newTestJWTManager()
	raw, _, err := mgr.SignAccessToken("user-1", "student", 0, time.Hour)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	tampered := raw[:len(raw)-2] + "xx"
	if _, err := mgr.ParseAccessToken(tampered); err == nil {
		t.Fatal("expected tampered token to fail")
	}
}

func TestParseAccessTokenGarbage(t *testing.T) {
	mgr := newTestJWTManager()
	if _, err := mgr.ParseAccessToken("not.a.token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestParseAccessTokenWrongIssuerOrAudience(t *testing.T) {
	mgr := newTestJWTManager()

	otherIssuer := NewJWTManager("someone-else", "sai-backend-api", testSecret)
	raw, _, err := otherIssuer.SignAccessToken("user-1", "student", 0, time.Hour)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	if _, err := mgr.ParseAccessToken(raw); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	otherAudience := NewJWTManager("sai-backend", "someone-else-api", testSecret)
	raw, _, err = otherAudience.SignAccessToken("user-1", "student", 0, time.Hour)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	if _, err := mgr.ParseAccessToken(raw); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
}

func TestHashRefreshTokenDependsOnPepper(t *testing.T) {
	h1 := HashRefreshToken("token", "pepper-one")
	h2 := HashRefreshToken("token", "pepper-two")
	if h1 == h2 {
		t.Fatal("expected pepper to change the hash")
	}
	if h1 != HashRefreshToken("token", "pepper-one") {
		t.Fatal("expected hash to be deterministic for the same pepper")
	}
}
