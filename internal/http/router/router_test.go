package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/http/handler"
	"github.com/sai-edu/sai-backend/internal/repository"
	"github.com/sai-edu/sai-backend/internal/security"
	"github.com/sai-edu/sai-backend/internal/service"
)

const routerTestPassword = "correct-horse-battery"

type routerEnv struct {
	router  http.Handler
	authSvc *service.AuthService
}

type nopNotifier struct{}

func (nopNotifier) SendPasswordReset(context.Context, *domain.User, string, time.Time) error {
	return nil
}

func newRouterEnvForTest(t *testing.T, authRPM, apiRPM int) *routerEnv {
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
	registry := service.NewInMemoryRevocationRegistry()
	jwtMgr := security.NewJWTManager("sai-backend", "sai-backend-api", "0123456789abcdef0123456789abcdef")
	credSvc := service.NewCredentialService(creds, 5, 24*time.Hour)
	tokenSvc := service.NewTokenService(jwtMgr, creds, tokens, users, registry, "test-pepper-test-pepper", time.Hour, 24*time.Hour)
	authSvc := service.NewAuthService(users, credSvc, tokenSvc, nopNotifier{})
	cookieMgr := security.NewCookieManager("", false, "strict")

	r := NewRouter(Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc, cookieMgr, time.Hour, 24*time.Hour),
		UserHandler:      handler.NewUserHandler(authSvc),
		TokenService:     tokenSvc,
		CORSOrigins:      []string{"https://app.school.edu"},
		AuthRateLimitRPM: authRPM,
		APIRateLimitRPM:  apiRPM,
	})
	return &routerEnv{router: r, authSvc: authSvc}
}

func (e *routerEnv) register(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	user, err := e.authSvc.Register(context.Background(), &domain.User{
		FullName: "Router Test",
		Email:    email,
		Role:     role,
	}, routerTestPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func (e *routerEnv) login(t *testing.T, email string) string {
	t.Helper()
	result, err := e.authSvc.Login(context.Background(), email, routerTestPassword, "ua", "ip")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return result.Tokens.AccessToken
}

func (e *routerEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	env := newRouterEnvForTest(t, 100, 1000)
	for _, path := range []string{"/health/live", "/health/ready"} {
		rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rr.Code)
		}
	}
}

func TestLoginThroughRouter(t *testing.T) {
	env := newRouterEnvForTest(t, 100, 1000)
	env.register(t, "router@school.edu", domain.RoleTeacher)

	body := `{"email":"router@school.edu","password":"` + routerTestPassword + `"}`
	rr := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers on response")
	}
}

func TestGuardedRouteRequiresToken(t *testing.T) {
	env := newRouterEnvForTest(t, 100, 1000)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", rr.Code)
	}

	env.register(t, "me@school.edu", domain.RoleStudent)
	access := env.login(t, "me@school.edu")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rr = env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status with token = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Data struct {
			Capabilities []string `json:"capabilities"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Capabilities) == 0 {
		t.Fatal("expected capabilities in /me payload")
	}
}

func TestGuardedRouteAcceptsCookie(t *testing.T) {
	env := newRouterEnvForTest(t, 100, 1000)
	env.register(t, "cookie@school.edu", domain.RoleSecretary)
	access := env.login(t, "cookie@school.edu")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: access})
	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestRegisterRequiresUsersWriteCapability(t *testing.T) {
	env := newRouterEnvForTest(t, 100, 1000)
	env.register(t, "admin@school.edu", domain.RoleAdmin)
	env.register(t, "teacher@school.edu", domain.RoleTeacher)

	newUser := `{"full_name":"New Student","email":"new@school.edu","role":"student","password":"student-pass-1"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(newUser))
	req.Header.Set("Authorization", "Bearer "+env.login(t, "teacher@school.edu"))
	rr := env.do(req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("teacher register status = %d, body = %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(newUser))
	req.Header.Set("Authorization", "Bearer "+env.login(t, "admin@school.edu"))
	rr = env.do(req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin register status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestLogoutWithoutTokenReturnsOK(t *testing.T) {
	env := newRouterEnvForTest(t, 100, 1000)

	rr := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	cleared := 0
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Fatalf("expected both cookies cleared, got %d", cleared)
	}
}

func TestLogoutThenGuardedCallFails(t *testing.T) {
	env := newRouterEnvForTest(t, 100, 1000)
	env.register(t, "session@school.edu", domain.RoleDirector)
	access := env.login(t, "session@school.edu")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout status = %d, body = %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rr = env.do(req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout status = %d", rr.Code)
	}
}

func TestAuthRateLimit(t *testing.T) {
	env := newRouterEnvForTest(t, 2, 1000)

	body := `{"email":"nobody@school.edu","password":"whatever-1"}`
	for i := 0; i < 2; i++ {
		rr := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))
		if rr.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d throttled too early", i)
		}
	}
	rr := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}
