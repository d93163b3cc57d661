package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/http/response"
	"github.com/sai-edu/sai-backend/internal/observability"
	"github.com/sai-edu/sai-backend/internal/security"
	"github.com/sai-edu/sai-backend/internal/service"
)

const minPasswordLength = 8

type AuthHandler struct {
	authSvc    *service.AuthService
	cookieMgr  *security.CookieManager
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(authSvc *service.AuthService, cookieMgr *security.CookieManager, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookieMgr: cookieMgr, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// identifier returns the login identifier. Accounts are keyed by email;
// clients may send it under either field name.
func (r loginRequest) identifier() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.identifier() == "" || req.Password == "" {
		status = "failure"
		observability.RecordAuthLogin(r.Context(), "failure")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required", nil)
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.identifier(), req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		status = "failure"
		switch {
		// The locked branch answers identically to a wrong password so the
		// endpoint cannot be used to probe which accounts exist or are
		// locked; only the audit trail and the metric tell them apart.
		case errors.Is(err, service.ErrAccountLocked):
			observability.Audit(r, "auth.login.locked", "email", req.identifier())
			observability.RecordAuthLogin(r.Context(), "locked")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			observability.Audit(r, "auth.login.failed", "email", req.identifier())
			observability.RecordAuthLogin(r.Context(), "failure")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password", nil)
		default:
			observability.RecordAuthLogin(r.Context(), "error")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		}
		return
	}

	h.cookieMgr.SetTokenCookies(w, result.Tokens.AccessToken, result.Tokens.RefreshToken, h.accessTTL, h.refreshTTL)
	observability.Audit(r, "auth.login.success", "user_id", result.User.ID)
	observability.RecordAuthLogin(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"account_id":    result.User.ID,
		"role":          result.User.Role,
		"user":          result.User,
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"expires_at":    result.Tokens.AccessExpiresAt,
	})
}

// Logout always answers 200. The access token is read from the bearer header
// or the cookie and revoked when it still validates; cookies are cleared
// either way, so a client with an already-expired token still gets a clean
// sign-out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "logout", status, time.Since(start))
	}()

	access := bearerToken(r)
	refresh := security.GetCookie(r, security.RefreshTokenCookie)
	if err := h.authSvc.Logout(r.Context(), access, refresh); err != nil {
		status = "failure"
		observability.Audit(r, "auth.logout.failed", "reason", "revoke_error")
		observability.RecordAuthLogout(r.Context(), "failure")
	} else {
		observability.Audit(r, "auth.logout.success")
		observability.RecordAuthLogout(r.Context(), "success")
	}
	h.cookieMgr.ClearTokenCookies(w)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword answers identically whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		observability.RecordPasswordResetEvent(r.Context(), "request", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required", nil)
		return
	}
	if err := h.authSvc.ForgotPassword(r.Context(), req.Email); err != nil {
		observability.RecordPasswordResetEvent(r.Context(), "request", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "password reset failed", nil)
		return
	}
	observability.Audit(r, "auth.password_reset.requested", "email", req.Email)
	observability.RecordPasswordResetEvent(r.Context(), "request", "accepted")
	response.JSON(w, r, http.StatusOK, map[string]string{
		"message": "if the email is registered, a reset link has been sent",
	})
}

type updatePasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		observability.RecordPasswordResetEvent(r.Context(), "update", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "token and new password are required", nil)
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		observability.RecordPasswordResetEvent(r.Context(), "update", "mismatch")
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", "passwords do not match", nil)
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		observability.RecordPasswordResetEvent(r.Context(), "update", "weak_password")
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", "password must be at least 8 characters", nil)
		return
	}
	if err := h.authSvc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			observability.Audit(r, "auth.password_update.failed", "reason", "invalid_token")
			observability.RecordPasswordResetEvent(r.Context(), "update", "invalid_token")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "reset token invalid or expired", nil)
			return
		}
		observability.RecordPasswordResetEvent(r.Context(), "update", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "password update failed", nil)
		return
	}
	observability.Audit(r, "auth.password_update.success")
	observability.RecordPasswordResetEvent(r.Context(), "update", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "password updated"})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "refresh", status, time.Since(start))
	}()

	// Body first, cookie fallback: a token in the body is what the client
	// just received and must win over a stale cookie.
	var refresh string
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		refresh = req.RefreshToken
	}
	if refresh == "" {
		refresh = security.GetCookie(r, security.RefreshTokenCookie)
	}
	if refresh == "" {
		status = "failure"
		observability.RecordAuthRefresh(r.Context(), "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token", nil)
		return
	}

	result, err := h.authSvc.Refresh(r.Context(), refresh, r.UserAgent(), clientIP(r))
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.refresh.failed", "reason", "invalid_refresh")
		observability.RecordAuthRefresh(r.Context(), "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
		return
	}
	h.cookieMgr.SetTokenCookies(w, result.Tokens.AccessToken, result.Tokens.RefreshToken, h.accessTTL, h.refreshTTL)
	observability.Audit(r, "auth.refresh.success", "user_id", result.User.ID)
	observability.RecordAuthRefresh(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"account_id":    result.User.ID,
		"role":          result.User.Role,
		"user":          result.User,
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"expires_at":    result.Tokens.AccessExpiresAt,
	})
}

type registerRequest struct {
	DocumentID string `json:"document_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Password   string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.FullName == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "full name and email are required", nil)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", "unknown role", nil)
		return
	}
	if len(req.Password) < minPasswordLength {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", "password must be at least 8 characters", nil)
		return
	}
	user := &domain.User{
		DocumentID: req.DocumentID,
		FullName:   req.FullName,
		Email:      req.Email,
		Phone:      req.Phone,
		Role:       role,
	}
	created, err := h.authSvc.Register(r.Context(), user, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Error(w, r, http.StatusConflict, "CONFLICT", "email already registered", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed", nil)
		return
	}
	observability.Audit(r, "auth.register.success", "user_id", created.ID, "role", string(created.Role))
	response.JSON(w, r, http.StatusCreated, map[string]any{"user": created})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return security.GetCookie(r, security.AccessTokenCookie)
}

func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
