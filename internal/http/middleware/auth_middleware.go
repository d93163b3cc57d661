package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sai-edu/sai-backend/internal/http/response"
	"github.com/sai-edu/sai-backend/internal/observability"
	"github.com/sai-edu/sai-backend/internal/security"
	"github.com/sai-edu/sai-backend/internal/service"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// AuthMiddleware runs the full token acceptance pipeline on every guarded
// request. The Authorization header wins over the cookie when both are
// present.
func AuthMiddleware(tokenSvc *service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, source := extractAccessToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			claims, err := tokenSvc.Validate(r.Context(), raw)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), validationOutcome(err), source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", source)
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractAccessToken(r *http.Request) (string, string) {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:]), "header"
	}
	if raw := security.GetCookie(r, security.AccessTokenCookie); raw != "" {
		return raw, "cookie"
	}
	return "", "none"
}

func validationOutcome(err error) string {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return "expired"
	case errors.Is(err, security.ErrSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, security.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, service.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, service.ErrEpochMismatch):
		return "stale_epoch"
	default:
		return "error"
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}
