package middleware

import (
	"net/http"

	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/http/response"
)

// RequireCapability gates a route on the caller's role granting a capability.
// It sits behind AuthMiddleware and never inspects role names directly.
func RequireCapability(cap domain.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			if !domain.Role(claims.Role).Allows(cap) {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permission", map[string]string{"required": string(cap)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
