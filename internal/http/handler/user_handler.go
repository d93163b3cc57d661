package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sai-edu/sai-backend/internal/http/middleware"
	"github.com/sai-edu/sai-backend/internal/http/response"
	"github.com/sai-edu/sai-backend/internal/service"
)

type UserHandler struct {
	authSvc *service.AuthService
}

func NewUserHandler(authSvc *service.AuthService) *UserHandler {
	return &UserHandler{authSvc: authSvc}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid subject", nil)
		return
	}
	user, err := h.authSvc.FindUser(uid)
	if err != nil {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":         user,
		"capabilities": user.Role.Capabilities(),
	})
}
