package database

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sai-edu/sai-backend/internal/config"
	"github.com/sai-edu/sai-backend/internal/domain"
	"github.com/sai-edu/sai-backend/internal/repository"
	"github.com/sai-edu/sai-backend/internal/service"
)

// SeedAdmin creates the bootstrap admin account on first start. A deployment
// without one would have no way to register other accounts.
func SeedAdmin(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, userRepo repository.UserRepository, logger *slog.Logger) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		logger.Info("bootstrap admin not configured, skipping seed")
		return nil
	}
	if _, err := userRepo.FindByEmail(cfg.BootstrapAdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	admin := &domain.User{
		FullName: "Administrator",
		Email:    cfg.BootstrapAdminEmail,
		Role:     domain.RoleAdmin,
	}
	if _, err := authSvc.Register(ctx, admin, cfg.BootstrapAdminPassword); err != nil {
		return err
	}
	logger.Info("bootstrap admin created", "email", cfg.BootstrapAdminEmail)
	return nil
}
