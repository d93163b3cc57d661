package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sai-edu/sai-backend/internal/config"
	"github.com/sai-edu/sai-backend/internal/database"
	"github.com/sai-edu/sai-backend/internal/observability"
	"github.com/sai-edu/sai-backend/internal/repository"
	"github.com/sai-edu/sai-backend/internal/service"
)

const maintenanceInterval = 10 * time.Minute

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient

	registry    service.RevocationRegistry
	refreshRepo repository.RefreshTokenRepository
	authSvc     *service.AuthService
	userRepo    repository.UserRepository

	stopMaintenance chan struct{}
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	registry service.RevocationRegistry,
	refreshRepo repository.RefreshTokenRepository,
	authSvc *service.AuthService,
	userRepo repository.UserRepository,
) *App {
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Observability:   runtime,
		DB:              db,
		Redis:           redisClient,
		registry:        registry,
		refreshRepo:     refreshRepo,
		authSvc:         authSvc,
		userRepo:        userRepo,
		stopMaintenance: make(chan struct{}),
	}
}

// Bootstrap seeds the admin account and starts the maintenance loop. Call
// once before serving.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := database.SeedAdmin(ctx, a.Config, a.authSvc, a.userRepo, a.Logger); err != nil {
		return err
	}
	go a.maintenanceLoop()
	return nil
}

// maintenanceLoop periodically drops expired blacklist entries and expired
// refresh token rows so neither store grows without bound.
func (a *App) maintenanceLoop() {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopMaintenance:
			return
		case <-ticker.C:
			removed := a.registry.Sweep(time.Now().UTC())
			if removed > 0 {
				observability.RecordRevocationSweep(context.Background(), removed)
			}
			rows, err := a.refreshRepo.CleanupExpired()
			if err != nil {
				a.Logger.Error("refresh token cleanup failed", "error", err)
				continue
			}
			if removed > 0 || rows > 0 {
				a.Logger.Info("maintenance sweep", "blacklist_removed", removed, "refresh_rows_removed", rows)
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) {
	close(a.stopMaintenance)

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("failed to shutdown http server", "error", err)
	}
	if a.Observability != nil {
		if err := a.Observability.Shutdown(ctx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
			}
		}
	}
}
