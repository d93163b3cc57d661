package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sai-edu/sai-backend/internal/app"
	"github.com/sai-edu/sai-backend/internal/config"
	"github.com/sai-edu/sai-backend/internal/database"
	"github.com/sai-edu/sai-backend/internal/http/handler"
	"github.com/sai-edu/sai-backend/internal/http/router"
	"github.com/sai-edu/sai-backend/internal/observability"
	"github.com/sai-edu/sai-backend/internal/repository"
	"github.com/sai-edu/sai-backend/internal/security"
	"github.com/sai-edu/sai-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewCredentialRepository,
	repository.NewRefreshTokenRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
)

var ServiceSet = wire.NewSet(
	provideCredentialService,
	provideRevocationRegistry,
	provideTokenService,
	service.NewLogPasswordResetNotifier,
	wire.Bind(new(service.PasswordResetNotifier), new(*service.LogPasswordResetNotifier)),
	service.NewAuthService,
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	handler.NewUserHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) Run() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	fmt.Println("migration complete")
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, _ *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RevocationRedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideCredentialService(cfg *config.Config, credRepo repository.CredentialRepository) *service.CredentialService {
	return service.NewCredentialService(credRepo, cfg.LockoutThreshold, cfg.ResetTokenTTL)
}

func provideRevocationRegistry(cfg *config.Config, redisClient redis.UniversalClient) service.RevocationRegistry {
	if cfg.RevocationRedisEnabled && redisClient != nil {
		return service.NewRedisRevocationRegistry(redisClient, "revoked")
	}
	return service.NewInMemoryRevocationRegistry()
}

func provideTokenService(
	cfg *config.Config,
	jwt *security.JWTManager,
	credRepo repository.CredentialRepository,
	refreshRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
	registry service.RevocationRegistry,
) *service.TokenService {
	return service.NewTokenService(jwt, credRepo, refreshRepo, userRepo, registry, cfg.RefreshTokenPepper, cfg.JWTAccessTTL, cfg.RefreshTokenTTL)
}

func provideAuthHandler(authSvc *service.AuthService, cookieMgr *security.CookieManager, cfg *config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(authSvc, cookieMgr, cfg.JWTAccessTTL, cfg.RefreshTokenTTL)
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	tokenSvc *service.TokenService,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		TokenService:     tokenSvc,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:  cfg.APIRateLimitPerMin,
		EnableOTelHTTP:   cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideApp(
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
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, registry, refreshRepo, authSvc, userRepo)
}
