// @title                       Clinic API
// @version                     1.0
// @description                 Authentication and role-based access for clinic staff and patients.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/medicore/clinic-api/docs"
	"github.com/medicore/clinic-api/internal/api"
	"github.com/medicore/clinic-api/internal/api/handler"
	"github.com/medicore/clinic-api/internal/api/metrics"
	"github.com/medicore/clinic-api/internal/core/service"
	"github.com/medicore/clinic-api/internal/infrastructure/db/mongo"
	"github.com/medicore/clinic-api/internal/infrastructure/db/redis"
	"github.com/medicore/clinic-api/internal/infrastructure/queue"
	"github.com/medicore/clinic-api/internal/pkg/config"
	"github.com/medicore/clinic-api/internal/pkg/password"
	"github.com/medicore/clinic-api/internal/pkg/token"
	"github.com/medicore/clinic-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "clinic-api",
	})

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set: signup, login and protected routes will fail with 500")
	}
	signupRoles, err := cfg.AllowedSignupRoles()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid signup roles")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	accounts := mongo.NewAccountRepository(db)
	auditRepo := mongo.NewAuditRepository(db)
	if err := mongo.EnsureIndexes(ctx, accounts, auditRepo); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	// --- Core ---
	hasher := metrics.InstrumentHasher(password.NewHasher())
	tokens := token.NewManager(cfg.JWTSecret)
	limiter := redis.NewLoginLimiter(rdb, cfg.Login.MaxAttempts, cfg.Login.Window)

	// The dispatcher outlives the signal context: requests finishing during
	// graceful shutdown still record audit events.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditRepo, logger.Component("audit"))
	dispatcher.Start(auditCtx)

	authService := service.NewAuthService(accounts, hasher, tokens, logger.Component("auth"),
		service.WithSignupRoles(signupRoles...),
		service.WithLoginLimiter(limiter),
		service.WithAuditRecorder(dispatcher),
	)
	accountService := service.NewAccountService(accounts, hasher, dispatcher, logger.Component("accounts"))

	e := api.NewRouter(api.Dependencies{
		AuthService:    authService,
		AccountService: accountService,
		Tokens:         tokens,
		Accounts:       accounts,
		Health: map[string]handler.Pinger{
			"mongodb": handler.PingerFunc(func(ctx context.Context) error { return mongo.Ping(ctx, db) }),
			"redis":   handler.PingerFunc(func(ctx context.Context) error { return redis.Ping(ctx, rdb) }),
		},
		Log: logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting clinic API")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	stopAudit()
	dispatcher.Wait()

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
	log.Info().Msg("stopped")
}
