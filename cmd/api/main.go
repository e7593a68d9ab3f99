package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/lorrc/community-hub/internal/adapters/primary/http"
	mw "github.com/lorrc/community-hub/internal/adapters/primary/http/middleware"
	"github.com/lorrc/community-hub/internal/adapters/primary/websocket"
	"github.com/lorrc/community-hub/internal/adapters/secondary/email"
	"github.com/lorrc/community-hub/internal/adapters/secondary/postgres"
	"github.com/lorrc/community-hub/internal/auth"
	"github.com/lorrc/community-hub/internal/config"
	"github.com/lorrc/community-hub/internal/core/services"
	"github.com/lorrc/community-hub/internal/infrastructure/logging"
	"github.com/lorrc/community-hub/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Apply migrations, then open the database pool
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(
		websocket.NewRegistry(),
		metrics.NewRealtime(prometheus.DefaultRegisterer),
		logger,
	)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, authRateLimiter, postRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})

		postRateLimiter = mw.NewRateLimiter(ctx, mw.DefaultRateLimiterConfig())
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Repositories (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)
	chatRepo := postgres.NewChatMessageRepository(pool)
	maintenanceRepo := postgres.NewMaintenanceRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Notifier (Secondary Adapter)
	notifier := email.NewLogNotifier(userRepo, logger)

	// Services (Core); the hub is the event broadcaster
	authService := services.NewAuthService(userRepo)
	membershipService := services.NewMembershipService(membershipRepo, txManager, hub, notifier)
	chatService := services.NewChatService(chatRepo, membershipService, hub)
	maintenanceService := services.NewMaintenanceService(maintenanceRepo, txManager, membershipService, hub, notifier)

	// Handlers (Primary Adapters)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, membershipService, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, hub, cfg.App.Version)

	// 7. Setup Router
	r := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		TokenManager:       tokenManager,
		AuthService:        authService,
		ChatService:        chatService,
		MaintenanceService: maintenanceService,
		MembershipService:  membershipService,
		Realtime:           hub,
		WebSocket:          wsHandler,
		Health:             healthHandler,
		Metrics:            promhttp.Handler(),
		CORSOrigins:        cfg.Server.CORSOrigins,
		GeneralLimiter:     generalRateLimiter,
		AuthLimiter:        authRateLimiter,
		PostLimiter:        postRateLimiter,
		Logger:             logger,
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Hijacked websocket connections are not tracked by Shutdown; the hub closes them.
	srv.RegisterOnShutdown(hub.Shutdown)

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Drain out-of-band notifications before the pool closes
	membershipService.Shutdown()
	maintenanceService.Shutdown()
	stop()

	logger.Info("server shutdown complete")
}
