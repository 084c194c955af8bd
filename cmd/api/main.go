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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/case-collab-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/case-collab-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/case-collab-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/case-collab-backend/internal/adapters/secondary/email"
	"github.com/lorrc/case-collab-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/case-collab-backend/internal/auth"
	"github.com/lorrc/case-collab-backend/internal/config"
	"github.com/lorrc/case-collab-backend/internal/core/services"
	"github.com/lorrc/case-collab-backend/internal/infrastructure/logging"
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
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
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
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret)
	hub := websocket.NewHub(logger)

	// 5. Initialize Rate Limiters
	var generalRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
	}
	messageLimiter := mw.NewRateLimitByKey(cfg.RateLimit.MessageRPS, cfg.RateLimit.MessageBurst)

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	eventRepo := postgres.NewEventRepository(pool)
	viewRepo := postgres.NewViewRecordRepository(pool)
	presenceRepo := postgres.NewPresenceRepository(pool)
	caseRepo := postgres.NewCaseRepository(pool)
	attachmentRepo := postgres.NewAttachmentRepository(pool)
	directoryRepo := postgres.NewDirectoryRepository(pool)

	// Notifier (Secondary Adapter)
	notifier := email.NewMockSMTPNotifierWithLogger(caseRepo, logger)

	// Services (Core)
	eventService := services.NewEventLogService(eventRepo, caseRepo)
	messageService := services.NewMessageService(
		eventService, caseRepo, presenceRepo, directoryRepo, attachmentRepo,
		notifier, hub, logger,
	)
	presenceService := services.NewPresenceService(presenceRepo, caseRepo, hub, logger)
	viewService := services.NewViewService(viewRepo, directoryRepo, logger)
	timelineService := services.NewTimelineService(eventService, caseRepo, attachmentRepo)

	// The hub dispatches socket commands into the same services that back
	// the REST surface.
	hub.BindServices(presenceService, messageService)
	go hub.Run()

	// Handlers (Primary Adapters)
	caseHandler := httpAdapter.NewCaseHandler(
		timelineService, eventService, messageService, viewService,
		presenceService, messageLimiter, errorHandler, logger,
	)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/cases", caseHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

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
		os.Exit(1)
	}

	// Drain background notification goroutines before the pool closes.
	messageService.Shutdown()

	logger.Info("server shutdown complete")
}
