package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/operialabs/chat-backend/internal/auth"
	"github.com/operialabs/chat-backend/internal/chat"
	"github.com/operialabs/chat-backend/internal/config"
	"github.com/operialabs/chat-backend/internal/health"
	"github.com/operialabs/chat-backend/internal/logger"
	"github.com/operialabs/chat-backend/internal/metrics"
	appmw "github.com/operialabs/chat-backend/internal/middleware"
	"github.com/operialabs/chat-backend/internal/repository"
	"github.com/operialabs/chat-backend/internal/sanitizer"
)

var version = "dev"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.DefaultConfig())
	slog.SetDefault(log)

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	sqlxDB, err := setupSQLX(cfg)
	if err != nil {
		log.Error("failed to open sqlx database handle", "error", err)
		os.Exit(1)
	}
	defer sqlxDB.Close()

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	messageRepo := repository.NewMessageRepository(sqlxDB)

	// Services
	tokenService := auth.NewTokenService(auth.TokenServiceConfig{
		SecretKey: cfg.Auth.SecretKey,
		TokenTTL:  cfg.Auth.TokenTTL,
		Issuer:    cfg.Auth.Issuer,
	})
	passwordValidator := auth.NewPasswordValidator()
	registrationValidator := auth.NewRegistrationValidator(cfg.Auth.AllowedEmailDomains, passwordValidator)
	loginThrottle := auth.NewLoginThrottle(auth.MaxFailedAttempts, auth.CooldownWindow)

	authService := auth.NewAuthService(
		userRepo,
		registrationValidator,
		passwordValidator,
		tokenService,
		loginThrottle,
		log,
	)

	chatService := chat.NewService(
		messageRepo,
		replyGenerator(cfg),
		sanitizer.NewContentSanitizer(),
		log,
	)

	// Handlers
	authHandler := auth.NewHandler(authService)
	chatHandler := chat.NewHandler(chatService)
	healthHandler := health.NewHandler(health.Config{
		DBPool:  dbPool,
		Version: version,
	})

	// Middleware
	authMiddleware := appmw.NewAuthMiddleware(tokenService, userRepo)

	// Database stats collector for Prometheus gauges
	dbStats := metrics.NewDBStatsCollector(dbPool, sqlxDB.DB)
	dbStats.Start(15 * time.Second)
	defer dbStats.Stop()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(appmw.StructuredLogger(log))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Auth and chat routes
	auth.RegisterRoutes(r, authHandler, appmw.RateLimitByIP(appmw.StrictLimit))
	r.Group(func(r chi.Router) {
		r.Use(appmw.RateLimitByIP(appmw.ModerateLimit))
		chat.RegisterRoutes(r, chatHandler, authMiddleware.Authenticate)
	})

	// Operational endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Handle("/metrics", metrics.Handler())

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited")
}

// replyGenerator selects the configured reply backend
func replyGenerator(cfg *config.Config) chat.ReplyGenerator {
	if cfg.Chat.ReplyMode == "canned" {
		return chat.NewCannedReplyGenerator(nil)
	}
	return chat.NewEchoReplyGenerator()
}

// setupDatabase creates and configures the pgx connection pool used by the
// user repository and health checks.
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database",
		"database", cfg.Database.DBName,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
	)
	return pool, nil
}

// setupSQLX opens the sqlx handle used by the message repository. It rides on
// the pgx stdlib driver against the same database as the pool.
func setupSQLX(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
