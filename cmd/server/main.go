package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/grievanceportal/internal/featureflags"
	"github.com/aryan0dhankhar/grievanceportal/internal/flash"
	"github.com/aryan0dhankhar/grievanceportal/internal/handler"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
	"github.com/aryan0dhankhar/grievanceportal/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/grievanceportal/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/grievanceportal/internal/observability/metrics"
	"github.com/aryan0dhankhar/grievanceportal/internal/observability/tracing"
	"github.com/aryan0dhankhar/grievanceportal/internal/reliability/retry"
	"github.com/aryan0dhankhar/grievanceportal/internal/repository"
	"github.com/aryan0dhankhar/grievanceportal/internal/security"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/audit"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/auth"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/middleware"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/ratelimit"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/session"
	"github.com/aryan0dhankhar/grievanceportal/internal/service"
	"github.com/aryan0dhankhar/grievanceportal/internal/worker"
	"github.com/aryan0dhankhar/grievanceportal/pkg/cache"
	"github.com/aryan0dhankhar/grievanceportal/pkg/config"
	"github.com/aryan0dhankhar/grievanceportal/pkg/database"
)

// maxRequestBytes bounds any request body, picture uploads included
const maxRequestBytes = 16 << 20

func main() {
	// 1. Load configuration, with an optional .env for local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger and tracing
	log := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting grievance portal", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Connect to the database and apply migrations
	pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "connect database",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, &database.Config{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL}, log)
		})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if featureflags.Enabled(featureflags.SkipMigrations) {
		if err := database.CheckMigrationStatus(pool.GetDB(), pool.Driver()); err != nil {
			log.Error("database schema is not current", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else if err := database.MigrateUp(pool.GetDB(), pool.Driver()); err != nil {
		log.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Session and flash storage: Redis when configured, memory otherwise
	var (
		sessionStore session.Store
		flashStore   flash.Store
		redisClient  *redis.Client
		memory       *cache.Cache
	)
	if cfg.RedisURL != "" {
		redisClient, err = retry.Do(ctx, retry.DefaultConfig(), log, "connect redis",
			func(ctx context.Context) (*redis.Client, error) {
				return redis.NewClient(ctx, cfg.RedisURL)
			})
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient)
		flashStore = flash.NewRedisStore(redisClient)
	} else {
		log.Warn("REDIS_URL not set, keeping sessions in memory")
		memory = cache.New()
		sessionStore = session.NewMemoryStore(memory)
		flashStore = flash.NewMemoryStore(memory)
	}

	// 5. Picture storage
	images, static, err := newImageStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize image storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := images.EnsurePlaceholder(ctx); err != nil {
		log.Error("failed to store default profile picture", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Initialize repositories, security components and services
	store := repository.NewStore(pool.GetDB(), log)
	auditLogger := audit.NewLogger(log)
	authz := security.NewAuthorizationService(auditLogger, log)
	tokenManager := auth.NewTokenManager(cfg.SessionSecret, cfg.SessionIssuer)
	sessions := session.NewManager(tokenManager, sessionStore, store.Users(), session.Options{
		TTL:         cfg.SessionTTL,
		RememberTTL: cfg.RememberTTL,
		Secure:      cfg.CookieSecure,
	}, log)
	flashes := flash.New(flashStore, cfg.CookieSecure, log)

	authService := service.NewAuthService(store, auth.NewHasher(cfg.BcryptCost), images, auditLogger, log)
	grievanceService := service.NewGrievanceService(store, images, authz, auditLogger, service.RealClock{}, cfg.PageSize, log)

	// 7. Initialize handlers
	render, err := handler.NewRenderer(flashes, images, log)
	if err != nil {
		log.Error("failed to parse templates", slog.String("error", err.Error()))
		os.Exit(1)
	}
	checks := map[string]handler.Check{"database": pool.Health, "redis": nil}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
	}

	mux := handler.NewRouter(handler.Routes{
		Sessions:   sessions,
		Auth:       handler.NewAuthHandler(authService, sessions, flashes, render, auditLogger, log),
		Grievances: handler.NewGrievanceHandler(grievanceService, flashes, render, log),
		Feed:       handler.NewFeedHandler(grievanceService, render, log),
		Health:     handler.NewHealthHandler(checks, log),
		Static:     static,
	})

	// Chain middleware: request ID -> recover -> tracing -> body cap -> rate limit -> metrics
	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Error("invalid trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rateLimiter := ratelimit.NewLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	rootHandler := middleware.RequestID(log)(
		middleware.Recover(log)(
			otelhttp.NewHandler(
				middleware.LimitBody(maxRequestBytes)(
					middleware.RateLimit(rateLimiter, proxies, log, "/login", "/register")(
						metrics.HTTPMetricsMiddleware(mux),
					),
				),
				"http.server",
			),
		),
	)

	// 8. Start cleanup worker for in-memory sessions
	if memory != nil {
		cleanupWorker := worker.NewCleanupWorker(memory, log, time.Duration(cfg.CleanupIntervalMinutes)*time.Minute)
		go cleanupWorker.Start(ctx)
	}

	// 9. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("database", pool.Driver()),
		slog.String("image_backend", cfg.ImageBackend),
		slog.Bool("redis", redisClient != nil),
		slog.Int("auth_rate_limit", cfg.AuthRateLimit),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("failed to flush traces", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// newImageStore builds the configured picture backend. The returned handler
// serves filesystem pictures and is nil for object storage.
func newImageStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*imagestore.Service, http.Handler, error) {
	switch cfg.ImageBackend {
	case "s3":
		backend, err := imagestore.NewS3Backend(ctx, imagestore.S3Config{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return imagestore.NewService(backend, log), nil, nil
	default:
		backend, err := imagestore.NewFilesystemBackend(cfg.StaticDir, "/static")
		if err != nil {
			return nil, nil, err
		}
		static := middleware.RejectSuspiciousPaths(log)(handler.StaticFiles(cfg.StaticDir))
		return imagestore.NewService(backend, log), static, nil
	}
}
