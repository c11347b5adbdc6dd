package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mindsage/analyzer/cmd/gateway/internal/handlers"
	"github.com/mindsage/analyzer/cmd/gateway/internal/middleware"
	"github.com/mindsage/analyzer/internal/analysis"
	"github.com/mindsage/analyzer/internal/auth"
	"github.com/mindsage/analyzer/internal/config"
	"github.com/mindsage/analyzer/internal/emotion"
	"github.com/mindsage/analyzer/internal/health"
	"github.com/mindsage/analyzer/internal/inference"
	"github.com/mindsage/analyzer/internal/journal"
	"github.com/mindsage/analyzer/internal/logging"
	"github.com/mindsage/analyzer/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default $CONFIG_PATH or ./config/mindsage.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, level, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := config.Watch(*configPath, level, logger); err != nil {
		logger.Warn("Config hot-reload disabled", zap.Error(err))
	}

	shutdownTracing, err := tracing.Initialize(cfg.Tracing, logger)
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		if shutdownTracing == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	if cfg.Inference.APIToken == "" {
		logger.Warn("No inference API token configured; remote analysis will degrade to fallbacks")
	}

	// Initialize database
	ctx := context.Background()
	store, err := journal.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to create schema", zap.Error(err))
	}

	// Redis is optional; without it rate limiting is per process.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to parse Redis URL", zap.Error(err))
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()

		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	}

	if cfg.Auth.SkipAuth {
		logger.Warn("Authentication is disabled (auth.skip_auth)")
	}
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	clamp := emotion.ClampNone
	if cfg.Analysis.ClampBoosts {
		clamp = emotion.ClampUnit
	}
	client := inference.NewClient(cfg.Inference, logger.Named("inference"))
	effective := client.Config()
	logger.Info("Inference client configured",
		zap.Int("max_retries", effective.MaxRetries),
		zap.Duration("initial_wait", effective.InitialWait),
		zap.Duration("timeout", effective.Timeout),
		zap.Float64("rps", effective.RPS),
		zap.Bool("token_set", effective.APIToken != ""),
	)
	orchestrator := analysis.NewDefault(client, clamp, cfg.Analysis.Timeout, logger.Named("analysis"))

	// Create handlers
	journalHandler := handlers.NewJournalHandler(orchestrator, store, logger)
	moodHandler := handlers.NewMoodHandler(store, logger)
	checks := health.NewManager(2*time.Second, logger.Named("health"),
		health.NewDatabaseChecker(store),
		health.NewInferenceCredentialChecker(cfg.Inference.APIToken),
	)
	if redisClient != nil {
		checks.Register(health.NewRedisChecker(redisClient))
	}
	healthHandler := handlers.NewHealthHandler(checks, logger)

	// Create middlewares
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, cfg.Auth.SkipAuth, logger).Middleware
	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, logger)
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	rateLimiter.StartJanitor(janitorCtx, time.Minute)
	tracingMiddleware := middleware.NewTracingMiddleware(logger).Middleware

	protected := func(h http.HandlerFunc) http.Handler {
		return tracingMiddleware(
			authMiddleware(
				rateLimiter.Middleware(h),
			),
		)
	}
	mux := newRouter(journalHandler, moodHandler, healthHandler, protected, tracingMiddleware)

	// CORS middleware for all routes (development friendly)
	corsHandler := corsMiddleware(mux, cfg.Server.CORSOrigin)

	port := cfg.Server.Port
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           corsHandler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Gateway starting", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start gateway", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Gateway shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Gateway forced to shutdown", zap.Error(err))
	}

	logger.Info("Gateway stopped")
}

// newRouter registers every route. protected wraps user-facing handlers;
// public wraps the health probes.
func newRouter(
	journalHandler *handlers.JournalHandler,
	moodHandler *handlers.MoodHandler,
	healthHandler *handlers.HealthHandler,
	protected func(http.HandlerFunc) http.Handler,
	public func(http.Handler) http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.Handle("GET /health", public(http.HandlerFunc(healthHandler.Health)))
	mux.Handle("GET /readiness", public(http.HandlerFunc(healthHandler.Readiness)))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Journal endpoints
	mux.Handle("POST /add-journal", protected(journalHandler.AddJournal))
	mux.Handle("POST /analyze", protected(journalHandler.Analyze))
	mux.Handle("GET /get-journals/{user_id}", protected(journalHandler.GetJournals))

	// Mood endpoints; /add-mood and /get-moods are the legacy paths.
	mux.Handle("POST /api/add-mood-entry", protected(moodHandler.AddMood))
	mux.Handle("POST /add-mood", protected(moodHandler.AddMood))
	mux.Handle("GET /api/get-mood-data", protected(moodHandler.GetMoods))
	mux.Handle("GET /get-moods", protected(moodHandler.GetMoods))

	return mux
}

// corsMiddleware adds CORS headers for development
func corsMiddleware(next http.Handler, origin string) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, traceparent, tracestate, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			// Handle preflight - headers already set above
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
