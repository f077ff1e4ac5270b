package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/featureflags"
	"github.com/workorbit/workorbit/internal/handler"
	"github.com/workorbit/workorbit/internal/infrastructure/logger"
	"github.com/workorbit/workorbit/internal/infrastructure/redis"
	"github.com/workorbit/workorbit/internal/notification"
	"github.com/workorbit/workorbit/internal/observability/metrics"
	"github.com/workorbit/workorbit/internal/observability/tracing"
	"github.com/workorbit/workorbit/internal/repository"
	"github.com/workorbit/workorbit/internal/security"
	"github.com/workorbit/workorbit/internal/security/audit"
	"github.com/workorbit/workorbit/internal/security/auth"
	"github.com/workorbit/workorbit/internal/security/middleware"
	"github.com/workorbit/workorbit/internal/security/ratelimit"
	"github.com/workorbit/workorbit/internal/service"
	"github.com/workorbit/workorbit/pkg/config"
	"github.com/workorbit/workorbit/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting WorkOrbit server", slog.String("environment", cfg.Environment))

	// 3. Initialize tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(context.Background(), log, "workorbit", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres and bootstrap the schema
	dbConfig := database.DefaultConfig()
	dbConfig.Host = cfg.DatabaseHost
	dbConfig.Port = cfg.DatabasePort
	dbConfig.User = cfg.DatabaseUser
	dbConfig.Password = cfg.DatabasePassword
	dbConfig.Database = cfg.DatabaseName
	dbConfig.SSLMode = cfg.DatabaseSSLMode

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := database.NewConnectionPool(bootCtx, dbConfig, log)
	if err != nil {
		bootCancel()
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := pool.Bootstrap(bootCtx); err != nil {
		bootCancel()
		log.Error("failed to bootstrap schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	bootCancel()
	defer pool.Close()

	// 5. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Initialize store and security components
	store := repository.NewPostgresStore(pool.GetDB(), log)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "workorbit", cfg.TokenTTL)
	guard := security.NewApprovalGuard(log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	loginLimit := cfg.LoginRateLimit
	if featureflags.Enabled("STRICT_LOGIN_LIMITS") && loginLimit > 3 {
		loginLimit = 3
	}

	// 7. Initialize notification pipeline
	publisher := notification.NewRedisPublisher(redisClient, cfg.NotificationQueue, log)
	hub := notification.NewHub(log)
	dispatcher := notification.NewDispatcher(redisClient, cfg.NotificationQueue, hub, cfg.DispatchPollTimeout, log)

	var eventPublisher domain.EventPublisher = publisher
	if !featureflags.EnabledDefault("NOTIFICATIONS", true) {
		log.Info("notifications disabled by feature flag")
		eventPublisher = nil
	}

	// 8. Initialize services
	authService := service.NewAuthService(store, tokenManager, eventPublisher, cfg.MaxLoginAttempts, cfg.LockoutDuration, log)
	hierarchyService := service.NewHierarchyService(store, guard, eventPublisher, log)

	// 9. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, log)
	hierarchyHandler := handler.NewHierarchyHandler(hierarchyService, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)
	notificationsHandler := handler.NewNotificationsHandler(hub, tokenManager, log, cfg.CORSAllowedOrigins)

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register-admin", authHandler.RegisterAdmin)
	mux.HandleFunc("POST /api/auth/register-hr", authHandler.RegisterHR)
	mux.HandleFunc("POST /api/auth/register-staff", authHandler.RegisterStaff)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("GET /api/hierarchy/requests/pending",
		middleware.RequireRoles(log, auditLogger, http.HandlerFunc(hierarchyHandler.Pending), domain.RoleAdmin, domain.RoleHR))
	mux.Handle("PUT /api/hierarchy/requests/{id}/approve",
		middleware.RequireRoles(log, auditLogger, http.HandlerFunc(hierarchyHandler.Approve), domain.RoleAdmin, domain.RoleHR))
	mux.Handle("PUT /api/hierarchy/requests/{id}/reject",
		middleware.RequireRoles(log, auditLogger, http.HandlerFunc(hierarchyHandler.Reject), domain.RoleAdmin, domain.RoleHR))
	mux.HandleFunc("GET /api/hierarchy/validate/org-code/{code}", hierarchyHandler.ValidateOrgCode)
	mux.HandleFunc("GET /api/hierarchy/validate/hr-code/{code}", hierarchyHandler.ValidateHRCode)

	mux.Handle("GET /ws/notifications", notificationsHandler)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> tracing -> sanitize ->
	// content type -> JWT -> rate limit -> audit -> CORS -> mux
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			otelhttp.NewHandler(
				middleware.SanitizeInputs(log)(
					middleware.ValidateJSONContentType(log)(
						middleware.JWTMiddleware(tokenManager, log)(
							middleware.RateLimitMiddleware(rateLimiter, loginLimit, log)(
								middleware.AuditMiddleware(auditLogger)(handlerWithCORS),
							),
						),
					),
				),
				"workorbit.http",
			),
		),
		log,
	)

	// 11. Start the notification dispatcher in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if eventPublisher != nil {
		go dispatcher.Start(ctx)
	}

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop dispatcher
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
