package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/workorbit/workorbit/internal/infrastructure/redis"
	"github.com/workorbit/workorbit/pkg/database"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	pool        *database.ConnectionPool
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pool *database.ConnectionPool, redisClient *redis.Client, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		pool:        pool,
		redisClient: redisClient,
		logger:      logger,
	}
}

// HealthResponse represents the health status response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /healthz - simple liveness check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz - returns 200 only when Postgres and Redis
// both answer within the probe deadline.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if err := h.pool.Health(ctx); err != nil {
		checks["postgres"] = "unavailable: " + err.Error()
		ready = false
		h.logger.Warn("readiness: postgres failed", slog.String("error", err.Error()))
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.redisClient.Ping(ctx); err != nil {
		checks["redis"] = "unavailable: " + err.Error()
		ready = false
		h.logger.Warn("readiness: redis failed", slog.String("error", err.Error()))
	} else {
		checks["redis"] = "ok"
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not ready"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ReadinessResponse{Status: status, Checks: checks})
}
