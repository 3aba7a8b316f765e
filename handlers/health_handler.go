package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/tron-node-provider/internal/observability"
	"github.com/upb/tron-node-provider/utils"
	"go.uber.org/zap"
)

// defaultReadinessTimeout bounds the status probes run by HandleReadiness.
const defaultReadinessTimeout = 5 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	nodes   NodeGateway
	logger  *zap.Logger
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(nodes NodeGateway, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		nodes:   nodes,
		logger:  observability.OrNop(logger),
		timeout: defaultReadinessTimeout,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Ready only when every registered node answers its status page.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	status := h.nodes.Status(ctx)
	if len(status) == 0 {
		checks["nodes"] = "none_configured"
		allHealthy = false
	}
	for role, connected := range status {
		if connected {
			checks[string(role)] = "connected"
			continue
		}
		checks[string(role)] = "unreachable"
		allHealthy = false
		observability.WithContext(ctx, h.logger).Warn("node status check failed",
			zap.String("role", string(role)))
	}

	// Determine overall status
	overall := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		overall = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
