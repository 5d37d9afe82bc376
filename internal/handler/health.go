package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/database"
	"github.com/cleberrangel/leads-admin-api/internal/metrics"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

// maxHeapMB é o limite de memória usado no readiness
const maxHeapMB = 512

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	store     metrics.Pinger
	wsHub     *websocket.Hub
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. store is the session store
func NewHealthHandler(store metrics.Pinger, wsHub *websocket.Hub, version string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		wsHub:     wsHub,
		version:   version,
		startTime: time.Now(),
	}
}

// LivenessCheck returns basic liveness status
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// ReadinessCheck returns readiness status including the session store
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} metrics.HealthCheck
// @Failure 503 {object} metrics.HealthCheck
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	components := map[string]metrics.HealthStatus{
		"session_store": metrics.CheckPingHealth(c.Request.Context(), h.store),
		"memory":        metrics.CheckMemoryHealth(maxHeapMB),
	}
	if h.wsHub != nil {
		components["websocket"] = metrics.HealthStatus{Status: "healthy"}
	}

	overallStatus := metrics.DetermineOverallStatus(components)

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

// GetMetrics returns application metrics
// @Summary Get application metrics
// @Tags metrics
// @Produce json
// @Success 200 {object} metrics.MetricsSnapshot
// @Router /metrics [get]
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Get().Snapshot())
}

// Interfaces opcionais do store de sessões, usadas em /metrics/sessions
type (
	activeCounter interface {
		CountActive(ctx context.Context) (admin, chat int, err error)
	}
	poolStatter interface {
		PoolStats() database.PoolStats
	}
	sizer interface {
		Size() int
	}
)

// GetSessionStats returns session counts and, for PostgreSQL, pool statistics
func (h *HealthHandler) GetSessionStats(c *gin.Context) {
	stats := map[string]interface{}{}

	switch store := h.store.(type) {
	case activeCounter:
		admin, chat, err := store.CountActive(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		stats["admin_sessions"] = admin
		stats["chat_sessions"] = chat
	case sizer:
		stats["sessions"] = store.Size()
	}
	if p, ok := h.store.(poolStatter); ok {
		stats["pool"] = p.PoolStats()
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: stats})
}
