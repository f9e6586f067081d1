package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-center-api/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// QueueGauge reports background queue occupancy.
type QueueGauge interface {
	Pending() int64
	Running() int64
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      Pinger
	queues  map[string]QueueGauge
}

// NewMetricsHandler constructs a metrics handler. db may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, queues: map[string]QueueGauge{}}
}

// TrackQueue adds a queue to the health report.
func (h *MetricsHandler) TrackQueue(name string, q QueueGauge) *MetricsHandler {
	h.queues[name] = q
	return h
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	payload := gin.H{"status": "ok", "metrics": h.metrics.Snapshot()}
	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			payload["status"] = "degraded"
			payload["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			payload["database"] = "ok"
		}
	}
	if len(h.queues) > 0 {
		queues := make(gin.H, len(h.queues))
		for name, q := range h.queues {
			queues[name] = gin.H{"pending": q.Pending(), "running": q.Running()}
		}
		payload["queues"] = queues
	}
	c.JSON(status, payload)
}
