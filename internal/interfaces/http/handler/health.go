package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocklink/pos/internal/infrastructure/event"
	"github.com/stocklink/pos/internal/interfaces/http/dto"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueInspector exposes the receipt queue counters
type QueueInspector interface {
	Stats() event.QueueStats
	Running() bool
}

// HealthHandler reports liveness together with database reachability
type HealthHandler struct {
	BaseHandler
	db      Pinger
	queue   QueueInspector
	version string
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. queue may be nil.
func NewHealthHandler(db Pinger, queue QueueInspector, version string) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, version: version, timeout: 2 * time.Second}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Database string            `json:"database"`
	Queue    *event.QueueStats `json:"queue,omitempty"`
	Workers  bool              `json:"workersRunning"`
}

// Health godoc
// @Summary      Liveness and database ping
// @Tags         system
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Version: h.version, Database: "ok"}
	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if h.queue != nil {
		stats := h.queue.Stats()
		resp.Queue = &stats
		resp.Workers = h.queue.Running()
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
