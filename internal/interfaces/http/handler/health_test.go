package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/stocklink/pos/internal/infrastructure/event"
)

func TestHealthHandler_Health(t *testing.T) {
	routes := func(h *HealthHandler) func(r *gin.Engine) {
		return func(r *gin.Engine) { r.GET("/health", h.Health) }
	}

	t.Run("should be ok when the database answers", func(t *testing.T) {
		db := new(MockPinger)
		db.On("Ping", mock.Anything).Return(nil)
		queue := stubQueue{stats: event.QueueStats{Published: 4, Processed: 3, Depth: 1}, running: true}

		w := serve(t, routes(NewHealthHandler(db, queue, "1.2.0")), http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"status":"ok"`)
		assert.Contains(t, body, `"published":4`)
		assert.Contains(t, body, `"workersRunning":true`)
	})

	t.Run("should degrade when the database is down", func(t *testing.T) {
		db := new(MockPinger)
		db.On("Ping", mock.Anything).Return(errors.New("connection refused"))

		w := serve(t, routes(NewHealthHandler(db, nil, "")), http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"unreachable"`)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
