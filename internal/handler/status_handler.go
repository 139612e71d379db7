package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vocab-api/internal/websocket"
)

// SessionCounter сообщает число активных голосовых сессий
type SessionCounter interface {
	ActiveSessions() int
}

// StatusHandler отдаёт метрики WebSocket-хаба и голосовых сессий
type StatusHandler struct {
	hub      websocket.MetricsProvider
	sessions SessionCounter
}

// NewStatusHandler создает обработчик метрик. sessions может быть nil.
func NewStatusHandler(hub websocket.MetricsProvider, sessions SessionCounter) *StatusHandler {
	return &StatusHandler{hub: hub, sessions: sessions}
}

// Metrics возвращает счётчики хаба и число голосовых сессий
// GET /ws/metrics
func (h *StatusHandler) Metrics(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "websocket hub unavailable"})
		return
	}
	metrics := h.hub.GetMetrics()
	metrics["conversation_sessions"] = h.activeSessions()
	metrics["generated_at"] = time.Now().Format(time.RFC3339)
	c.JSON(http.StatusOK, metrics)
}

// Health сообщает, работает ли realtime-часть сервера
// GET /ws/health
func (h *StatusHandler) Health(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unavailable",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":                "healthy",
		"active_connections":    h.hub.ClientCount(),
		"conversation_sessions": h.activeSessions(),
		"timestamp":             time.Now().Format(time.RFC3339),
	})
}

func (h *StatusHandler) activeSessions() int {
	if h.sessions == nil {
		return 0
	}
	return h.sessions.ActiveSessions()
}
