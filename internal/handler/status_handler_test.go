package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-api/internal/websocket"
)

type fixedSessions int

func (n fixedSessions) ActiveSessions() int { return int(n) }

func newStatusRouter(h *StatusHandler) *gin.Engine {
	router := gin.New()
	router.GET("/ws/metrics", h.Metrics)
	router.GET("/ws/health", h.Health)
	return router
}

func getJSON(t *testing.T, router *gin.Engine, path string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestStatusHandler(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	t.Run("Метрики включают голосовые сессии", func(t *testing.T) {
		router := newStatusRouter(NewStatusHandler(hub, fixedSessions(2)))

		code, body := getJSON(t, router, "/ws/metrics")

		assert.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 2, body["conversation_sessions"])
		assert.EqualValues(t, 0, body["client_count"])
		assert.Contains(t, body, "messages_sent")
		assert.NotEmpty(t, body["generated_at"])
	})

	t.Run("Проверка состояния", func(t *testing.T) {
		router := newStatusRouter(NewStatusHandler(hub, fixedSessions(1)))

		code, body := getJSON(t, router, "/ws/health")

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", body["status"])
		assert.EqualValues(t, 0, body["active_connections"])
		assert.EqualValues(t, 1, body["conversation_sessions"])
	})

	t.Run("Без хаба сервис недоступен", func(t *testing.T) {
		router := newStatusRouter(NewStatusHandler(nil, nil))

		code, body := getJSON(t, router, "/ws/health")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unavailable", body["status"])

		code, _ = getJSON(t, router, "/ws/metrics")
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}
