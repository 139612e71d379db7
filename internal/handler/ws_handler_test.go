package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-api/internal/service"
	"github.com/yourusername/vocab-api/internal/websocket"
	"github.com/yourusername/vocab-api/pkg/auth"
)

type wsFixture struct {
	hub    *websocket.Hub
	server *httptest.Server
	token  string
}

type wsEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	base := newHandlerFixture(t)

	hub := websocket.NewHub()
	go hub.Run()
	manager := websocket.NewManager(hub)

	conversationService := service.NewConversationService(service.DefaultConversationConfig(), nil, nil, nil, manager)
	hub.OnDisconnect(conversationService.HandleDisconnect)

	jwtService, err := auth.NewJWTService("handler-secret", "", "")
	require.NoError(t, err)

	wsHandler := NewWSHandler(hub, manager, base.quizService, conversationService, jwtService, nil, WSHandlerConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
	})

	router := gin.New()
	router.GET("/ws", wsHandler.HandleConnection)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		_ = conversationService.Shutdown()
		hub.Stop()
	})
	return &wsFixture{hub: hub, server: server, token: base.token}
}

func (f *wsFixture) url(token string) string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
}

func (f *wsFixture) dial(t *testing.T) *gorillaws.Conn {
	t.Helper()
	conn, _, err := gorillaws.DefaultDialer.Dial(f.url(f.token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return f.hub.IsConnected("user-1") }, time.Second, 5*time.Millisecond)
	return conn
}

func sendEvent(t *testing.T, conn *gorillaws.Conn, eventType string, data interface{}) {
	t.Helper()
	payload := map[string]interface{}{"type": eventType, "data": data}
	require.NoError(t, conn.WriteJSON(payload))
}

func readWSEvent(t *testing.T, conn *gorillaws.Conn) wsEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event wsEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestWSHandler_Handshake(t *testing.T) {
	f := newWSFixture(t)

	t.Run("Без токена", func(t *testing.T) {
		resp, err := http.Get(f.server.URL + "/ws")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Невалидный токен", func(t *testing.T) {
		_, resp, err := gorillaws.DefaultDialer.Dial(f.url("not-a-token"), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Чужой Origin отклоняется", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://evil.example"}}
		_, resp, err := gorillaws.DefaultDialer.Dial(f.url(f.token), header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Разрешённый Origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://localhost:5173"}}
		conn, _, err := gorillaws.DefaultDialer.Dial(f.url(f.token), header)
		require.NoError(t, err)
		conn.Close()
	})
}

func TestWSHandler_QuizEvents(t *testing.T) {
	// Arrange
	f := newWSFixture(t)
	conn := f.dial(t)

	t.Run("Состояние без викторины", func(t *testing.T) {
		sendEvent(t, conn, websocket.EventQuizGetState, nil)

		event := readWSEvent(t, conn)

		require.Equal(t, websocket.EventQuizState, event.Type)
		var state map[string]interface{}
		require.NoError(t, json.Unmarshal(event.Data, &state))
		assert.Equal(t, "not-started", state["status"])
	})

	t.Run("Старт викторины", func(t *testing.T) {
		sendEvent(t, conn, websocket.EventQuizStart, map[string]interface{}{"question_count": 2, "difficulty": "A1"})

		event := readWSEvent(t, conn)

		require.Equal(t, websocket.EventQuizState, event.Type)
		var state map[string]interface{}
		require.NoError(t, json.Unmarshal(event.Data, &state))
		assert.Equal(t, "in-progress", state["status"])
		assert.EqualValues(t, 2, state["total_questions"])
	})

	t.Run("Неверный формат данных не закрывает соединение", func(t *testing.T) {
		sendEvent(t, conn, websocket.EventQuizAnswer, "oops")

		event := readWSEvent(t, conn)
		require.Equal(t, websocket.EventServerError, event.Type)

		sendEvent(t, conn, websocket.EventQuizGetState, nil)
		assert.Equal(t, websocket.EventQuizState, readWSEvent(t, conn).Type)
	})

	t.Run("Сброс возвращает начальное состояние", func(t *testing.T) {
		sendEvent(t, conn, websocket.EventQuizReset, nil)

		event := readWSEvent(t, conn)

		require.Equal(t, websocket.EventQuizState, event.Type)
		var state map[string]interface{}
		require.NoError(t, json.Unmarshal(event.Data, &state))
		assert.Equal(t, "not-started", state["status"])
	})

	t.Run("Завершение без викторины", func(t *testing.T) {
		sendEvent(t, conn, websocket.EventQuizEnd, nil)

		event := readWSEvent(t, conn)

		require.Equal(t, websocket.EventServerError, event.Type)
		var payload websocket.ErrorPayload
		require.NoError(t, json.Unmarshal(event.Data, &payload))
		assert.Equal(t, "no_active_quiz", payload.Code)
	})
}

func TestWSHandler_ConversationWithoutSession(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)

	t.Run("Текст без сессии", func(t *testing.T) {
		sendEvent(t, conn, websocket.EventConversationText, map[string]string{"text": "hello"})

		event := readWSEvent(t, conn)

		require.Equal(t, websocket.EventServerError, event.Type)
		var payload websocket.ErrorPayload
		require.NoError(t, json.Unmarshal(event.Data, &payload))
		assert.Equal(t, "no_conversation", payload.Code)
	})

	t.Run("Пустой текст", func(t *testing.T) {
		sendEvent(t, conn, websocket.EventConversationText, map[string]string{"text": ""})

		var payload websocket.ErrorPayload
		require.NoError(t, json.Unmarshal(readWSEvent(t, conn).Data, &payload))
		assert.Equal(t, "invalid_format", payload.Code)
	})

	t.Run("Бинарный кадр без сессии игнорируется", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(gorillaws.BinaryMessage, []byte{0x01, 0x02}))

		sendEvent(t, conn, websocket.EventHeartbeat, nil)

		assert.Equal(t, websocket.EventServerHeartbeat, readWSEvent(t, conn).Type)
	})
}
