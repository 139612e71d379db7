package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/vocab-api/internal/handler/dto"
	"github.com/yourusername/vocab-api/internal/middleware"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
	"github.com/yourusername/vocab-api/internal/service"
	"github.com/yourusername/vocab-api/internal/service/quizengine"
	"github.com/yourusername/vocab-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	wsHub               *websocket.Hub
	wsManager           *websocket.Manager
	quizService         *service.QuizService
	conversationService *service.ConversationService
	jwtService          middleware.TokenParser
	rateLimiter         *middleware.RateLimiter
	upgrader            gorillaws.Upgrader
	clientConfig        websocket.ClientConfig
}

// WSHandlerConfig настройки соединений
type WSHandlerConfig struct {
	AllowedOrigins []string
	Client         websocket.ClientConfig
}

// NewWSHandler создает новый обработчик WebSocket. rateLimiter может быть nil.
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	quizService *service.QuizService,
	conversationService *service.ConversationService,
	jwtService middleware.TokenParser,
	rateLimiter *middleware.RateLimiter,
	config WSHandlerConfig,
) *WSHandler {
	handler := &WSHandler{
		wsHub:               wsHub,
		wsManager:           wsManager,
		quizService:         quizService,
		conversationService: conversationService,
		jwtService:          jwtService,
		rateLimiter:         rateLimiter,
		upgrader:            newUpgrader(config.AllowedOrigins),
		clientConfig:        config.Client,
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerQuizHandlers()
	handler.registerConversationHandlers()
	handler.registerServiceHandlers()

	return handler
}

func newUpgrader(allowedOrigins []string) gorillaws.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return gorillaws.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Не браузерный клиент (мобильное приложение, curl и т.д.)
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			log.Printf("[WSHandler] Rejected unauthorized origin: %s", origin)
			return false
		},
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение
// GET /ws?token=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// НЕ логируем токен - это секретные данные аутентификации
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication token parameter", "error_type": "token_missing"})
		return
	}

	claims, err := h.jwtService.ParseToken(token)
	if err != nil {
		log.Printf("[WSHandler] Invalid or expired token: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("[WSHandler] Error upgrading connection: %v", err)
		return
	}

	log.Printf("[WSHandler] Connection upgraded for UserID: %s", claims.UserID())
	client := websocket.NewClientWithConfig(h.wsHub, conn, claims.UserID(), h.clientConfig)
	client.StartPumps(h.wsManager.HandleMessage)
}

// registerQuizHandlers регистрирует события викторины. Каждое событие отвечает актуальным состоянием.
func (h *WSHandler) registerQuizHandlers() {
	h.wsManager.RegisterHandler(websocket.EventQuizStart, func(data json.RawMessage, client *websocket.Client) error {
		var req dto.StartQuizRequest
		if !h.decode(data, &req, client, websocket.EventQuizStart) {
			return nil
		}
		state, err := h.quizService.StartQuiz(client.UserID, req.Settings())
		return h.replyState(client, state, err)
	})

	h.wsManager.RegisterHandler(websocket.EventQuizAnswer, func(data json.RawMessage, client *websocket.Client) error {
		var req dto.AnswerRequest
		if !h.decode(data, &req, client, websocket.EventQuizAnswer) {
			return nil
		}
		state, _, err := h.quizService.Answer(client.UserID, req.QuestionID, req.Answer, req.TimeSpentMs)
		return h.replyState(client, state, err)
	})

	h.wsManager.RegisterHandler(websocket.EventQuizSkip, func(data json.RawMessage, client *websocket.Client) error {
		var req dto.SkipRequest
		if !h.decode(data, &req, client, websocket.EventQuizSkip) {
			return nil
		}
		state, _, err := h.quizService.Skip(client.UserID, req.QuestionID)
		return h.replyState(client, state, err)
	})

	h.wsManager.RegisterHandler(websocket.EventQuizNext, func(_ json.RawMessage, client *websocket.Client) error {
		state, _, err := h.quizService.Next(client.UserID)
		return h.replyState(client, state, err)
	})

	h.wsManager.RegisterHandler(websocket.EventQuizPrevious, func(_ json.RawMessage, client *websocket.Client) error {
		state, _, err := h.quizService.Previous(client.UserID)
		return h.replyState(client, state, err)
	})

	h.wsManager.RegisterHandler(websocket.EventQuizGetState, func(_ json.RawMessage, client *websocket.Client) error {
		state, err := h.quizService.CurrentState(client.UserID)
		if errors.Is(err, apperrors.ErrNoActiveQuiz) {
			return h.replyState(client, quizengine.InitialState(), nil)
		}
		return h.replyState(client, state, err)
	})

	h.wsManager.RegisterHandler(websocket.EventQuizEnd, func(_ json.RawMessage, client *websocket.Client) error {
		result, err := h.quizService.EndQuiz(client.UserID)
		if err != nil && result == nil {
			h.sendServiceError(client, err)
			return nil
		}
		if err != nil {
			log.Printf("[WSHandler] Результат викторины %s не сохранён: %v", result.QuizID, err)
		}
		h.send(client.UserID, websocket.EventQuizResult, result)
		return nil
	})

	h.wsManager.RegisterHandler(websocket.EventQuizReset, func(_ json.RawMessage, client *websocket.Client) error {
		if err := h.quizService.ResetQuiz(client.UserID); err != nil && !errors.Is(err, apperrors.ErrNoActiveQuiz) {
			h.sendServiceError(client, err)
			return nil
		}
		return h.replyState(client, quizengine.InitialState(), nil)
	})
}

// registerConversationHandlers регистрирует события голосового собеседника и бинарные кадры микрофона
func (h *WSHandler) registerConversationHandlers() {
	h.wsManager.RegisterHandler(websocket.EventConversationStart, func(data json.RawMessage, client *websocket.Client) error {
		var opts service.StartOptions
		if !h.decode(data, &opts, client, websocket.EventConversationStart) {
			return nil
		}
		if !h.allowConversation(client.UserID) {
			h.wsManager.SendErrorToClient(client, "rate_limited", "Too many conversation starts. Please try again later.")
			return nil
		}

		userID := client.UserID
		// Согласование может длиться секунды, не блокируем чтение сокета
		go func() {
			if err := h.conversationService.Start(context.Background(), userID, opts); err != nil {
				log.Printf("[WSHandler] Голосовая сессия пользователя %s не запущена: %v", userID, err)
			}
		}()
		return nil
	})

	h.wsManager.RegisterHandler(websocket.EventConversationStop, func(_ json.RawMessage, client *websocket.Client) error {
		if err := h.conversationService.Stop(client.UserID); err != nil {
			log.Printf("[WSHandler] Ошибка остановки голосовой сессии пользователя %s: %v", client.UserID, err)
		}
		return nil
	})

	h.wsManager.RegisterHandler(websocket.EventConversationText, func(data json.RawMessage, client *websocket.Client) error {
		var req struct {
			Text string `json:"text"`
		}
		if !h.decode(data, &req, client, websocket.EventConversationText) {
			return nil
		}
		if req.Text == "" {
			h.wsManager.SendErrorToClient(client, "invalid_format", "text is required")
			return nil
		}
		if err := h.conversationService.SendText(client.UserID, req.Text); err != nil {
			h.sendServiceError(client, err)
		}
		return nil
	})

	h.wsManager.RegisterHandler(websocket.EventConversationSpeed, func(data json.RawMessage, client *websocket.Client) error {
		var req struct {
			Slow bool `json:"slow"`
		}
		if !h.decode(data, &req, client, websocket.EventConversationSpeed) {
			return nil
		}
		if err := h.conversationService.SetSpeakingSpeed(client.UserID, req.Slow); err != nil {
			h.sendServiceError(client, err)
		}
		return nil
	})

	h.wsManager.RegisterHandler(websocket.EventConversationUserInfo, func(data json.RawMessage, client *websocket.Client) error {
		var req struct {
			Nickname string `json:"nickname"`
			Level    string `json:"level"`
		}
		if !h.decode(data, &req, client, websocket.EventConversationUserInfo) {
			return nil
		}
		if err := h.conversationService.SetUserInfo(client.UserID, req.Nickname, req.Level); err != nil {
			h.sendServiceError(client, err)
		}
		return nil
	})

	h.wsManager.RegisterHandler(websocket.EventConversationAudioEnded, func(_ json.RawMessage, client *websocket.Client) error {
		h.conversationService.AudioEnded(client.UserID)
		return nil
	})

	// Кадры без активной сессии отбрасываются
	h.wsManager.RegisterBinaryHandler(func(data []byte, client *websocket.Client) error {
		h.conversationService.PushAudio(client.UserID, data)
		return nil
	})
}

func (h *WSHandler) registerServiceHandlers() {
	h.wsManager.RegisterHandler(websocket.EventHeartbeat, func(_ json.RawMessage, client *websocket.Client) error {
		heartbeatResponse := map[string]interface{}{
			"timestamp": time.Now().UnixNano() / int64(time.Millisecond),
		}
		h.send(client.UserID, websocket.EventServerHeartbeat, heartbeatResponse)
		return nil // Никогда не закрываем соединение из-за heartbeat
	})
}

// --- Вспомогательные методы ---

// decode разбирает данные события. Ошибка формата не закрывает соединение.
func (h *WSHandler) decode(data json.RawMessage, dest interface{}, client *websocket.Client, eventType string) bool {
	if len(data) == 0 || string(data) == "null" {
		return true
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("[WSHandler] Ошибка парсинга %s: %v", eventType, err)
		h.wsManager.SendErrorToClient(client, "invalid_format", fmt.Sprintf("Failed to parse %s event", eventType))
		return false
	}
	return true
}

func (h *WSHandler) replyState(client *websocket.Client, state quizengine.State, err error) error {
	if err != nil {
		h.sendServiceError(client, err)
		return nil
	}
	h.send(client.UserID, websocket.EventQuizState, dto.NewQuizStateResponse(state))
	return nil
}

func (h *WSHandler) send(userID, eventType string, data interface{}) {
	if err := h.wsManager.SendEventToUser(userID, eventType, data); err != nil {
		log.Printf("[WSHandler] WARNING: Ошибка при отправке %s пользователю %s: %v", eventType, userID, err)
	}
}

// sendServiceError отправляет клиенту код ошибки сервиса
func (h *WSHandler) sendServiceError(client *websocket.Client, err error) {
	code := "internal_error"
	switch {
	case errors.Is(err, apperrors.ErrNoActiveQuiz):
		code = "no_active_quiz"
	case errors.Is(err, apperrors.ErrNoWordsAtLevel), errors.Is(err, apperrors.ErrNoWordsAvailable):
		code = "no_words"
	case errors.Is(err, apperrors.ErrValidation):
		code = "validation"
	case errors.Is(err, apperrors.ErrSessionClosed):
		code = "no_conversation"
	case errors.Is(err, apperrors.ErrConflict):
		code = "conflict"
	case errors.Is(err, apperrors.ErrNotFound):
		code = "not_found"
	default:
		log.Printf("[WSHandler] Внутренняя ошибка для пользователя %s: %v", client.UserID, err)
		h.wsManager.SendErrorToClient(client, code, "Internal server error")
		return
	}
	h.wsManager.SendErrorToClient(client, code, err.Error())
}

func (h *WSHandler) allowConversation(userID string) bool {
	if h.rateLimiter == nil {
		return true
	}
	cfg := middleware.ConversationRateLimitConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	allowed, _, _ := h.rateLimiter.Allow(ctx, fmt.Sprintf("%s:user:%s", cfg.KeyPrefix, userID), cfg)
	return allowed
}
