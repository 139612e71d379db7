package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// DisconnectHook вызывается, когда у пользователя не осталось активного соединения
type DisconnectHook func(userID string)

// Hub хранит одно активное соединение на пользователя.
// Новое соединение пользователя вытесняет прежнее.
type Hub struct {
	clients    sync.Map // userID -> *Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	metrics    *HubMetrics

	hooksMu sync.RWMutex
	hooks   []DisconnectHook
}

// NewHub создает хаб. Цикл обработки запускается через Run.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		done:       make(chan struct{}),
		metrics:    NewHubMetrics(),
	}
}

// OnDisconnect добавляет обработчик отключения пользователя
func (h *Hub) OnDisconnect(hook DisconnectHook) {
	h.hooksMu.Lock()
	h.hooks = append(h.hooks, hook)
	h.hooksMu.Unlock()
}

// Run запускает цикл регистрации клиентов
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case <-h.done:
			log.Printf("[Hub] Получен сигнал завершения работы, закрываем соединения")
			h.clients.Range(func(key, value interface{}) bool {
				client := value.(*Client)
				client.CloseSend()
				h.clients.Delete(key)
				return true
			})
			return
		}
	}
}

// Stop останавливает цикл хаба. Повторный вызов безопасен.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Unregister снимает клиента с регистрации
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) handleRegister(client *Client) {
	previous, loaded := h.clients.Swap(client.UserID, client)
	if loaded {
		if old, ok := previous.(*Client); ok && old != client {
			log.Printf("[Hub] Пользователь %s переподключился, закрываем прежнее соединение %s", client.UserID, old.ConnectionID)
			old.CloseSend()
			h.metrics.DecrementActiveConnections()
		}
	}
	h.metrics.IncrementTotalConnections()
	log.Printf("[Hub] Клиент зарегистрирован: UserID=%s, ConnID=%s", client.UserID, client.ConnectionID)

	select {
	case client.registrationComplete <- struct{}{}:
	default:
	}
}

func (h *Hub) handleUnregister(client *Client) {
	if !h.clients.CompareAndDelete(client.UserID, client) {
		// Клиент уже вытеснен новым соединением
		client.CloseSend()
		return
	}
	client.CloseSend()
	h.metrics.DecrementActiveConnections()
	log.Printf("[Hub] Клиент отключен: UserID=%s, ConnID=%s", client.UserID, client.ConnectionID)

	h.hooksMu.RLock()
	hooks := append([]DisconnectHook(nil), h.hooks...)
	h.hooksMu.RUnlock()
	for _, hook := range hooks {
		// Обработчики могут освобождать медиаресурсы, цикл хаба не ждёт их
		go hook(client.UserID)
	}
}

func (h *Hub) client(userID string) (*Client, bool) {
	value, ok := h.clients.Load(userID)
	if !ok {
		return nil, false
	}
	return value.(*Client), true
}

// IsConnected реализует HubInterface
func (h *Hub) IsConnected(userID string) bool {
	_, ok := h.client(userID)
	return ok
}

// SendToUser реализует HubInterface
func (h *Hub) SendToUser(userID string, message []byte) bool {
	client, ok := h.client(userID)
	if !ok {
		return false
	}
	return client.enqueue(websocket.TextMessage, message)
}

// SendBinaryToUser реализует HubInterface
func (h *Hub) SendBinaryToUser(userID string, data []byte) bool {
	client, ok := h.client(userID)
	if !ok {
		return false
	}
	return client.enqueue(websocket.BinaryMessage, data)
}

// SendJSONToUser реализует HubInterface
func (h *Hub) SendJSONToUser(userID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message for user %s: %w", userID, err)
	}
	if !h.SendToUser(userID, data) {
		return fmt.Errorf("user %s is not connected or send buffer is full", userID)
	}
	return nil
}

// BroadcastJSON реализует HubInterface
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal broadcast message: %w", err)
	}
	h.clients.Range(func(_, value interface{}) bool {
		value.(*Client).enqueue(websocket.TextMessage, data)
		return true
	})
	return nil
}

// ClientCount реализует MetricsProvider
func (h *Hub) ClientCount() int {
	count := 0
	h.clients.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// GetMetrics реализует MetricsProvider
func (h *Hub) GetMetrics() map[string]interface{} {
	metrics := h.metrics.Snapshot()
	metrics["client_count"] = h.ClientCount()
	return metrics
}
