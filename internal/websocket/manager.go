package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// inboundEvent входящее событие; Data разбирает зарегистрированный обработчик
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorPayload данные события server:error
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// EventHandler обрабатывает данные события определённого типа
type EventHandler func(data json.RawMessage, client *Client) error

// BinaryHandler обрабатывает бинарный кадр клиента
type BinaryHandler func(data []byte, client *Client) error

// Manager обрабатывает WebSocket сообщения
type Manager struct {
	hub HubInterface

	mu             sync.RWMutex
	messageHandler map[string]EventHandler
	binaryHandler  BinaryHandler
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub HubInterface) *Manager {
	return &Manager{
		hub:            hub,
		messageHandler: make(map[string]EventHandler),
	}
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler EventHandler) {
	m.mu.Lock()
	m.messageHandler[eventType] = handler
	m.mu.Unlock()
	log.Printf("[WebSocketManager] Зарегистрирован обработчик для сообщений типа: %s", eventType)
}

// RegisterBinaryHandler регистрирует обработчик бинарных кадров
func (m *Manager) RegisterBinaryHandler(handler BinaryHandler) {
	m.mu.Lock()
	m.binaryHandler = handler
	m.mu.Unlock()
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если обработка не удалась и соединение нужно закрыть.
func (m *Manager) HandleMessage(messageType int, message []byte, client *Client) error {
	if messageType == websocket.BinaryMessage {
		m.mu.RLock()
		handler := m.binaryHandler
		m.mu.RUnlock()
		if handler == nil {
			// Бинарные кадры без активного обработчика просто отбрасываются
			return nil
		}
		return handler(message, client)
	}

	var event inboundEvent
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("Failed to unmarshal message from %s: %v", client.UserID, err)
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err // Ошибка парсинга - закрываем соединение
	}

	m.mu.RLock()
	handler, ok := m.messageHandler[event.Type]
	m.mu.RUnlock()
	if !ok {
		log.Printf("No handler registered for message type '%s' from client %s", event.Type, client.UserID)
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil // Неизвестный тип - не закрываем соединение
	}

	if err := handler(event.Data, client); err != nil {
		log.Printf("Handler for type '%s' returned error for client %s: %v", event.Type, client.UserID, err)
		return err
	}
	return nil
}

// SendErrorToClient отправляет стандартизированное сообщение об ошибке клиенту.
// Этот метод НЕ закрывает соединение.
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	m.SendError(client.UserID, code, message, false)
}

// SendError отправляет server:error пользователю. retryable подсказывает клиенту, что действие можно повторить.
func (m *Manager) SendError(userID, code, message string, retryable bool) {
	errorEvent := Event{
		Type: EventServerError,
		Data: ErrorPayload{Code: code, Message: message, Retryable: retryable},
	}
	if err := m.hub.SendJSONToUser(userID, errorEvent); err != nil {
		log.Printf("ERROR sending error to client %s: %v", userID, err)
	}
}

// BroadcastEvent отправляет событие всем клиентам
func (m *Manager) BroadcastEvent(eventType string, data interface{}) error {
	return m.hub.BroadcastJSON(Event{Type: eventType, Data: data})
}

// SendEventToUser отправляет событие конкретному пользователю
func (m *Manager) SendEventToUser(userID string, eventType string, data interface{}) error {
	return m.hub.SendJSONToUser(userID, Event{Type: eventType, Data: data})
}

// SendBinaryToUser отправляет бинарный кадр конкретному пользователю
func (m *Manager) SendBinaryToUser(userID string, data []byte) error {
	if !m.hub.SendBinaryToUser(userID, data) {
		return fmt.Errorf("user %s is not connected or send buffer is full", userID)
	}
	return nil
}

// IsConnected сообщает, подключен ли пользователь
func (m *Manager) IsConnected(userID string) bool {
	return m.hub.IsConnected(userID)
}

// GetMetrics возвращает текущие метрики WebSocket-системы
func (m *Manager) GetMetrics() map[string]interface{} {
	return m.hub.GetMetrics()
}
