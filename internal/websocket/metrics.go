package websocket

import (
	"time"

	"go.uber.org/atomic"
)

// HubMetrics агрегированные метрики WebSocket-сервера
type HubMetrics struct {
	totalConnections  atomic.Int64
	activeConnections atomic.Int64
	messagesSent      atomic.Int64
	messagesReceived  atomic.Int64
	startTime         time.Time
}

// NewHubMetrics создает новый экземпляр метрик Hub
func NewHubMetrics() *HubMetrics {
	return &HubMetrics{startTime: time.Now()}
}

// IncrementTotalConnections увеличивает счетчики подключений
func (m *HubMetrics) IncrementTotalConnections() {
	m.totalConnections.Inc()
	m.activeConnections.Inc()
}

// DecrementActiveConnections уменьшает счетчик активных подключений
func (m *HubMetrics) DecrementActiveConnections() {
	for {
		current := m.activeConnections.Load()
		if current <= 0 || m.activeConnections.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// AddMessageSent увеличивает счетчик отправленных сообщений
func (m *HubMetrics) AddMessageSent() { m.messagesSent.Inc() }

// AddMessageReceived увеличивает счетчик полученных сообщений
func (m *HubMetrics) AddMessageReceived() { m.messagesReceived.Inc() }

// Snapshot возвращает текущие значения метрик
func (m *HubMetrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"total_connections":  m.totalConnections.Load(),
		"active_connections": m.activeConnections.Load(),
		"messages_sent":      m.messagesSent.Load(),
		"messages_received":  m.messagesReceived.Load(),
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
	}
}
