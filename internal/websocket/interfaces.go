package websocket

// MetricsProvider определяет метод для получения метрик хаба.
type MetricsProvider interface {
	GetMetrics() map[string]interface{}
	ClientCount() int
}

// HubInterface объединяет возможности хаба, которыми пользуется Manager.
type HubInterface interface {
	MetricsProvider

	// BroadcastJSON отправляет структуру JSON всем клиентам
	BroadcastJSON(v interface{}) error

	// SendJSONToUser отправляет структуру JSON конкретному пользователю
	SendJSONToUser(userID string, v interface{}) error

	// SendToUser отправляет текстовое сообщение конкретному пользователю
	SendToUser(userID string, message []byte) bool

	// SendBinaryToUser отправляет бинарное сообщение конкретному пользователю
	SendBinaryToUser(userID string, data []byte) bool

	// IsConnected сообщает, есть ли у пользователя активное соединение
	IsConnected(userID string) bool
}
