// Package realtime управляет голосовой сессией с AI-собеседником поверх WebRTC:
// согласование peer connection, управляющие сообщения по data channel,
// упорядоченная запись и воспроизведение звука, жизненный цикл сессии.
package realtime

import (
	"time"
)

// ConnectionState состояние голосовой сессии
type ConnectionState string

const (
	StateIdle        ConnectionState = "idle"
	StateNegotiating ConnectionState = "negotiating"
	StateConnected   ConnectionState = "connected"
	StateClosed      ConnectionState = "closed"
)

// DataChannelLabel имя data channel для управляющих сообщений
const DataChannelLabel = "oai-events"

// UserContext сведения о пользователе для системной инструкции
type UserContext struct {
	KnownWords []string `json:"known_words"`
	Level      string   `json:"level"`
	Nickname   string   `json:"nickname"`
}

// TurnDetection политика определения конца реплики на стороне сервера
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

// MediaConstraints параметры захвата микрофона
type MediaConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// Config настройки голосовой сессии
type Config struct {
	Voice              string
	InputAudioFormat   string
	OutputAudioFormat  string
	TranscriptionModel string
	TurnDetection      TurnDetection
	NormalSpeed        float64
	SlowSpeed          float64
	MaxKnownWords      int // сколько известных слов попадает в инструкцию
	NegotiationTimeout time.Duration
	Constraints        MediaConstraints
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Voice:              "alloy",
		InputAudioFormat:   "pcm16",
		OutputAudioFormat:  "pcm16",
		TranscriptionModel: "whisper-1",
		TurnDetection: TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 500,
		},
		NormalSpeed:        1.0,
		SlowSpeed:          0.8,
		MaxKnownWords:      50,
		NegotiationTimeout: 15 * time.Second,
		Constraints: MediaConstraints{
			EchoCancellation: true,
			NoiseSuppression: true,
			SampleRate:       48000,
		},
	}
}
