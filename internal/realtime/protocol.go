package realtime

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
)

// Типы управляющих сообщений data channel
const (
	EventSessionUpdate           = "session.update"
	EventConversationItemCreate  = "conversation.item.create"
	EventResponseCreate          = "response.create"
	EventResponseAudioDelta      = "response.audio.delta"
	EventResponseAudioDone       = "response.audio.done"
	EventResponseTranscriptDelta = "response.audio_transcript.delta"
	EventError                   = "error"
)

// SessionUpdate исходящее сообщение конфигурации сессии
type SessionUpdate struct {
	Type    string        `json:"type"`
	Session SessionParams `json:"session"`
}

// SessionParams параметры session.update
type SessionParams struct {
	Modalities              []string                 `json:"modalities"`
	Instructions            string                   `json:"instructions"`
	Voice                   string                   `json:"voice"`
	InputAudioFormat        string                   `json:"input_audio_format"`
	OutputAudioFormat       string                   `json:"output_audio_format"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           TurnDetection            `json:"turn_detection"`
	Speed                   float64                  `json:"speed"`
	SpeakSlowly             bool                     `json:"speak_slowly"`
}

// InputAudioTranscription модель распознавания речи пользователя
type InputAudioTranscription struct {
	Model string `json:"model"`
}

// ConversationItemCreate исходящая реплика пользователя
type ConversationItemCreate struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

// ConversationItem элемент диалога
type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart часть содержимого элемента диалога
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ResponseCreate запрос ответа от собеседника
type ResponseCreate struct {
	Type string `json:"type"`
}

// InboundEvent входящее сообщение data channel. Заполняются только поля нужного типа.
type InboundEvent struct {
	Type    string       `json:"type"`
	Delta   string       `json:"delta,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   *ServerError `json:"error,omitempty"`
}

// ServerError описание ошибки от удалённой стороны
type ServerError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorMessage возвращает текст ошибки из любого поддерживаемого формата
func (e InboundEvent) ErrorMessage() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if e.Message != "" {
		return e.Message
	}
	return "unknown error"
}

var instructionsTemplate = template.Must(template.New("instructions").Parse(
	`You are a friendly English conversation partner helping {{.Nickname}} practice spoken English. ` +
		`Their English level is {{.Level}}. ` +
		`{{if .KnownWords}}They have already learned these words: {{.KnownWords}}. ` +
		`Use them naturally in conversation and introduce new words gradually. {{end}}` +
		`Keep your replies short, correct mistakes gently and ask follow-up questions.` +
		`{{if .SpeakSlowly}} Speak slowly and clearly, with short pauses between sentences.{{end}}`,
))

type instructionsData struct {
	Nickname    string
	Level       string
	KnownWords  string
	SpeakSlowly bool
}

// BuildInstructions формирует системную инструкцию из контекста пользователя
func BuildInstructions(user UserContext, speakSlowly bool, maxKnownWords int) string {
	data := instructionsData{
		Nickname:    strings.TrimSpace(user.Nickname),
		Level:       strings.TrimSpace(user.Level),
		SpeakSlowly: speakSlowly,
	}
	if data.Nickname == "" {
		data.Nickname = "the learner"
	}
	if data.Level == "" {
		data.Level = "not specified"
	}
	known := user.KnownWords
	if maxKnownWords > 0 && len(known) > maxKnownWords {
		known = known[:maxKnownWords]
	}
	data.KnownWords = strings.Join(known, ", ")

	var buf bytes.Buffer
	if err := instructionsTemplate.Execute(&buf, data); err != nil {
		// Шаблон статический, ошибка возможна только при ошибке программиста
		panic(err)
	}
	return buf.String()
}

// BuildSessionUpdate формирует session.update для текущей конфигурации
func BuildSessionUpdate(cfg Config, user UserContext, speakSlowly bool) SessionUpdate {
	speed := cfg.NormalSpeed
	if speakSlowly {
		speed = cfg.SlowSpeed
	}
	params := SessionParams{
		Modalities:        []string{"audio", "text"},
		Instructions:      BuildInstructions(user, speakSlowly, cfg.MaxKnownWords),
		Voice:             cfg.Voice,
		InputAudioFormat:  cfg.InputAudioFormat,
		OutputAudioFormat: cfg.OutputAudioFormat,
		TurnDetection:     cfg.TurnDetection,
		Speed:             speed,
		SpeakSlowly:       speakSlowly,
	}
	if cfg.TranscriptionModel != "" {
		params.InputAudioTranscription = &InputAudioTranscription{Model: cfg.TranscriptionModel}
	}
	return SessionUpdate{Type: EventSessionUpdate, Session: params}
}

// BuildUserText формирует пару сообщений: реплика пользователя и запрос ответа
func BuildUserText(text string) ([]byte, []byte, error) {
	item, err := json.Marshal(ConversationItemCreate{
		Type: EventConversationItemCreate,
		Item: ConversationItem{
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	})
	if err != nil {
		return nil, nil, err
	}
	response, err := json.Marshal(ResponseCreate{Type: EventResponseCreate})
	if err != nil {
		return nil, nil, err
	}
	return item, response, nil
}
