package websocket

// Входящие события викторины
const (
	EventQuizStart    = "quiz:start"
	EventQuizAnswer   = "quiz:answer"
	EventQuizSkip     = "quiz:skip"
	EventQuizNext     = "quiz:next"
	EventQuizPrevious = "quiz:previous"
	EventQuizEnd      = "quiz:end"
	EventQuizReset    = "quiz:reset"
	EventQuizGetState = "quiz:get_state"
)

// Исходящие события викторины
const (
	// EventQuizState актуальное состояние сессии викторины
	EventQuizState = "quiz:state"

	// EventQuizAutoAdvance состояние после автоматического перехода к следующему вопросу
	EventQuizAutoAdvance = "quiz:auto_advance"

	// EventQuizResult итог завершённой викторины
	EventQuizResult = "quiz:result"
)

// События голосового собеседника. Аудио микрофона приходит бинарными кадрами,
// аудио собеседника уходит клиенту бинарными кадрами.
const (
	EventConversationStart      = "conversation:start"
	EventConversationStop       = "conversation:stop"
	EventConversationText       = "conversation:text"
	EventConversationSpeed      = "conversation:speed"
	EventConversationUserInfo   = "conversation:user_info"
	EventConversationAudioEnded = "conversation:audio_ended"

	EventConversationState        = "conversation:state"
	EventConversationTranscript   = "conversation:transcript"
	EventConversationAudioDone    = "conversation:audio_done"
	EventConversationReconnecting = "conversation:reconnecting"
)

// Служебные события
const (
	EventHeartbeat       = "user:heartbeat"
	EventServerHeartbeat = "server:heartbeat"
	EventServerError     = "server:error"
)
