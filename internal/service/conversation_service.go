package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/vocab-api/internal/domain/repository"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
	"github.com/yourusername/vocab-api/internal/realtime"
	"github.com/yourusername/vocab-api/internal/websocket"
)

// ConversationSender доставляет клиенту события и звук собеседника
type ConversationSender interface {
	SendEventToUser(userID string, eventType string, data interface{}) error
	SendBinaryToUser(userID string, data []byte) error
	SendError(userID, code, message string, retryable bool)
}

// ConversationConfig настройки голосового собеседника
type ConversationConfig struct {
	Realtime realtime.Config

	// Backoff стратегия переподключения для StartOptions.Reconnect
	Backoff realtime.BackoffStrategy

	// PlaybackBytesPerSecond скорость воспроизведения для оценки длительности фрагмента
	PlaybackBytesPerSecond int

	// PlaybackPadding запас сверх длительности фрагмента, если клиент не подтвердил окончание
	PlaybackPadding time.Duration

	// MicBufferFrames сколько кадров микрофона буферизуется до отправки в трек
	MicBufferFrames int
}

// DefaultConversationConfig возвращает конфигурацию по умолчанию: pcm16, 24 кГц, моно
func DefaultConversationConfig() ConversationConfig {
	return ConversationConfig{
		Realtime:               realtime.DefaultConfig(),
		Backoff:                realtime.DefaultBackoff(),
		PlaybackBytesPerSecond: 48000,
		PlaybackPadding:        2 * time.Second,
		MicBufferFrames:        64,
	}
}

// StartOptions параметры запуска разговора
type StartOptions struct {
	Nickname    string `json:"nickname"`
	Level       string `json:"level"`
	SpeakSlowly bool   `json:"speak_slowly"`
	Reconnect   bool   `json:"reconnect"`
}

// ConversationService связывает WebSocket-клиента с голосовой сессией:
// кадры микрофона приходят бинарными сообщениями, звук собеседника уходит так же.
type ConversationService struct {
	config       ConversationConfig
	peers        realtime.PeerFactory
	negotiator   realtime.Negotiator
	progressRepo repository.ProgressRepository
	sender       ConversationSender
	registry     *realtime.Registry

	mu      sync.Mutex
	bridges map[string]*conversationBridge
}

// NewConversationService создает сервис голосового собеседника
func NewConversationService(
	config ConversationConfig,
	peers realtime.PeerFactory,
	negotiator realtime.Negotiator,
	progressRepo repository.ProgressRepository,
	sender ConversationSender,
) *ConversationService {
	if config.PlaybackBytesPerSecond <= 0 {
		config.PlaybackBytesPerSecond = DefaultConversationConfig().PlaybackBytesPerSecond
	}
	if config.MicBufferFrames <= 0 {
		config.MicBufferFrames = DefaultConversationConfig().MicBufferFrames
	}
	return &ConversationService{
		config:       config,
		peers:        peers,
		negotiator:   negotiator,
		progressRepo: progressRepo,
		sender:       sender,
		registry:     realtime.NewRegistry(),
		bridges:      make(map[string]*conversationBridge),
	}
}

// Start подключает голосовую сессию пользователя. Предыдущая сессия закрывается до захвата
// микрофона новой. Ошибка подключения сообщается клиенту как повторяемая.
func (s *ConversationService) Start(ctx context.Context, userID string, opts StartOptions) error {
	known, err := s.progressRepo.GetLearnedWords(userID)
	if err != nil {
		log.Printf("[ConversationService] Не удалось получить выученные слова пользователя %s: %v", userID, err)
		known = nil
	}
	user := realtime.UserContext{KnownWords: known, Level: opts.Level, Nickname: opts.Nickname}

	if err := s.Stop(userID); err != nil {
		log.Printf("[ConversationService] Ошибки при закрытии предыдущей сессии пользователя %s: %v", userID, err)
	}

	connectCtx, cancel := context.WithCancel(ctx)
	bridge := newConversationBridge(connectCtx, userID, s.sender, s.config, cancel, opts.Reconnect)
	s.mu.Lock()
	s.bridges[userID] = bridge
	s.mu.Unlock()

	var strategy realtime.BackoffStrategy
	if bridge.reconnect {
		strategy = s.config.Backoff
	}
	session, err := realtime.ConnectWithRetry(connectCtx, strategy, s.sessionFactory(userID, bridge, user, opts.SpeakSlowly, false), s.notifyReconnecting(userID))
	return s.attach(userID, bridge, session, err)
}

// sessionFactory создает сессии разговора на общих ресурсах bridge. С register каждая
// попытка сразу регистрируется, чтобы State отражал ход переподключения.
func (s *ConversationService) sessionFactory(userID string, bridge *conversationBridge, user realtime.UserContext, speakSlowly, register bool) func() *realtime.Session {
	return func() *realtime.Session {
		session := realtime.NewSession(s.config.Realtime, realtime.Dependencies{
			Devices:    bridge.devices,
			Peers:      s.peers,
			Negotiator: s.negotiator,
			Player:     bridge.player,
			Listener:   &conversationListener{userID: userID, sender: s.sender},
		}, user, speakSlowly)
		if register {
			s.mu.Lock()
			if s.bridges[userID] == bridge {
				s.registry.Acquire(userID, session)
			}
			s.mu.Unlock()
		}
		return session
	}
}

func (s *ConversationService) notifyReconnecting(userID string) realtime.RetryNotify {
	return func(attempt int, delay time.Duration, cause error) {
		payload := map[string]interface{}{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"reason":   cause.Error(),
		}
		if err := s.sender.SendEventToUser(userID, websocket.EventConversationReconnecting, payload); err != nil {
			log.Printf("[ConversationService] Не удалось отправить событие переподключения пользователю %s: %v", userID, err)
		}
	}
}

// attach регистрирует подключенную сессию или сообщает клиенту об ошибке подключения
func (s *ConversationService) attach(userID string, bridge *conversationBridge, session *realtime.Session, err error) error {
	if err != nil {
		s.mu.Lock()
		current := s.bridges[userID] == bridge
		if current {
			delete(s.bridges, userID)
		}
		registered, _ := s.registry.Get(userID)
		s.mu.Unlock()
		bridge.cancel()
		if current && registered != nil {
			_ = s.registry.Release(userID, registered)
		}
		log.Printf("[ConversationService] Не удалось подключить собеседника для пользователя %s: %v", userID, err)
		if current {
			s.sender.SendError(userID, "connection_failed", err.Error(), true)
		}
		return err
	}

	s.mu.Lock()
	if s.bridges[userID] != bridge {
		// Пока шло подключение, разговор остановили или запустили заново
		s.mu.Unlock()
		_ = session.Close()
		return apperrors.ErrSessionClosed
	}
	session.OnConnectionLost(func() { s.handleConnectionLost(userID, bridge, session) })
	s.registry.Acquire(userID, session)
	s.mu.Unlock()

	log.Printf("[ConversationService] Собеседник подключен для пользователя %s", userID)
	return nil
}

// handleConnectionLost реагирует на обрыв установленного соединения: без Reconnect
// разговор завершается, иначе подключается новая сессия с тем же контекстом и скоростью речи.
func (s *ConversationService) handleConnectionLost(userID string, bridge *conversationBridge, lost *realtime.Session) {
	s.mu.Lock()
	current, _ := s.registry.Get(userID)
	if s.bridges[userID] != bridge || current != lost {
		s.mu.Unlock()
		return
	}
	if !bridge.reconnect {
		delete(s.bridges, userID)
	}
	s.mu.Unlock()

	if !bridge.reconnect {
		bridge.cancel()
		_ = s.registry.Release(userID, lost)
		log.Printf("[ConversationService] Соединение пользователя %s оборвалось, разговор завершён", userID)
		s.sender.SendError(userID, "connection_lost", realtime.ErrConnectionLost.Error(), true)
		return
	}

	log.Printf("[ConversationService] Соединение пользователя %s оборвалось, переподключаемся", userID)
	factory := s.sessionFactory(userID, bridge, lost.UserContext(), lost.SpeakSlowly(), true)
	session, err := realtime.Reconnect(bridge.ctx, s.config.Backoff, factory, s.notifyReconnecting(userID), realtime.ErrConnectionLost)
	_ = s.attach(userID, bridge, session, err)
}

// Stop закрывает голосовую сессию пользователя. Отсутствие сессии не ошибка.
func (s *ConversationService) Stop(userID string) error {
	s.mu.Lock()
	bridge, ok := s.bridges[userID]
	delete(s.bridges, userID)
	session, hasSession := s.registry.Get(userID)
	s.mu.Unlock()

	if !ok && !hasSession {
		return nil
	}
	if bridge != nil {
		bridge.cancel()
	}
	if hasSession {
		return s.registry.Release(userID, session)
	}
	return nil
}

// SendText отправляет текстовую реплику собеседнику
func (s *ConversationService) SendText(userID, text string) error {
	session, err := s.session(userID)
	if err != nil {
		return err
	}
	return session.SendText(text)
}

// SetSpeakingSpeed включает или выключает медленную речь собеседника
func (s *ConversationService) SetSpeakingSpeed(userID string, slow bool) error {
	session, err := s.session(userID)
	if err != nil {
		return err
	}
	return session.SetSpeakingSpeed(slow)
}

// SetUserInfo обновляет имя и уровень пользователя, известные слова сохраняются
func (s *ConversationService) SetUserInfo(userID, nickname, level string) error {
	session, err := s.session(userID)
	if err != nil {
		return err
	}
	user := session.UserContext()
	user.Nickname = nickname
	user.Level = level
	return session.SetUserInfo(user)
}

// PushAudio передаёт кадр микрофона в активную сессию. Без сессии кадр отбрасывается.
func (s *ConversationService) PushAudio(userID string, frame []byte) bool {
	bridge := s.bridge(userID)
	if bridge == nil {
		return false
	}
	return bridge.devices.push(frame)
}

// AudioEnded подтверждает, что клиент доиграл очередной фрагмент
func (s *ConversationService) AudioEnded(userID string) {
	if bridge := s.bridge(userID); bridge != nil {
		bridge.player.ack()
	}
}

// State возвращает состояние голосовой сессии пользователя
func (s *ConversationService) State(userID string) realtime.ConnectionState {
	session, ok := s.registry.Get(userID)
	if !ok {
		return realtime.StateIdle
	}
	return session.State()
}

// ActiveSessions возвращает число зарегистрированных голосовых сессий
func (s *ConversationService) ActiveSessions() int {
	return s.registry.Len()
}

// HandleDisconnect закрывает сессию, когда пользователь отключился от WebSocket
func (s *ConversationService) HandleDisconnect(userID string) {
	if err := s.Stop(userID); err != nil {
		log.Printf("[ConversationService] Ошибки при закрытии сессии отключившегося пользователя %s: %v", userID, err)
	}
}

// Shutdown закрывает все голосовые сессии
func (s *ConversationService) Shutdown() error {
	s.mu.Lock()
	bridges := s.bridges
	s.bridges = make(map[string]*conversationBridge)
	s.mu.Unlock()

	for _, bridge := range bridges {
		bridge.cancel()
	}
	err := s.registry.CloseAll()
	log.Printf("[ConversationService] Все голосовые сессии закрыты")
	return err
}

func (s *ConversationService) bridge(userID string) *conversationBridge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridges[userID]
}

func (s *ConversationService) session(userID string) (*realtime.Session, error) {
	session, ok := s.registry.Get(userID)
	if !ok {
		return nil, fmt.Errorf("%w: no active conversation", apperrors.ErrSessionClosed)
	}
	return session, nil
}

// conversationBridge ресурсы одного разговора, общие для всех попыток подключения
type conversationBridge struct {
	ctx       context.Context
	cancel    context.CancelFunc
	reconnect bool
	devices   *bridgeDevices
	player    *wsPlayer
}

func newConversationBridge(ctx context.Context, userID string, sender ConversationSender, cfg ConversationConfig, cancel context.CancelFunc, reconnect bool) *conversationBridge {
	return &conversationBridge{
		ctx:       ctx,
		cancel:    cancel,
		reconnect: reconnect,
		devices: &bridgeDevices{bufferSize: cfg.MicBufferFrames},
		player: &wsPlayer{
			userID:         userID,
			sender:         sender,
			bytesPerSecond: cfg.PlaybackBytesPerSecond,
			padding:        cfg.PlaybackPadding,
			acks:           make(chan struct{}, 1),
		},
	}
}

// bridgeDevices выдаёт каждой попытке подключения новый поток микрофона
type bridgeDevices struct {
	bufferSize int

	mu      sync.Mutex
	current *wsStream
}

func (d *bridgeDevices) GetUserMedia(ctx context.Context, _ realtime.MediaConstraints) (realtime.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stream := &wsStream{frames: make(chan []byte, d.bufferSize)}
	d.mu.Lock()
	d.current = stream
	d.mu.Unlock()
	return stream, nil
}

func (d *bridgeDevices) push(frame []byte) bool {
	d.mu.Lock()
	stream := d.current
	d.mu.Unlock()
	if stream == nil {
		return false
	}
	return stream.push(append([]byte(nil), frame...))
}

// wsStream поток микрофона из бинарных кадров клиента
type wsStream struct {
	mu     sync.Mutex
	closed bool
	frames chan []byte
}

func (s *wsStream) Frames() <-chan []byte {
	return s.frames
}

// push не блокирует читающий цикл WebSocket: при переполнении кадр отбрасывается
func (s *wsStream) push(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

func (s *wsStream) StopTracks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
}

// wsPlayer проигрывает фрагмент на клиенте: отправляет его и ждёт подтверждения
// conversation:audio_ended, но не дольше оценки длительности фрагмента с запасом
type wsPlayer struct {
	userID         string
	sender         ConversationSender
	bytesPerSecond int
	padding        time.Duration
	acks           chan struct{}
}

func (p *wsPlayer) Play(ctx context.Context, chunk []byte) error {
	// Подтверждение, опоздавшее к прошлому фрагменту, не относится к этому
	select {
	case <-p.acks:
	default:
	}

	if err := p.sender.SendBinaryToUser(p.userID, chunk); err != nil {
		return err
	}

	timer := time.NewTimer(p.duration(len(chunk)) + p.padding)
	defer timer.Stop()
	select {
	case <-p.acks:
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (p *wsPlayer) duration(size int) time.Duration {
	return time.Duration(size) * time.Second / time.Duration(p.bytesPerSecond)
}

func (p *wsPlayer) ack() {
	select {
	case p.acks <- struct{}{}:
	default:
	}
}

// conversationListener пересылает события сессии клиенту
type conversationListener struct {
	userID string
	sender ConversationSender
}

func (l *conversationListener) OnStateChange(state realtime.ConnectionState) {
	l.send(websocket.EventConversationState, map[string]interface{}{"state": state})
}

func (l *conversationListener) OnTranscriptDelta(delta string) {
	l.send(websocket.EventConversationTranscript, map[string]interface{}{"delta": delta})
}

func (l *conversationListener) OnAudioDone() {
	l.send(websocket.EventConversationAudioDone, map[string]interface{}{})
}

func (l *conversationListener) OnError(err error) {
	l.sender.SendError(l.userID, "conversation_error", err.Error(), false)
}

func (l *conversationListener) send(eventType string, data interface{}) {
	if err := l.sender.SendEventToUser(l.userID, eventType, data); err != nil {
		log.Printf("[ConversationService] Не удалось отправить %s пользователю %s: %v", eventType, l.userID, err)
	}
}
