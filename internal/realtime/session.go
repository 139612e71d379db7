package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"

	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

// outboxSize размер буфера исходящих управляющих сообщений
const outboxSize = 32

// ErrConnectionLost peer connection оборвался после установки соединения
var ErrConnectionLost = errors.New("peer connection lost")

// Dependencies внешние возможности, которыми пользуется сессия
type Dependencies struct {
	Devices    MediaDevices
	Peers      PeerFactory
	Negotiator Negotiator
	Encoder    Encoder
	Player     Player
	Listener   Listener
}

// Session голосовая сессия. Peer connection и data channel принадлежат сессии
// и освобождаются вместе при Close.
type Session struct {
	cfg  Config
	deps Dependencies

	state atomic.String
	lost  atomic.Bool

	// updateMu упорядочивает сборку и постановку session.update в очередь
	updateMu sync.Mutex

	mu              sync.Mutex
	closed          bool
	user            UserContext
	speakSlowly     bool
	stream          MediaStream
	pc              PeerConnection
	dc              DataChannel
	recorder        *Recorder
	playback        *PlaybackQueue
	negotiateCancel context.CancelFunc
	onLost          func()

	outbox chan []byte
	done   chan struct{}
	writer sync.WaitGroup
}

// NewSession создает сессию в состоянии idle
func NewSession(cfg Config, deps Dependencies, user UserContext, speakSlowly bool) *Session {
	if deps.Listener == nil {
		deps.Listener = nopListener{}
	}
	if deps.Encoder == nil {
		deps.Encoder = NewOpusFramer(0)
	}
	s := &Session{
		cfg:         cfg,
		deps:        deps,
		user:        user,
		speakSlowly: speakSlowly,
		outbox:      make(chan []byte, outboxSize),
		done:        make(chan struct{}),
	}
	s.state.Store(string(StateIdle))
	return s
}

// State возвращает текущее состояние
func (s *Session) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

// DataChannelState возвращает состояние data channel или closed, если его нет
func (s *Session) DataChannelState() DataChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		return DataChannelClosed
	}
	return s.dc.ReadyState()
}

// UserContext возвращает текущий контекст пользователя
func (s *Session) UserContext() UserContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// SpeakSlowly возвращает текущий флаг медленной речи
func (s *Session) SpeakSlowly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speakSlowly
}

// OnConnectionLost задаёт колбэк, который вызывается один раз после того, как сессия
// закрылась из-за обрыва peer connection. При явном Close колбэк не вызывается.
func (s *Session) OnConnectionLost(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLost = fn
}

// PendingPlayback возвращает количество фрагментов в очереди воспроизведения
func (s *Session) PendingPlayback() int {
	s.mu.Lock()
	playback := s.playback
	s.mu.Unlock()
	if playback == nil {
		return 0
	}
	return playback.Len()
}

// Connect захватывает микрофон, согласует peer connection и запускает запись.
// При любой ошибке сессия закрывается, возвращается ошибка, оборачивающая ErrConnectionFailed.
func (s *Session) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(string(StateIdle), string(StateNegotiating)) {
		if s.State() == StateClosed {
			return apperrors.ErrSessionClosed
		}
		return fmt.Errorf("%w: session already started", apperrors.ErrConflict)
	}
	s.deps.Listener.OnStateChange(StateNegotiating)

	s.writer.Add(1)
	go s.writeLoop()

	if err := s.connect(ctx); err != nil {
		log.Printf("[RealtimeSession] Ошибка подключения: %v", err)
		if closeErr := s.Close(); closeErr != nil {
			log.Printf("[RealtimeSession] Ошибки при освобождении ресурсов: %v", closeErr)
		}
		return fmt.Errorf("%w: %w", apperrors.ErrConnectionFailed, err)
	}
	return nil
}

func (s *Session) connect(ctx context.Context) error {
	if s.deps.Devices == nil || s.deps.Peers == nil || s.deps.Negotiator == nil || s.deps.Player == nil {
		return errors.New("realtime dependencies are not configured")
	}

	stream, err := s.deps.Devices.GetUserMedia(ctx, s.cfg.Constraints)
	if err != nil {
		return fmt.Errorf("get user media: %w", err)
	}
	if !s.hold(func() { s.stream = stream }) {
		stream.StopTracks()
		return apperrors.ErrSessionClosed
	}

	pc, err := s.deps.Peers.NewPeerConnection()
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}
	if !s.hold(func() { s.pc = pc }) {
		_ = pc.Close()
		return apperrors.ErrSessionClosed
	}
	pc.OnConnectionStateChange(s.handlePeerState)

	track, err := pc.AddAudioTrack()
	if err != nil {
		return fmt.Errorf("add audio track: %w", err)
	}

	dc, err := pc.CreateDataChannel(DataChannelLabel)
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	dc.OnOpen(s.handleDataChannelOpen)
	dc.OnMessage(s.handleMessage)
	dc.OnError(func(err error) {
		// Ошибки data channel не закрывают сессию: жизненным циклом управляет peer connection
		log.Printf("[RealtimeSession] Ошибка data channel: %v", err)
		s.deps.Listener.OnError(err)
	})
	dc.OnClose(func() {
		log.Printf("[RealtimeSession] Data channel закрыт")
	})
	playback := NewPlaybackQueue(s.deps.Player)
	if !s.hold(func() { s.dc = dc; s.playback = playback }) {
		_ = dc.Close()
		playback.Stop()
		return apperrors.ErrSessionClosed
	}

	negCtx, cancel := context.WithTimeout(ctx, s.cfg.NegotiationTimeout)
	defer cancel()
	if !s.hold(func() { s.negotiateCancel = cancel }) {
		return apperrors.ErrSessionClosed
	}

	offer, err := pc.CreateOffer(negCtx)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	answer, err := s.deps.Negotiator.Negotiate(negCtx, offer)
	if err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}
	if s.isClosed() {
		return apperrors.ErrSessionClosed
	}
	if err := pc.SetRemoteAnswer(answer); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}

	recorder := NewRecorder(stream, s.deps.Encoder, track)
	if !s.hold(func() { s.recorder = recorder; s.negotiateCancel = nil }) {
		return apperrors.ErrSessionClosed
	}
	recorder.Start()

	log.Printf("[RealtimeSession] Согласование завершено")
	return nil
}

// SetSpeakingSpeed меняет флаг медленной речи и повторно отправляет session.update
func (s *Session) SetSpeakingSpeed(slow bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.ErrSessionClosed
	}
	s.speakSlowly = slow
	s.mu.Unlock()
	s.sendSessionUpdate()
	return nil
}

// SetUserInfo меняет контекст пользователя и повторно отправляет session.update
func (s *Session) SetUserInfo(user UserContext) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.ErrSessionClosed
	}
	s.user = user
	s.mu.Unlock()
	s.sendSessionUpdate()
	return nil
}

// SendText отправляет реплику пользователя и запрашивает ответ
func (s *Session) SendText(text string) error {
	if s.isClosed() {
		return apperrors.ErrSessionClosed
	}
	if s.DataChannelState() != DataChannelOpen {
		return fmt.Errorf("%w: data channel is not open", apperrors.ErrConflict)
	}
	item, response, err := BuildUserText(text)
	if err != nil {
		return err
	}
	if !s.enqueue(item) || !s.enqueue(response) {
		return apperrors.ErrSessionClosed
	}
	return nil
}

// Close освобождает ресурсы в порядке зависимостей: рекордер, локальные треки,
// data channel, треки отправителей, peer connection. Повторный вызов ничего не делает.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.negotiateCancel
	recorder, stream, dc, pc, playback := s.recorder, s.stream, s.dc, s.pc, s.playback
	s.negotiateCancel = nil
	s.recorder, s.stream, s.dc, s.pc, s.playback = nil, nil, nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var result *multierror.Error
	if recorder != nil {
		recorder.Stop()
	}
	if stream != nil {
		stream.StopTracks()
	}
	if dc != nil {
		if err := dc.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close data channel: %w", err))
		}
	}
	if pc != nil {
		for _, sender := range pc.Senders() {
			if err := sender.StopTrack(); err != nil {
				result = multierror.Append(result, fmt.Errorf("stop sender track: %w", err))
			}
		}
		if err := pc.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close peer connection: %w", err))
		}
	}

	close(s.done)
	s.writer.Wait()
	if playback != nil {
		playback.Stop()
	}

	if prev := s.state.Swap(string(StateClosed)); prev != string(StateClosed) {
		s.deps.Listener.OnStateChange(StateClosed)
	}
	log.Printf("[RealtimeSession] Сессия закрыта")
	return result.ErrorOrNil()
}

func (s *Session) handlePeerState(state PeerState) {
	switch state {
	case PeerStateConnected:
		if s.state.CompareAndSwap(string(StateNegotiating), string(StateConnected)) {
			log.Printf("[RealtimeSession] Соединение установлено")
			s.deps.Listener.OnStateChange(StateConnected)
		}
	case PeerStateFailed, PeerStateClosed:
		// Закрытие peer connection из нашего же Close обрывом не считается
		if s.isClosed() || !s.lost.CompareAndSwap(false, true) {
			return
		}
		log.Printf("[RealtimeSession] Peer connection перешёл в состояние %s, закрываем сессию", state)
		s.mu.Lock()
		onLost := s.onLost
		s.mu.Unlock()
		// Close вызывается из колбэка транспорта, поэтому в отдельной горутине
		go func() {
			if err := s.Close(); err != nil {
				log.Printf("[RealtimeSession] Ошибки при закрытии: %v", err)
			}
			if onLost != nil {
				onLost()
			}
		}()
	case PeerStateDisconnected:
		log.Printf("[RealtimeSession] Peer connection временно отключен")
	}
}

func (s *Session) handleDataChannelOpen() {
	log.Printf("[RealtimeSession] Data channel открыт, отправляем session.update")
	s.sendSessionUpdate()
}

func (s *Session) handleMessage(data []byte) {
	var event InboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("[RealtimeSession] Некорректное сообщение отброшено: %v", err)
		return
	}

	switch event.Type {
	case EventResponseAudioDelta:
		chunk, err := base64.StdEncoding.DecodeString(event.Delta)
		if err != nil {
			log.Printf("[RealtimeSession] Некорректный аудиофрагмент отброшен: %v", err)
			return
		}
		if playback := s.currentPlayback(); playback != nil {
			playback.Enqueue(chunk)
		}
	case EventResponseAudioDone:
		if playback := s.currentPlayback(); playback != nil {
			playback.EnqueueMarker(s.deps.Listener.OnAudioDone)
		}
	case EventResponseTranscriptDelta:
		s.deps.Listener.OnTranscriptDelta(event.Delta)
	case EventError:
		msg := event.ErrorMessage()
		log.Printf("[RealtimeSession] Ошибка от собеседника: %s", msg)
		s.deps.Listener.OnError(errors.New(msg))
	}
}

func (s *Session) currentPlayback() *PlaybackQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

// sendSessionUpdate ставит в очередь session.update с актуальной конфигурацией.
// До открытия data channel ничего не отправляет: конфигурация уйдёт при открытии.
func (s *Session) sendSessionUpdate() {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.Lock()
	if s.closed || s.dc == nil || s.dc.ReadyState() != DataChannelOpen {
		s.mu.Unlock()
		return
	}
	update := BuildSessionUpdate(s.cfg, s.user, s.speakSlowly)
	s.mu.Unlock()

	payload, err := json.Marshal(update)
	if err != nil {
		log.Printf("[RealtimeSession] Ошибка сериализации session.update: %v", err)
		return
	}
	s.enqueue(payload)
}

func (s *Session) enqueue(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbox <- payload:
		return true
	case <-s.done:
		return false
	}
}

// writeLoop единственный писатель в data channel, сохраняет порядок сообщений
func (s *Session) writeLoop() {
	defer s.writer.Done()
	for {
		select {
		case payload := <-s.outbox:
			s.mu.Lock()
			dc := s.dc
			s.mu.Unlock()
			if dc == nil {
				continue
			}
			if err := dc.Send(payload); err != nil {
				log.Printf("[RealtimeSession] Ошибка отправки в data channel: %v", err)
			}
		case <-s.done:
			return
		}
	}
}

// hold выполняет fn под блокировкой, если сессия ещё не закрыта
func (s *Session) hold(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
