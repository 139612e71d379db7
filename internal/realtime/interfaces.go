package realtime

import (
	"context"
	"time"
)

// PeerState состояние peer connection, как его сообщает транспорт
type PeerState string

const (
	PeerStateNew          PeerState = "new"
	PeerStateConnecting   PeerState = "connecting"
	PeerStateConnected    PeerState = "connected"
	PeerStateDisconnected PeerState = "disconnected"
	PeerStateFailed       PeerState = "failed"
	PeerStateClosed       PeerState = "closed"
)

// DataChannelState состояние data channel
type DataChannelState string

const (
	DataChannelConnecting DataChannelState = "connecting"
	DataChannelOpen       DataChannelState = "open"
	DataChannelClosing    DataChannelState = "closing"
	DataChannelClosed     DataChannelState = "closed"
)

// AudioFrame закодированный фрагмент звука, готовый к отправке
type AudioFrame struct {
	Data     []byte
	Duration time.Duration
}

// PeerFactory создает peer connection
type PeerFactory interface {
	NewPeerConnection() (PeerConnection, error)
}

// PeerConnection абстракция WebRTC peer connection
type PeerConnection interface {
	AddAudioTrack() (AudioTrack, error)
	CreateDataChannel(label string) (DataChannel, error)
	// CreateOffer создает локальный offer и возвращает SDP после сбора кандидатов
	CreateOffer(ctx context.Context) (string, error)
	SetRemoteAnswer(sdp string) error
	OnConnectionStateChange(fn func(PeerState))
	Senders() []Sender
	Close() error
}

// AudioTrack локальный звуковой трек
type AudioTrack interface {
	WriteFrame(frame AudioFrame) error
}

// Sender исходящий отправитель трека
type Sender interface {
	StopTrack() error
}

// DataChannel двунаправленный упорядоченный канал сообщений
type DataChannel interface {
	OnOpen(fn func())
	OnMessage(fn func(data []byte))
	OnError(fn func(err error))
	OnClose(fn func())
	Send(data []byte) error
	Close() error
	ReadyState() DataChannelState
}

// MediaDevices доступ к микрофону
type MediaDevices interface {
	GetUserMedia(ctx context.Context, constraints MediaConstraints) (MediaStream, error)
}

// MediaStream захваченный поток микрофона. Frames отдаёт сырые фрагменты в порядке захвата
// и закрывается после StopTracks.
type MediaStream interface {
	Frames() <-chan []byte
	StopTracks()
}

// Encoder превращает сырой фрагмент микрофона в кадр для трека
type Encoder interface {
	Encode(raw []byte) (AudioFrame, error)
}

// Player воспроизводит фрагмент звука. Play блокируется до окончания фрагмента.
type Player interface {
	Play(ctx context.Context, chunk []byte) error
}

// Negotiator отправляет SDP offer и возвращает SDP answer
type Negotiator interface {
	Negotiate(ctx context.Context, offer string) (string, error)
}

// Listener получает события сессии
type Listener interface {
	OnStateChange(state ConnectionState)
	OnTranscriptDelta(delta string)
	OnAudioDone()
	OnError(err error)
}

type nopListener struct{}

func (nopListener) OnStateChange(ConnectionState) {}
func (nopListener) OnTranscriptDelta(string) {}
func (nopListener) OnAudioDone() {}
func (nopListener) OnError(error) {}
