package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// PionFactory создает peer connection на базе pion/webrtc
type PionFactory struct {
	api    *webrtc.API
	config webrtc.Configuration
}

// NewPionFactory регистрирует стандартные кодеки и возвращает фабрику
func NewPionFactory(iceURLs []string) (*PionFactory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	cfg := webrtc.Configuration{}
	if len(iceURLs) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceURLs}}
	}
	return &PionFactory{
		api:    webrtc.NewAPI(webrtc.WithMediaEngine(m)),
		config: cfg,
	}, nil
}

// NewPeerConnection реализует PeerFactory
func (f *PionFactory) NewPeerConnection() (PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, err
	}
	// Входящий звук собеседника приходит через data channel, удалённые треки только вычитываем
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		buf := make([]byte, 1500)
		for {
			if _, _, err := track.Read(buf); err != nil {
				return
			}
		}
	})
	return &pionPeer{pc: pc}, nil
}

type pionPeer struct {
	pc *webrtc.PeerConnection
}

func (p *pionPeer) AddAudioTrack() (AudioTrack, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "vocab-conversation",
	)
	if err != nil {
		return nil, err
	}
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	// RTCP нужно вычитывать, иначе interceptors не работают
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return &pionTrack{track: track}, nil
}

func (p *pionPeer) CreateDataChannel(label string) (DataChannel, error) {
	dc, err := p.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, err
	}
	return &pionDataChannel{dc: dc}, nil
}

func (p *pionPeer) CreateOffer(ctx context.Context) (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	gathered := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	local := p.pc.LocalDescription()
	if local == nil {
		return "", errors.New("local description is not set")
	}
	return local.SDP, nil
}

func (p *pionPeer) SetRemoteAnswer(sdp string) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
}

func (p *pionPeer) OnConnectionStateChange(fn func(PeerState)) {
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		fn(peerStateFromPion(state))
	})
}

func (p *pionPeer) Senders() []Sender {
	senders := p.pc.GetSenders()
	out := make([]Sender, 0, len(senders))
	for _, s := range senders {
		out = append(out, pionSender{sender: s})
	}
	return out
}

func (p *pionPeer) Close() error {
	return p.pc.Close()
}

type pionSender struct {
	sender *webrtc.RTPSender
}

func (s pionSender) StopTrack() error {
	return s.sender.Stop()
}

type pionTrack struct {
	track *webrtc.TrackLocalStaticSample
}

func (t *pionTrack) WriteFrame(frame AudioFrame) error {
	err := t.track.WriteSample(media.Sample{Data: frame.Data, Duration: frame.Duration})
	if errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

type pionDataChannel struct {
	dc *webrtc.DataChannel
}

func (d *pionDataChannel) OnOpen(fn func()) { d.dc.OnOpen(fn) }

func (d *pionDataChannel) OnMessage(fn func(data []byte)) {
	d.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if !msg.IsString {
			log.Printf("[RealtimeSession] Бинарное сообщение data channel пропущено")
			return
		}
		fn(msg.Data)
	})
}

func (d *pionDataChannel) OnError(fn func(err error)) { d.dc.OnError(fn) }

func (d *pionDataChannel) OnClose(fn func()) { d.dc.OnClose(fn) }

func (d *pionDataChannel) Send(data []byte) error {
	return d.dc.SendText(string(data))
}

func (d *pionDataChannel) Close() error {
	return d.dc.Close()
}

func (d *pionDataChannel) ReadyState() DataChannelState {
	return dataChannelStateFromPion(d.dc.ReadyState())
}

func peerStateFromPion(state webrtc.PeerConnectionState) PeerState {
	switch state {
	case webrtc.PeerConnectionStateNew:
		return PeerStateNew
	case webrtc.PeerConnectionStateConnecting:
		return PeerStateConnecting
	case webrtc.PeerConnectionStateConnected:
		return PeerStateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return PeerStateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return PeerStateFailed
	case webrtc.PeerConnectionStateClosed:
		return PeerStateClosed
	default:
		return PeerStateNew
	}
}

func dataChannelStateFromPion(state webrtc.DataChannelState) DataChannelState {
	switch state {
	case webrtc.DataChannelStateOpen:
		return DataChannelOpen
	case webrtc.DataChannelStateClosing:
		return DataChannelClosing
	case webrtc.DataChannelStateClosed:
		return DataChannelClosed
	default:
		return DataChannelConnecting
	}
}
