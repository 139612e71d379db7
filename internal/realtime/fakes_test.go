package realtime

import (
	"context"
	"errors"
	"sync"
)

// eventLog общий журнал вызовов для проверки порядка освобождения ресурсов
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) count(e string) int {
	n := 0
	for _, got := range l.all() {
		if got == e {
			n++
		}
	}
	return n
}

type fakeStream struct {
	log    *eventLog
	frames chan []byte
	once   sync.Once
}

func newFakeStream(log *eventLog) *fakeStream {
	return &fakeStream{log: log, frames: make(chan []byte, 16)}
}

func (s *fakeStream) Frames() <-chan []byte { return s.frames }

func (s *fakeStream) StopTracks() {
	s.once.Do(func() {
		s.log.add("stream.stop")
		close(s.frames)
	})
}

type fakeDevices struct {
	stream *fakeStream
	err    error
}

func (d *fakeDevices) GetUserMedia(context.Context, MediaConstraints) (MediaStream, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

type fakeTrack struct {
	mu     sync.Mutex
	frames [][]byte
}

func (t *fakeTrack) WriteFrame(frame AudioFrame) error {
	t.mu.Lock()
	t.frames = append(t.frames, frame.Data)
	t.mu.Unlock()
	return nil
}

func (t *fakeTrack) written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.frames...)
}

type fakeSender struct {
	log *eventLog
}

func (s fakeSender) StopTrack() error {
	s.log.add("sender.stop")
	return nil
}

type fakeDataChannel struct {
	log *eventLog

	mu        sync.Mutex
	state     DataChannelState
	sent      [][]byte
	onOpen    func()
	onMessage func([]byte)
	onError   func(error)
	onClose   func()
}

func (d *fakeDataChannel) OnOpen(fn func()) {
	d.mu.Lock()
	d.onOpen = fn
	d.mu.Unlock()
}

func (d *fakeDataChannel) OnMessage(fn func([]byte)) {
	d.mu.Lock()
	d.onMessage = fn
	d.mu.Unlock()
}

func (d *fakeDataChannel) OnError(fn func(error)) {
	d.mu.Lock()
	d.onError = fn
	d.mu.Unlock()
}

func (d *fakeDataChannel) OnClose(fn func()) {
	d.mu.Lock()
	d.onClose = fn
	d.mu.Unlock()
}

func (d *fakeDataChannel) Send(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DataChannelOpen {
		return errors.New("data channel is not open")
	}
	d.sent = append(d.sent, append([]byte(nil), data...))
	return nil
}

func (d *fakeDataChannel) Close() error {
	d.mu.Lock()
	d.state = DataChannelClosed
	d.mu.Unlock()
	d.log.add("dc.close")
	return nil
}

func (d *fakeDataChannel) ReadyState() DataChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == "" {
		return DataChannelConnecting
	}
	return d.state
}

// open имитирует открытие канала удалённой стороной
func (d *fakeDataChannel) open() {
	d.mu.Lock()
	d.state = DataChannelOpen
	fn := d.onOpen
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *fakeDataChannel) receive(data string) {
	d.mu.Lock()
	fn := d.onMessage
	d.mu.Unlock()
	fn([]byte(data))
}

func (d *fakeDataChannel) fail(err error) {
	d.mu.Lock()
	fn := d.onError
	d.mu.Unlock()
	fn(err)
}

func (d *fakeDataChannel) sentMessages() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.sent...)
}

type fakePeer struct {
	log   *eventLog
	track *fakeTrack
	dc    *fakeDataChannel

	offerErr error

	mu      sync.Mutex
	answer  string
	stateFn func(PeerState)
}

func (p *fakePeer) AddAudioTrack() (AudioTrack, error) { return p.track, nil }

func (p *fakePeer) CreateDataChannel(string) (DataChannel, error) { return p.dc, nil }

func (p *fakePeer) CreateOffer(context.Context) (string, error) {
	if p.offerErr != nil {
		return "", p.offerErr
	}
	return "offer-sdp", nil
}

func (p *fakePeer) SetRemoteAnswer(sdp string) error {
	p.mu.Lock()
	p.answer = sdp
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) OnConnectionStateChange(fn func(PeerState)) {
	p.mu.Lock()
	p.stateFn = fn
	p.mu.Unlock()
}

func (p *fakePeer) Senders() []Sender { return []Sender{fakeSender{log: p.log}} }

func (p *fakePeer) Close() error {
	p.log.add("pc.close")
	return nil
}

func (p *fakePeer) setState(state PeerState) {
	p.mu.Lock()
	fn := p.stateFn
	p.mu.Unlock()
	fn(state)
}

func (p *fakePeer) remoteAnswer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.answer
}

type fakePeerFactory struct {
	peer *fakePeer
}

func (f *fakePeerFactory) NewPeerConnection() (PeerConnection, error) { return f.peer, nil }

type negotiatorFunc func(ctx context.Context, offer string) (string, error)

func (f negotiatorFunc) Negotiate(ctx context.Context, offer string) (string, error) {
	return f(ctx, offer)
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
}

func (p *fakePlayer) Play(_ context.Context, chunk []byte) error {
	p.mu.Lock()
	p.played = append(p.played, string(chunk))
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) chunks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

type recordingListener struct {
	mu          sync.Mutex
	states      []ConnectionState
	transcripts []string
	errs        []error
	audioDone   int
}

func (l *recordingListener) OnStateChange(state ConnectionState) {
	l.mu.Lock()
	l.states = append(l.states, state)
	l.mu.Unlock()
}

func (l *recordingListener) OnTranscriptDelta(delta string) {
	l.mu.Lock()
	l.transcripts = append(l.transcripts, delta)
	l.mu.Unlock()
}

func (l *recordingListener) OnAudioDone() {
	l.mu.Lock()
	l.audioDone++
	l.mu.Unlock()
}

func (l *recordingListener) OnError(err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

func (l *recordingListener) snapshot() (states []ConnectionState, transcripts []string, errs []error, audioDone int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ConnectionState(nil), l.states...),
		append([]string(nil), l.transcripts...),
		append([]error(nil), l.errs...),
		l.audioDone
}

// testRig набор фейков для одной сессии
type testRig struct {
	log      *eventLog
	stream   *fakeStream
	peer     *fakePeer
	dc       *fakeDataChannel
	player   *fakePlayer
	listener *recordingListener
	deps     Dependencies
}

func newTestRig(negotiate negotiatorFunc) *testRig {
	log := &eventLog{}
	dc := &fakeDataChannel{log: log}
	peer := &fakePeer{log: log, track: &fakeTrack{}, dc: dc}
	stream := newFakeStream(log)
	player := &fakePlayer{}
	listener := &recordingListener{}
	if negotiate == nil {
		negotiate = func(context.Context, string) (string, error) { return "answer-sdp", nil }
	}
	return &testRig{
		log:      log,
		stream:   stream,
		peer:     peer,
		dc:       dc,
		player:   player,
		listener: listener,
		deps: Dependencies{
			Devices:    &fakeDevices{stream: stream},
			Peers:      &fakePeerFactory{peer: peer},
			Negotiator: negotiate,
			Encoder:    NewOpusFramer(0),
			Player:     player,
			Listener:   listener,
		},
	}
}
