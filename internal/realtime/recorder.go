package realtime

import (
	"errors"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Recorder передаёт фрагменты микрофона через кодировщик в трек в порядке захвата
type Recorder struct {
	stream  MediaStream
	encoder Encoder
	track   AudioTrack

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}

	framesSent atomic.Int64
}

// NewRecorder создает рекордер
func NewRecorder(stream MediaStream, encoder Encoder, track AudioTrack) *Recorder {
	return &Recorder{
		stream:  stream,
		encoder: encoder,
		track:   track,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start запускает передачу. Повторный вызов и вызов после Stop ничего не делают.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	go r.run()
}

// Stop останавливает передачу и ждёт завершения воркера. Идемпотентен.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	close(r.stop)
	r.mu.Unlock()

	if started {
		<-r.done
	}
}

// FramesSent возвращает количество отправленных кадров
func (r *Recorder) FramesSent() int64 {
	return r.framesSent.Load()
}

func (r *Recorder) run() {
	defer close(r.done)
	frames := r.stream.Frames()
	for {
		select {
		case <-r.stop:
			return
		case raw, ok := <-frames:
			if !ok {
				return
			}
			frame, err := r.encoder.Encode(raw)
			if err != nil {
				log.Printf("[Recorder] Фрагмент пропущен: %v", err)
				continue
			}
			if err := r.track.WriteFrame(frame); err != nil {
				log.Printf("[Recorder] Ошибка записи в трек: %v", err)
				continue
			}
			r.framesSent.Inc()
		}
	}
}

// OpusFramer считает входные фрагменты уже закодированными пакетами Opus фиксированной длительности
type OpusFramer struct {
	FrameDuration time.Duration
}

// NewOpusFramer создает кодировщик с длительностью кадра 20 мс, если не указано иное
func NewOpusFramer(frameDuration time.Duration) *OpusFramer {
	if frameDuration <= 0 {
		frameDuration = 20 * time.Millisecond
	}
	return &OpusFramer{FrameDuration: frameDuration}
}

// Encode копирует пакет и проставляет длительность
func (e *OpusFramer) Encode(raw []byte) (AudioFrame, error) {
	if len(raw) == 0 {
		return AudioFrame{}, errors.New("empty audio packet")
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return AudioFrame{Data: data, Duration: e.FrameDuration}, nil
}
