package realtime

import (
	"context"
	"log"
	"sync"
)

type playbackItem struct {
	chunk  []byte
	marker func()
}

// PlaybackQueue воспроизводит фрагменты строго по одному в порядке поступления.
// Очередь не ограничена, обрабатывается одним воркером.
type PlaybackQueue struct {
	player Player

	mu      sync.Mutex
	items   []playbackItem
	stopped bool

	signal chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlaybackQueue создает очередь и запускает воркер
func NewPlaybackQueue(player Player) *PlaybackQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &PlaybackQueue{
		player: player,
		signal: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue добавляет фрагмент в конец очереди. Возвращает false, если очередь остановлена.
func (q *PlaybackQueue) Enqueue(chunk []byte) bool {
	return q.push(playbackItem{chunk: chunk})
}

// EnqueueMarker добавляет вызов fn после всех уже поставленных фрагментов
func (q *PlaybackQueue) EnqueueMarker(fn func()) bool {
	return q.push(playbackItem{marker: fn})
}

// Len возвращает количество ожидающих элементов
func (q *PlaybackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop прерывает текущее воспроизведение, очищает очередь и ждёт остановки воркера. Идемпотентен.
func (q *PlaybackQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.stopped = true
	q.items = nil
	q.mu.Unlock()

	q.cancel()
	<-q.done
}

func (q *PlaybackQueue) push(item playbackItem) bool {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

func (q *PlaybackQueue) pop() (playbackItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.stopped {
		return playbackItem{}, false
	}
	item := q.items[0]
	q.items[0] = playbackItem{}
	q.items = q.items[1:]
	return item, true
}

func (q *PlaybackQueue) run() {
	defer close(q.done)
	for {
		item, ok := q.pop()
		if !ok {
			select {
			case <-q.signal:
				continue
			case <-q.ctx.Done():
				return
			}
		}

		if item.marker != nil {
			item.marker()
			continue
		}
		if err := q.player.Play(q.ctx, item.chunk); err != nil {
			if q.ctx.Err() != nil {
				return
			}
			log.Printf("[PlaybackQueue] Ошибка воспроизведения фрагмента: %v", err)
		}
	}
}
