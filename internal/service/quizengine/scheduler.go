package quizengine

import (
	"context"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// CancelFunc отменяет запланированную задачу. Повторный вызов безопасен.
type CancelFunc func()

// TaskScheduler запускает отложенные задачи и позволяет отменить их до срабатывания
type TaskScheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool

	seq   atomic.Uint64
	tasks sync.Map // map[uint64]context.CancelFunc
}

// NewTaskScheduler создает планировщик, задачи которого отменяются вместе с parent
func NewTaskScheduler(parent context.Context) *TaskScheduler {
	ctx, cancel := context.WithCancel(parent)
	return &TaskScheduler{ctx: ctx, cancel: cancel}
}

// Schedule выполнит fn через delay, если задачу не отменят раньше
func (s *TaskScheduler) Schedule(delay time.Duration, name string, fn func()) CancelFunc {
	s.mu.Lock()
	if s.stopped || s.ctx.Err() != nil {
		s.mu.Unlock()
		return func() {}
	}
	id := s.seq.Inc()
	taskCtx, taskCancel := context.WithCancel(s.ctx)
	s.tasks.Store(id, taskCancel)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.tasks.Delete(id)
		defer taskCancel()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			if taskCtx.Err() != nil {
				return
			}
			fn()
		case <-taskCtx.Done():
			log.Printf("[TaskScheduler] Задача %s #%d отменена", name, id)
		}
	}()

	return CancelFunc(taskCancel)
}

// Pending возвращает количество задач, которые ещё не сработали и не отменены
func (s *TaskScheduler) Pending() int {
	count := 0
	s.tasks.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Stop отменяет все задачи и ждёт завершения уже запущенных
func (s *TaskScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}
