package quizengine

import (
	"log"
	"sync"
	"time"
)

// Listener получает новое состояние после каждого применённого действия.
// Вызывается вне блокировки сессии.
type Listener func(state State, action Action)

// Session сериализует действия над викториной и управляет автопереходом.
// Правильный ответ планирует NextQuestion через autoAdvanceDelay, неверный - нет.
// Любая ручная навигация, завершение, сброс или закрытие отменяют запланированный переход.
type Session struct {
	scheduler        *TaskScheduler
	autoAdvanceDelay time.Duration

	mu             sync.Mutex
	state          State
	closed         bool
	generation     uint64
	pendingAdvance CancelFunc
	listener       Listener
}

// NewSession создает сессию. delay <= 0 отключает автопереход.
func NewSession(scheduler *TaskScheduler, autoAdvanceDelay time.Duration) *Session {
	return &Session{
		scheduler:        scheduler,
		autoAdvanceDelay: autoAdvanceDelay,
		state:            InitialState(),
	}
}

// OnChange устанавливает слушателя изменений
func (s *Session) OnChange(listener Listener) {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
}

// State возвращает копию текущего состояния
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// HasPendingAdvance сообщает, запланирован ли автопереход
func (s *Session) HasPendingAdvance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingAdvance != nil
}

// Dispatch применяет действие. Возвращает копию нового состояния и признак изменения.
func (s *Session) Dispatch(action Action) (State, bool) {
	s.mu.Lock()
	if s.closed {
		st := s.state.Clone()
		s.mu.Unlock()
		return st, false
	}

	switch action.(type) {
	case NextQuestion, PreviousQuestion, EndQuiz, ResetQuiz, StartQuiz:
		s.cancelPendingLocked()
	}

	next, changed := Reduce(s.state, action)
	if !changed {
		st := s.state.Clone()
		s.mu.Unlock()
		return st, false
	}
	s.state = next
	s.generation++

	if answer, ok := action.(AnswerQuestion); ok {
		s.maybeScheduleAdvanceLocked(answer)
	}

	snapshot := s.state.Clone()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(snapshot, action)
	}
	return snapshot, true
}

// Close отменяет запланированный переход. Дальнейшие действия игнорируются.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelPendingLocked()
}

func (s *Session) maybeScheduleAdvanceLocked(answer AnswerQuestion) {
	if s.scheduler == nil || s.autoAdvanceDelay <= 0 {
		return
	}
	current := s.state.CurrentQuestion()
	if current == nil || current.IsCorrect == nil || !*current.IsCorrect {
		return
	}
	if s.state.CurrentIndex >= len(s.state.Quiz.Questions)-1 {
		// Последний вопрос: переходить некуда, викторину завершает пользователь
		return
	}

	s.cancelPendingLocked()
	generation := s.generation
	questionID := current.ID
	s.pendingAdvance = s.scheduler.Schedule(s.autoAdvanceDelay, "auto-advance", func() {
		s.autoAdvance(generation, questionID)
	})
}

func (s *Session) autoAdvance(generation uint64, questionID string) {
	s.mu.Lock()
	if s.closed || s.generation != generation {
		s.mu.Unlock()
		return
	}
	current := s.state.CurrentQuestion()
	if current == nil || current.ID != questionID {
		s.mu.Unlock()
		return
	}
	s.pendingAdvance = nil

	action := NextQuestion{Auto: true}
	next, changed := Reduce(s.state, action)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.generation++
	snapshot := s.state.Clone()
	listener := s.listener
	s.mu.Unlock()

	log.Printf("[QuizSession] Автопереход к вопросу %d", snapshot.CurrentIndex+1)
	if listener != nil {
		listener(snapshot, action)
	}
}

func (s *Session) cancelPendingLocked() {
	if s.pendingAdvance != nil {
		s.pendingAdvance()
		s.pendingAdvance = nil
	}
}
