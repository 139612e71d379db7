package realtime

import (
	"log"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Registry хранит не более одной активной сессии на ключ (пользователя).
// Новая сессия вытесняет прежнюю, прежняя закрывается до регистрации новой.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Acquire регистрирует сессию для ключа, закрывая предыдущую
func (r *Registry) Acquire(key string, session *Session) {
	r.mu.Lock()
	prev := r.sessions[key]
	r.sessions[key] = session
	r.mu.Unlock()

	if prev != nil && prev != session {
		log.Printf("[SessionRegistry] Закрываем предыдущую сессию для %s", key)
		if err := prev.Close(); err != nil {
			log.Printf("[SessionRegistry] Ошибки при закрытии предыдущей сессии %s: %v", key, err)
		}
	}
}

// Get возвращает активную сессию для ключа
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Release удаляет сессию, если она всё ещё зарегистрирована под ключом, и закрывает её
func (r *Registry) Release(key string, session *Session) error {
	r.mu.Lock()
	if current, ok := r.sessions[key]; ok && current == session {
		delete(r.sessions, key)
	}
	r.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

// Len возвращает количество зарегистрированных сессий
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll закрывает все сессии и очищает реестр
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var result *multierror.Error
	for key, s := range sessions {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
			log.Printf("[SessionRegistry] Ошибка закрытия сессии %s: %v", key, err)
		}
	}
	return result.ErrorOrNil()
}
