package repository

import (
	"time"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// ProgressRepository определяет методы для работы с прогрессом по словам
type ProgressRepository interface {
	// MarkLearned отмечает слова выученными и обновляет last_reviewed
	MarkLearned(userID string, words []string, at time.Time) error

	// TouchReviewed обновляет last_reviewed, не меняя флаг learned
	TouchReviewed(userID string, words []string, at time.Time) error

	// SetLearned явно выставляет флаг learned для одного слова
	SetLearned(userID string, word string, learned bool) error

	// GetLearnedWords возвращает выученные слова пользователя
	GetLearnedWords(userID string) ([]string, error)

	// ListByUser возвращает весь прогресс пользователя
	ListByUser(userID string) ([]entity.UserProgress, error)
}
