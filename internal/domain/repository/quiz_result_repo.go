package repository

import "github.com/yourusername/vocab-api/internal/domain/entity"

// QuizResultRepository определяет методы для работы с историей результатов
type QuizResultRepository interface {
	// Save сохраняет результат. Повторное сохранение той же викторины не создаёт дубликат.
	Save(record *entity.QuizResultRecord) error

	// ListByUser возвращает страницу результатов пользователя и общее количество
	ListByUser(userID string, limit, offset int) ([]entity.QuizResultRecord, int64, error)

	// ListAllByUser возвращает все результаты пользователя (для экспорта)
	ListAllByUser(userID string) ([]entity.QuizResultRecord, error)
}
