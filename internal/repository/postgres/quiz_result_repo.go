package postgres

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// QuizResultRepo реализует repository.QuizResultRepository
type QuizResultRepo struct {
	db *gorm.DB
}

// NewQuizResultRepo создает новый репозиторий результатов
func NewQuizResultRepo(db *gorm.DB) *QuizResultRepo {
	return &QuizResultRepo{db: db}
}

// Save сохраняет результат викторины. Повторный вызов для той же викторины ничего не меняет.
func (r *QuizResultRepo) Save(record *entity.QuizResultRecord) error {
	var existing entity.QuizResultRecord
	err := r.db.Where("quiz_id = ?", record.QuizID).First(&existing).Error
	if err == nil {
		*record = existing
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check quiz result %s: %w", record.QuizID, err)
	}

	if err := r.db.Create(record).Error; err != nil {
		// Параллельная запись той же викторины
		if isUniqueViolation(err) {
			log.Printf("[QuizResultRepo] Результат викторины %s уже сохранён", record.QuizID)
			return nil
		}
		return fmt.Errorf("save quiz result %s: %w", record.QuizID, err)
	}
	return nil
}

// ListByUser возвращает страницу результатов пользователя (новые первыми) и общее количество
func (r *QuizResultRepo) ListByUser(userID string, limit, offset int) ([]entity.QuizResultRecord, int64, error) {
	var records []entity.QuizResultRecord
	var total int64

	if err := r.db.Model(&entity.QuizResultRecord{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListAllByUser возвращает все результаты пользователя (новые первыми)
func (r *QuizResultRepo) ListAllByUser(userID string) ([]entity.QuizResultRecord, error) {
	var records []entity.QuizResultRecord
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	return records, err
}
