package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// ProgressRepo реализует repository.ProgressRepository
type ProgressRepo struct {
	db *gorm.DB
}

// NewProgressRepo создает новый репозиторий прогресса
func NewProgressRepo(db *gorm.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// MarkLearned отмечает слова выученными (upsert по user_id + word)
func (r *ProgressRepo) MarkLearned(userID string, words []string, at time.Time) error {
	rows := buildProgressRows(userID, words, true, at)
	if len(rows) == 0 {
		return nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "word"}},
		DoUpdates: clause.AssignmentColumns([]string{"learned", "last_reviewed", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("mark learned for user %s: %w", userID, err)
	}
	return nil
}

// TouchReviewed обновляет last_reviewed. Новые строки создаются с learned=false.
func (r *ProgressRepo) TouchReviewed(userID string, words []string, at time.Time) error {
	rows := buildProgressRows(userID, words, false, at)
	if len(rows) == 0 {
		return nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "word"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_reviewed", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("touch reviewed for user %s: %w", userID, err)
	}
	return nil
}

// SetLearned явно выставляет флаг learned
func (r *ProgressRepo) SetLearned(userID string, word string, learned bool) error {
	now := time.Now()
	row := entity.UserProgress{
		UserID:       userID,
		Word:         word,
		Learned:      learned,
		LastReviewed: &now,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "word"}},
		DoUpdates: clause.AssignmentColumns([]string{"learned", "updated_at"}),
	}).Create(&row).Error
}

// GetLearnedWords возвращает выученные слова пользователя
func (r *ProgressRepo) GetLearnedWords(userID string) ([]string, error) {
	var words []string
	err := r.db.Model(&entity.UserProgress{}).
		Where("user_id = ? AND learned = ?", userID, true).
		Order("word").
		Pluck("word", &words).Error
	return words, err
}

// ListByUser возвращает весь прогресс пользователя
func (r *ProgressRepo) ListByUser(userID string) ([]entity.UserProgress, error) {
	var progress []entity.UserProgress
	err := r.db.Where("user_id = ?", userID).Order("word").Find(&progress).Error
	return progress, err
}

// buildProgressRows готовит строки без повторов слов
func buildProgressRows(userID string, words []string, learned bool, at time.Time) []entity.UserProgress {
	seen := make(map[string]struct{}, len(words))
	rows := make([]entity.UserProgress, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		reviewed := at
		rows = append(rows, entity.UserProgress{
			UserID:       userID,
			Word:         w,
			Learned:      learned,
			LastReviewed: &reviewed,
		})
	}
	return rows
}
