package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	"github.com/yourusername/vocab-api/internal/domain/repository"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

// resultCacheKey ключ снимка результата в кеше
func resultCacheKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:result", quizID)
}

// ActiveResultSource отдаёт результат викторины, которая ещё не закрыта
type ActiveResultSource interface {
	ActiveResult(userID, quizID string) (*entity.QuizResult, bool)
}

// ResultService предоставляет методы для работы с результатами
type ResultService struct {
	resultRepo repository.QuizResultRepository
	cacheRepo  repository.CacheRepository
	active     ActiveResultSource
}

// NewResultService создает новый сервис результатов
func NewResultService(
	resultRepo repository.QuizResultRepository,
	cacheRepo repository.CacheRepository,
	active ActiveResultSource,
) *ResultService {
	return &ResultService{
		resultRepo: resultRepo,
		cacheRepo:  cacheRepo,
		active:     active,
	}
}

// GetResult возвращает полный результат викторины пользователя.
// Снимок берётся из кеша, при промахе из открытой викторины.
func (s *ResultService) GetResult(userID, quizID string) (*entity.QuizResult, error) {
	var cached entity.QuizResult
	err := s.cacheRepo.GetJSON(resultCacheKey(quizID), &cached)
	if err == nil {
		if cached.UserID != userID {
			return nil, fmt.Errorf("%w: result for quiz %s", apperrors.ErrNotFound, quizID)
		}
		return &cached, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[ResultService] Ошибка чтения результата %s из кеша: %v", quizID, err)
	}

	if s.active != nil {
		if result, ok := s.active.ActiveResult(userID, quizID); ok {
			return result, nil
		}
	}
	return nil, fmt.Errorf("%w: result for quiz %s", apperrors.ErrNotFound, quizID)
}

// GetUserResults возвращает пагинированную историю результатов пользователя
func (s *ResultService) GetUserResults(userID string, page, pageSize int) ([]entity.QuizResultRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	} else if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize

	results, total, err := s.resultRepo.ListByUser(userID, pageSize, offset)
	if err != nil {
		log.Printf("[ResultService] Ошибка при получении результатов пользователя %s (page %d, size %d): %v", userID, page, pageSize, err)
		return nil, 0, err
	}
	return results, total, nil
}

// GetAllUserResults возвращает всю историю пользователя для экспорта
func (s *ResultService) GetAllUserResults(userID string) ([]entity.QuizResultRecord, error) {
	results, err := s.resultRepo.ListAllByUser(userID)
	if err != nil {
		log.Printf("[ResultService] Ошибка при выгрузке результатов пользователя %s: %v", userID, err)
		return nil, err
	}
	return results, nil
}
