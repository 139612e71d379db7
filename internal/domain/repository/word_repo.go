package repository

import "github.com/yourusername/vocab-api/internal/domain/entity"

// WordRepository предоставляет доступ к статическому словарю
type WordRepository interface {
	// All возвращает все слова словаря
	All() []entity.Word

	// GetByWord возвращает слово по написанию (без учёта регистра)
	GetByWord(word string) (*entity.Word, error)
}
