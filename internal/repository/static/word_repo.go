// Package static содержит репозитории поверх неизменяемых данных в памяти.
package static

import (
	"strings"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

// WordRepo реализует repository.WordRepository поверх словаря в памяти
type WordRepo struct {
	words []entity.Word
	index map[string]int
}

// NewWordRepo создает репозиторий. Срез копируется, словарь дальше не меняется.
func NewWordRepo(words []entity.Word) *WordRepo {
	r := &WordRepo{
		words: append([]entity.Word(nil), words...),
		index: make(map[string]int, len(words)),
	}
	for i, w := range r.words {
		if _, exists := r.index[w.ID()]; !exists {
			r.index[w.ID()] = i
		}
	}
	return r
}

// All возвращает копию словаря
func (r *WordRepo) All() []entity.Word {
	return append([]entity.Word(nil), r.words...)
}

// GetByWord возвращает слово без учёта регистра
func (r *WordRepo) GetByWord(word string) (*entity.Word, error) {
	i, ok := r.index[strings.ToLower(strings.TrimSpace(word))]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	w := r.words[i]
	return &w, nil
}
