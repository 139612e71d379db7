package quizengine

import (
	"strings"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// FilterByDifficulty оставляет слова выбранного уровня. Для "mixed" возвращает вход без изменений.
// Пустой результат допустим: вызывающий переходит на запасной пул.
func FilterByDifficulty(words []entity.Word, difficulty string) []entity.Word {
	if difficulty == entity.DifficultyMixed {
		return words
	}
	level := entity.CEFRLevel(difficulty)
	result := make([]entity.Word, 0, len(words))
	for _, w := range words {
		if w.Level == level {
			result = append(result, w)
		}
	}
	return result
}

// FilterLearned оставляет только слова, отмеченные пользователем как выученные
func FilterLearned(words []entity.Word, learned []string) []entity.Word {
	if len(learned) == 0 {
		return []entity.Word{}
	}
	set := make(map[string]struct{}, len(learned))
	for _, l := range learned {
		set[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	result := make([]entity.Word, 0, len(learned))
	for _, w := range words {
		if _, ok := set[w.ID()]; ok {
			result = append(result, w)
		}
	}
	return result
}
