package quizengine

import (
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// KeyFunc возвращает текст варианта ответа, по которому варианты считаются одинаковыми
type KeyFunc func(entity.Word) string

// WordKey сравнивает варианты по написанию слова
func WordKey(w entity.Word) string {
	return strings.ToLower(strings.TrimSpace(w.Word))
}

// MeaningKey сравнивает варианты по значению слова
func MeaningKey(w entity.Word) string {
	return strings.ToLower(strings.TrimSpace(w.Meaning))
}

// DistractorSelector подбирает правдоподобные неверные варианты ответа.
// Не потокобезопасен: rng используется без блокировок.
type DistractorSelector struct {
	rng             *rand.Rand
	lengthTolerance int
}

// NewDistractorSelector создает селектор с заданным источником случайности
func NewDistractorSelector(rng *rand.Rand, lengthTolerance int) *DistractorSelector {
	return &DistractorSelector{rng: rng, lengthTolerance: lengthTolerance}
}

// Select возвращает до n слов того же уровня и части речи, что и target.
// Если таких меньше n, круг расширяется до той же части речи на любом уровне.
// Результат не содержит target и повторов по key.
func (s *DistractorSelector) Select(target entity.Word, corpus []entity.Word, n int, key KeyFunc) []entity.Word {
	if n <= 0 {
		return []entity.Word{}
	}
	eligible := eligibleWords(target, corpus, key)
	return s.pickByLevelAndType(target, eligible, n)
}

// SelectSimilar сначала отбирает слова близкой длины (|len(a)-len(b)| <= lengthTolerance),
// затем применяет ту же цепочку уровень -> часть речи. Недостающие варианты
// добираются из всего словаря по обычной цепочке.
func (s *DistractorSelector) SelectSimilar(target entity.Word, corpus []entity.Word, n int, key KeyFunc) []entity.Word {
	if n <= 0 {
		return []entity.Word{}
	}
	eligible := eligibleWords(target, corpus, key)

	targetLen := utf8.RuneCountInString(target.Word)
	similar := make([]entity.Word, 0, len(eligible))
	for _, w := range eligible {
		if abs(utf8.RuneCountInString(w.Word)-targetLen) <= s.lengthTolerance {
			similar = append(similar, w)
		}
	}

	picked := s.pickByLevelAndType(target, similar, n)
	if len(picked) >= n {
		return picked
	}

	used := make(map[string]struct{}, len(picked))
	for _, w := range picked {
		used[key(w)] = struct{}{}
	}
	rest := make([]entity.Word, 0, len(eligible))
	for _, w := range eligible {
		if _, ok := used[key(w)]; !ok {
			rest = append(rest, w)
		}
	}
	return append(picked, s.pickByLevelAndType(target, rest, n-len(picked))...)
}

// pickByLevelAndType реализует цепочку: уровень+часть речи, затем только часть речи,
// затем перемешивание и первые n
func (s *DistractorSelector) pickByLevelAndType(target entity.Word, eligible []entity.Word, n int) []entity.Word {
	candidates := make([]entity.Word, 0, len(eligible))
	for _, w := range eligible {
		if w.Level == target.Level && w.Type == target.Type {
			candidates = append(candidates, w)
		}
	}

	if len(candidates) < n {
		candidates = candidates[:0]
		for _, w := range eligible {
			if w.Type == target.Type {
				candidates = append(candidates, w)
			}
		}
	}

	s.shuffle(candidates)
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// shuffle - тасование Фишера-Йетса
func (s *DistractorSelector) shuffle(words []entity.Word) {
	for i := len(words) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		words[i], words[j] = words[j], words[i]
	}
}

// eligibleWords исключает target и слова, совпадающие с ним по key, и убирает повторы
func eligibleWords(target entity.Word, corpus []entity.Word, key KeyFunc) []entity.Word {
	targetID := target.ID()
	targetKey := key(target)
	seen := make(map[string]struct{}, len(corpus))
	result := make([]entity.Word, 0, len(corpus))
	for _, w := range corpus {
		k := key(w)
		if w.ID() == targetID || k == targetKey || k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, w)
	}
	return result
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
