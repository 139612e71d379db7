// Package dataset содержит встроенный словарь приложения.
package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

//go:embed words.json
var wordsJSON []byte

// Words разбирает встроенный словарь. Вызывается один раз при старте.
func Words() ([]entity.Word, error) {
	return Parse(wordsJSON)
}

// Parse разбирает словарь в формате JSON и проверяет уровни слов
func Parse(data []byte) ([]entity.Word, error) {
	var words []entity.Word
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("parse word dataset: %w", err)
	}
	for i, w := range words {
		if w.Word == "" || w.Meaning == "" {
			return nil, fmt.Errorf("word #%d: word and meaning are required", i)
		}
		if !w.Level.IsValid() {
			return nil, fmt.Errorf("word %q: invalid level %q", w.Word, w.Level)
		}
	}
	return words, nil
}
