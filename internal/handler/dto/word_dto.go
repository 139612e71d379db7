package dto

import (
	"time"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// WordResponse слово словаря вместе с отметкой пользователя
type WordResponse struct {
	ID            string           `json:"id"`
	Word          string           `json:"word"`
	Meaning       string           `json:"meaning"`
	Level         entity.CEFRLevel `json:"level"`
	Type          string           `json:"type"`
	Pronunciation string           `json:"pronunciation,omitempty"`
	Examples      []entity.Example `json:"examples"`
	Learned       bool             `json:"learned"`
}

// WordListResponse список слов уровня
type WordListResponse struct {
	Words []WordResponse `json:"words"`
	Total int            `json:"total"`
	Level string         `json:"level"`
}

// ProgressResponse прогресс пользователя по одному слову
type ProgressResponse struct {
	Word         string     `json:"word"`
	Learned      bool       `json:"learned"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ProgressSummaryResponse прогресс пользователя целиком
type ProgressSummaryResponse struct {
	Items        []ProgressResponse `json:"items"`
	LearnedCount int                `json:"learned_count"`
}

// UpdateProgressRequest отметка слова выученным или снятие отметки
type UpdateProgressRequest struct {
	Word    string `json:"word" binding:"required"`
	Learned *bool  `json:"learned" binding:"required"`
}

// NewWordListResponse создает DTO списка слов. learned содержит идентификаторы выученных слов.
func NewWordListResponse(words []entity.Word, level string, learned map[string]bool) *WordListResponse {
	list := make([]WordResponse, len(words))
	for i, w := range words {
		examples := w.Examples
		if examples == nil {
			examples = []entity.Example{}
		}
		list[i] = WordResponse{
			ID:            w.ID(),
			Word:          w.Word,
			Meaning:       w.Meaning,
			Level:         w.Level,
			Type:          w.Type,
			Pronunciation: w.Pronunciation,
			Examples:      examples,
			Learned:       learned[w.ID()],
		}
	}
	return &WordListResponse{Words: list, Total: len(list), Level: level}
}

// NewProgressSummaryResponse создает DTO прогресса пользователя
func NewProgressSummaryResponse(items []entity.UserProgress) *ProgressSummaryResponse {
	resp := &ProgressSummaryResponse{Items: make([]ProgressResponse, len(items))}
	for i, p := range items {
		resp.Items[i] = ProgressResponse{
			Word:         p.Word,
			Learned:      p.Learned,
			LastReviewed: p.LastReviewed,
			UpdatedAt:    p.UpdatedAt,
		}
		if p.Learned {
			resp.LearnedCount++
		}
	}
	return resp
}

// LearnedSet строит множество выученных слов из прогресса
func LearnedSet(items []entity.UserProgress) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, p := range items {
		if p.Learned {
			set[p.Word] = true
		}
	}
	return set
}
