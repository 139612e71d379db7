package entity

import "strings"

// CEFRLevel уровень владения языком по шкале CEFR
type CEFRLevel string

const (
	LevelA1 CEFRLevel = "A1"
	LevelA2 CEFRLevel = "A2"
	LevelB1 CEFRLevel = "B1"
	LevelB2 CEFRLevel = "B2"
	LevelC1 CEFRLevel = "C1"
	LevelC2 CEFRLevel = "C2"
)

// DifficultyMixed означает отсутствие фильтра по уровню
const DifficultyMixed = "mixed"

// AllLevels возвращает уровни в порядке возрастания сложности
func AllLevels() []CEFRLevel {
	return []CEFRLevel{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}
}

// IsValid проверяет, что уровень входит в шкалу A1..C2
func (l CEFRLevel) IsValid() bool {
	switch l {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
		return true
	}
	return false
}

// IsValidDifficulty проверяет значение сложности викторины: уровень CEFR или "mixed"
func IsValidDifficulty(d string) bool {
	return d == DifficultyMixed || CEFRLevel(d).IsValid()
}

// Example пример употребления слова
type Example struct {
	EN string `json:"en"`
	TR string `json:"tr,omitempty"`
}

// Word справочное слово из статического словаря. Не изменяется после загрузки.
type Word struct {
	Word          string    `json:"word"`
	Meaning       string    `json:"meaning"`
	Level         CEFRLevel `json:"level"`
	Type          string    `json:"type"`
	Pronunciation string    `json:"pronunciation"`
	Examples      []Example `json:"examples"`
}

// ID возвращает идентификатор слова. Словарь уникален по написанию.
func (w Word) ID() string {
	return strings.ToLower(w.Word)
}

// FirstExample возвращает первый пример или пустую строку
func (w Word) FirstExample() string {
	if len(w.Examples) == 0 {
		return ""
	}
	return w.Examples[0].EN
}

// HasExample сообщает, есть ли у слова хотя бы один непустой пример
func (w Word) HasExample() bool {
	return strings.TrimSpace(w.FirstExample()) != ""
}

// HasPronunciation сообщает, указана ли транскрипция
func (w Word) HasPronunciation() bool {
	return strings.TrimSpace(w.Pronunciation) != ""
}
