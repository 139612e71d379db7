// Package quizengine генерирует викторины по словарю, ведёт их состояние и подводит итоги.
package quizengine

import "time"

// Пороги для рекомендаций по итогам викторины
const (
	WeakAreaThreshold         = 70 // процент, ниже которого уровень или часть речи считаются слабыми
	SlowAnswerThreshold       = 30 // секунд на вопрос, после которых даётся совет по темпу
	DefaultOptionsPerQuestion = 4
)

// Config содержит настройки движка викторин
type Config struct {
	AutoAdvanceDelay     time.Duration // Задержка перед автопереходом после правильного ответа
	DistractorCount      int           // Количество неверных вариантов в вопросе
	DefaultQuestionCount int           // Количество вопросов, если пользователь не указал
	MaxQuestionCount     int           // Верхняя граница количества вопросов
	LengthTolerance      int           // Допустимая разница длины для "похожих" слов
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		AutoAdvanceDelay:     1500 * time.Millisecond,
		DistractorCount:      DefaultOptionsPerQuestion - 1,
		DefaultQuestionCount: 10,
		MaxQuestionCount:     50,
		LengthTolerance:      2,
	}
}
