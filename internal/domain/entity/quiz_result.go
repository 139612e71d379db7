package entity

import "time"

// LevelStat статистика ответов по одному уровню CEFR
type LevelStat struct {
	Level      CEFRLevel `json:"level"`
	Total      int       `json:"total"`
	Correct    int       `json:"correct"`
	Percentage int       `json:"percentage"`
}

// WordTypeStat статистика ответов по части речи
type WordTypeStat struct {
	Type       string `json:"type"`
	Total      int    `json:"total"`
	Correct    int    `json:"correct"`
	Percentage int    `json:"percentage"`
}

// QuizResult итог завершённой викторины. Вычисляется один раз и не изменяется.
type QuizResult struct {
	QuizID           string         `json:"quiz_id"`
	UserID           string         `json:"user_id"`
	Difficulty       string         `json:"difficulty"`
	TotalQuestions   int            `json:"total_questions"`
	CorrectAnswers   int            `json:"correct_answers"`
	WrongAnswers     int            `json:"wrong_answers"`
	SkippedQuestions int            `json:"skipped_questions"`
	TotalScore       int            `json:"total_score"`
	SuccessRate      int            `json:"success_rate"`
	TimeSpent        int            `json:"time_spent"` // секунды
	LevelAnalysis    []LevelStat    `json:"level_analysis"`
	WordTypeAnalysis []WordTypeStat `json:"word_type_analysis"`
	Recommendations  []string       `json:"recommendations"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// QuizResultRecord строка таблицы quiz_results, одна на завершённую викторину
type QuizResultRecord struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	UserID           string      `gorm:"size:64;not null;index" json:"user_id"`
	QuizID           string      `gorm:"size:64;not null;uniqueIndex" json:"quiz_id"`
	TotalQuestions   int         `gorm:"not null;default:0" json:"total_questions"`
	CorrectAnswers   int         `gorm:"not null;default:0" json:"correct_answers"`
	WrongAnswers     int         `gorm:"not null;default:0" json:"wrong_answers"`
	SkippedQuestions int         `gorm:"not null;default:0" json:"skipped_questions"`
	TimeSpent        int         `gorm:"not null;default:0" json:"time_spent"`
	SuccessRate      int         `gorm:"not null;default:0" json:"success_rate"`
	Difficulty       string      `gorm:"size:10;not null" json:"difficulty"`
	Recommendations  StringArray `gorm:"type:jsonb;not null" json:"recommendations"`
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizResultRecord) TableName() string {
	return "quiz_results"
}

// NewQuizResultRecord строит запись истории из результата викторины
func NewQuizResultRecord(r *QuizResult) *QuizResultRecord {
	record := &QuizResultRecord{
		UserID:           r.UserID,
		QuizID:           r.QuizID,
		TotalQuestions:   r.TotalQuestions,
		CorrectAnswers:   r.CorrectAnswers,
		WrongAnswers:     r.WrongAnswers,
		SkippedQuestions: r.SkippedQuestions,
		TimeSpent:        r.TimeSpent,
		SuccessRate:      r.SuccessRate,
		Difficulty:       r.Difficulty,
		Recommendations:  StringArray(append([]string(nil), r.Recommendations...)),
	}
	if r.CompletedAt != nil {
		record.CreatedAt = *r.CompletedAt
	}
	return record
}
