package entity

import (
	"fmt"
	"time"

	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

// QuestionType вариант вопроса викторины
type QuestionType string

const (
	QuestionMultipleChoice     QuestionType = "multiple-choice"
	QuestionSentenceCompletion QuestionType = "sentence-completion"
	QuestionPronunciation      QuestionType = "pronunciation"
	QuestionExampleMatching    QuestionType = "example-matching"
)

// AllQuestionTypes возвращает все поддерживаемые типы вопросов
func AllQuestionTypes() []QuestionType {
	return []QuestionType{
		QuestionMultipleChoice,
		QuestionSentenceCompletion,
		QuestionPronunciation,
		QuestionExampleMatching,
	}
}

// IsValid проверяет, что тип вопроса известен
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionSentenceCompletion, QuestionPronunciation, QuestionExampleMatching:
		return true
	}
	return false
}

// WordPool источник слов для викторины
type WordPool string

const (
	WordPoolLearned WordPool = "learned"
	WordPoolAll     WordPool = "all"
)

// QuizStatus статус викторины
type QuizStatus string

// Константы статусов викторины
const (
	QuizStatusNotStarted QuizStatus = "not-started"
	QuizStatusInProgress QuizStatus = "in-progress"
	QuizStatusCompleted  QuizStatus = "completed"
)

// QuizSettings параметры, выбранные пользователем перед стартом. После старта не меняются.
type QuizSettings struct {
	QuestionCount int            `json:"question_count"`
	Difficulty    string         `json:"difficulty"`
	QuestionTypes []QuestionType `json:"question_types"`
	WordPool      WordPool       `json:"word_pool"`
}

// Validate проверяет корректность настроек
func (s QuizSettings) Validate() error {
	if s.QuestionCount <= 0 {
		return fmt.Errorf("%w: question_count must be positive", apperrors.ErrValidation)
	}
	if !IsValidDifficulty(s.Difficulty) {
		return fmt.Errorf("%w: unknown difficulty %q", apperrors.ErrValidation, s.Difficulty)
	}
	if len(s.QuestionTypes) == 0 {
		return fmt.Errorf("%w: at least one question type is required", apperrors.ErrValidation)
	}
	for _, t := range s.QuestionTypes {
		if !t.IsValid() {
			return fmt.Errorf("%w: unknown question type %q", apperrors.ErrValidation, t)
		}
	}
	if s.WordPool != WordPoolLearned && s.WordPool != WordPoolAll {
		return fmt.Errorf("%w: unknown word pool %q", apperrors.ErrValidation, s.WordPool)
	}
	return nil
}

// UniqueQuestionTypes возвращает типы вопросов без повторов с сохранением порядка
func (s QuizSettings) UniqueQuestionTypes() []QuestionType {
	seen := make(map[QuestionType]struct{}, len(s.QuestionTypes))
	result := make([]QuestionType, 0, len(s.QuestionTypes))
	for _, t := range s.QuestionTypes {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}

// QuizQuestion вопрос викторины. Ответ или пропуск фиксируются ровно один раз.
type QuizQuestion struct {
	ID            string       `json:"id"`
	WordID        string       `json:"word_id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	UserAnswer    *string      `json:"user_answer,omitempty"`
	IsCorrect     *bool        `json:"is_correct,omitempty"`
	IsSkipped     bool         `json:"is_skipped"`
	TimeSpentMs   *int64       `json:"time_spent_ms,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
}

// IsAnswered проверяет, дан ли ответ на вопрос
func (q *QuizQuestion) IsAnswered() bool {
	return q.UserAnswer != nil
}

// IsResolved проверяет, что вопрос отвечен или пропущен
func (q *QuizQuestion) IsResolved() bool {
	return q.UserAnswer != nil || q.IsSkipped
}

// Quiz викторина, принадлежащая одной активной сессии
type Quiz struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	Difficulty       string         `json:"difficulty"`
	TotalQuestions   int            `json:"total_questions"`
	Questions        []QuizQuestion `json:"questions"`
	Status           QuizStatus     `json:"status"`
	CorrectAnswers   int            `json:"correct_answers"`
	WrongAnswers     int            `json:"wrong_answers"`
	SkippedQuestions int            `json:"skipped_questions"`
}

// IsActive проверяет, идёт ли викторина
func (q *Quiz) IsActive() bool {
	return q.Status == QuizStatusInProgress
}

// IsCompleted проверяет, завершена ли викторина
func (q *Quiz) IsCompleted() bool {
	return q.Status == QuizStatusCompleted
}

// UnansweredCount возвращает число вопросов без ответа и без пропуска
func (q *Quiz) UnansweredCount() int {
	return q.TotalQuestions - q.CorrectAnswers - q.WrongAnswers - q.SkippedQuestions
}

// Clone возвращает глубокую копию викторины
func (q *Quiz) Clone() *Quiz {
	if q == nil {
		return nil
	}
	cp := *q
	if q.CompletedAt != nil {
		t := *q.CompletedAt
		cp.CompletedAt = &t
	}
	if q.Questions != nil {
		cp.Questions = make([]QuizQuestion, len(q.Questions))
		for i := range q.Questions {
			cp.Questions[i] = q.Questions[i].clone()
		}
	}
	return &cp
}

func (q QuizQuestion) clone() QuizQuestion {
	cp := q
	if q.Options != nil {
		cp.Options = append([]string(nil), q.Options...)
	}
	if q.UserAnswer != nil {
		v := *q.UserAnswer
		cp.UserAnswer = &v
	}
	if q.IsCorrect != nil {
		v := *q.IsCorrect
		cp.IsCorrect = &v
	}
	if q.TimeSpentMs != nil {
		v := *q.TimeSpentMs
		cp.TimeSpentMs = &v
	}
	return cp
}
