package dto

import (
	"time"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	"github.com/yourusername/vocab-api/internal/handler/helper"
	"github.com/yourusername/vocab-api/internal/service/quizengine"
)

// StartQuizRequest настройки новой викторины. Пустые поля заполняются значениями по умолчанию.
type StartQuizRequest struct {
	QuestionCount int                   `json:"question_count"`
	Difficulty    string                `json:"difficulty"`
	QuestionTypes []entity.QuestionType `json:"question_types"`
	WordPool      entity.WordPool       `json:"word_pool"`
}

// Settings преобразует запрос в настройки викторины
func (r StartQuizRequest) Settings() entity.QuizSettings {
	return entity.QuizSettings{
		QuestionCount: r.QuestionCount,
		Difficulty:    r.Difficulty,
		QuestionTypes: r.QuestionTypes,
		WordPool:      r.WordPool,
	}
}

// AnswerRequest ответ на текущий вопрос
type AnswerRequest struct {
	QuestionID  string `json:"question_id"`
	Answer      string `json:"answer" binding:"required"`
	TimeSpentMs int64  `json:"time_spent_ms" binding:"gte=0"`
}

// SkipRequest пропуск текущего вопроса
type SkipRequest struct {
	QuestionID string `json:"question_id"`
}

// QuestionResponse представляет вопрос в формате для ответа клиенту.
// До ответа правильный вариант и пояснение не передаются.
type QuestionResponse struct {
	ID            string                  `json:"id"`
	WordID        string                  `json:"word_id"`
	Type          entity.QuestionType     `json:"type"`
	Question      string                  `json:"question"`
	Options       []helper.QuestionOption `json:"options"`
	CorrectAnswer string                  `json:"correct_answer,omitempty"`
	UserAnswer    *string                 `json:"user_answer,omitempty"`
	IsCorrect     *bool                   `json:"is_correct,omitempty"`
	IsSkipped     bool                    `json:"is_skipped"`
	TimeSpentMs   *int64                  `json:"time_spent_ms,omitempty"`
	Explanation   string                  `json:"explanation,omitempty"`
}

// QuizStateResponse текущее состояние викторины пользователя
type QuizStateResponse struct {
	QuizID           string               `json:"quiz_id,omitempty"`
	Status           entity.QuizStatus    `json:"status"`
	Difficulty       string               `json:"difficulty,omitempty"`
	CurrentIndex     int                  `json:"current_index"`
	TotalQuestions   int                  `json:"total_questions"`
	CorrectAnswers   int                  `json:"correct_answers"`
	WrongAnswers     int                  `json:"wrong_answers"`
	SkippedQuestions int                  `json:"skipped_questions"`
	StartedAt        *time.Time           `json:"started_at,omitempty"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
	Settings         *entity.QuizSettings `json:"settings,omitempty"`
	CurrentQuestion  *QuestionResponse    `json:"current_question,omitempty"`
	Questions        []QuestionResponse   `json:"questions"`
}

// ResultRecordResponse строка истории результатов
type ResultRecordResponse struct {
	ID               uint      `json:"id"`
	QuizID           string    `json:"quiz_id"`
	Difficulty       string    `json:"difficulty"`
	TotalQuestions   int       `json:"total_questions"`
	CorrectAnswers   int       `json:"correct_answers"`
	WrongAnswers     int       `json:"wrong_answers"`
	SkippedQuestions int       `json:"skipped_questions"`
	SuccessRate      int       `json:"success_rate"`
	TimeSpent        int       `json:"time_spent"`
	Recommendations  []string  `json:"recommendations"`
	CompletedAt      time.Time `json:"completed_at"`
}

// PaginatedResultResponse представляет пагинированный список результатов
type PaginatedResultResponse struct {
	Results []*ResultRecordResponse `json:"results"`
	Total   int64                   `json:"total"`
	Page    int                     `json:"page"`
	PerPage int                     `json:"per_page"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.QuizQuestion) QuestionResponse {
	return QuestionResponse{
		ID:            q.ID,
		WordID:        q.WordID,
		Type:          q.Type,
		Question:      q.Question,
		Options:       helper.ConvertOptionsToObjects(q.Options),
		CorrectAnswer: q.CorrectAnswer,
		UserAnswer:    q.UserAnswer,
		IsCorrect:     q.IsCorrect,
		IsSkipped:     q.IsSkipped,
		TimeSpentMs:   q.TimeSpentMs,
		Explanation:   q.Explanation,
	}
}

// NewQuizStateResponse создает DTO состояния. Скрытие ответов выполняет State.Public.
func NewQuizStateResponse(state quizengine.State) *QuizStateResponse {
	public := state.Public()
	resp := &QuizStateResponse{
		Status:       public.Status(),
		CurrentIndex: public.CurrentIndex,
		Settings:     public.Settings,
		Questions:    []QuestionResponse{},
	}

	quiz := public.Quiz
	if quiz == nil {
		return resp
	}

	startedAt := quiz.StartedAt
	resp.QuizID = quiz.ID
	resp.Difficulty = quiz.Difficulty
	resp.TotalQuestions = quiz.TotalQuestions
	resp.CorrectAnswers = quiz.CorrectAnswers
	resp.WrongAnswers = quiz.WrongAnswers
	resp.SkippedQuestions = quiz.SkippedQuestions
	resp.StartedAt = &startedAt
	resp.CompletedAt = quiz.CompletedAt

	resp.Questions = make([]QuestionResponse, len(quiz.Questions))
	for i := range quiz.Questions {
		resp.Questions[i] = NewQuestionResponse(&quiz.Questions[i])
	}
	if current := public.CurrentQuestion(); current != nil {
		q := NewQuestionResponse(current)
		resp.CurrentQuestion = &q
	}
	return resp
}

// NewResultRecordResponse создает DTO для строки истории
func NewResultRecordResponse(record *entity.QuizResultRecord) *ResultRecordResponse {
	if record == nil {
		return nil
	}
	recommendations := []string(record.Recommendations)
	if recommendations == nil {
		recommendations = []string{}
	}
	return &ResultRecordResponse{
		ID:               record.ID,
		QuizID:           record.QuizID,
		Difficulty:       record.Difficulty,
		TotalQuestions:   record.TotalQuestions,
		CorrectAnswers:   record.CorrectAnswers,
		WrongAnswers:     record.WrongAnswers,
		SkippedQuestions: record.SkippedQuestions,
		SuccessRate:      record.SuccessRate,
		TimeSpent:        record.TimeSpent,
		Recommendations:  recommendations,
		CompletedAt:      record.CreatedAt,
	}
}

// NewPaginatedResultResponse создает DTO для пагинированного списка результатов
func NewPaginatedResultResponse(records []entity.QuizResultRecord, total int64, page, perPage int) *PaginatedResultResponse {
	list := make([]*ResultRecordResponse, len(records))
	for i := range records {
		list[i] = NewResultRecordResponse(&records[i])
	}
	return &PaginatedResultResponse{
		Results: list,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
}
