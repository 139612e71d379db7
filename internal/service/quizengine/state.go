package quizengine

import (
	"time"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// State состояние сессии викторины
type State struct {
	Quiz         *entity.Quiz         `json:"quiz,omitempty"`
	Settings     *entity.QuizSettings `json:"settings,omitempty"`
	CurrentIndex int                  `json:"current_index"`
}

// InitialState возвращает пустое состояние
func InitialState() State {
	return State{}
}

// Status возвращает статус викторины; без викторины - not-started
func (s State) Status() entity.QuizStatus {
	if s.Quiz == nil {
		return entity.QuizStatusNotStarted
	}
	return s.Quiz.Status
}

// CurrentQuestion возвращает текущий вопрос или nil
func (s State) CurrentQuestion() *entity.QuizQuestion {
	if s.Quiz == nil || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Quiz.Questions) {
		return nil
	}
	return &s.Quiz.Questions[s.CurrentIndex]
}

// Clone возвращает независимую копию состояния
func (s State) Clone() State {
	cp := State{CurrentIndex: s.CurrentIndex, Quiz: s.Quiz.Clone()}
	if s.Settings != nil {
		settings := *s.Settings
		settings.QuestionTypes = append([]entity.QuestionType(nil), s.Settings.QuestionTypes...)
		cp.Settings = &settings
	}
	return cp
}

// Public возвращает копию состояния для клиента: у нерешённых вопросов
// скрыты правильный ответ и пояснение.
func (s State) Public() State {
	cp := s.Clone()
	if cp.Quiz == nil {
		return cp
	}
	for i := range cp.Quiz.Questions {
		q := &cp.Quiz.Questions[i]
		if !q.IsResolved() {
			q.CorrectAnswer = ""
			q.Explanation = ""
		}
	}
	return cp
}

// Action действие над сессией викторины. Набор действий закрыт.
type Action interface {
	isAction()
}

// StartQuiz запускает сгенерированную викторину
type StartQuiz struct {
	Quiz      *entity.Quiz
	Settings  entity.QuizSettings
	StartedAt time.Time
}

// AnswerQuestion ответ на текущий вопрос. Пустой QuestionID означает "текущий вопрос".
type AnswerQuestion struct {
	QuestionID  string
	Answer      string
	TimeSpentMs int64
}

// SkipQuestion пропуск текущего вопроса. Курсор не сдвигается.
type SkipQuestion struct {
	QuestionID string
}

// NextQuestion переход к следующему вопросу. Auto выставляется планировщиком автоперехода.
type NextQuestion struct {
	Auto bool
}

// PreviousQuestion переход к предыдущему вопросу
type PreviousQuestion struct{}

// EndQuiz завершает викторину
type EndQuiz struct {
	CompletedAt time.Time
}

// ResetQuiz возвращает сессию в пустое состояние
type ResetQuiz struct{}

func (StartQuiz) isAction() {}
func (AnswerQuestion) isAction() {}
func (SkipQuestion) isAction() {}
func (NextQuestion) isAction() {}
func (PreviousQuestion) isAction() {}
func (EndQuiz) isAction() {}
func (ResetQuiz) isAction() {}

// Reduce применяет действие к состоянию и возвращает новое состояние.
// Вход не изменяется. Недопустимые переходы возвращают исходное состояние и false.
func Reduce(state State, action Action) (State, bool) {
	switch a := action.(type) {
	case StartQuiz:
		return reduceStart(state, a)
	case AnswerQuestion:
		return reduceAnswer(state, a)
	case SkipQuestion:
		return reduceSkip(state, a)
	case NextQuestion:
		if state.Status() != entity.QuizStatusInProgress || state.CurrentIndex >= len(state.Quiz.Questions)-1 {
			return state, false
		}
		next := state.Clone()
		next.CurrentIndex++
		return next, true
	case PreviousQuestion:
		if state.Status() != entity.QuizStatusInProgress || state.CurrentIndex <= 0 {
			return state, false
		}
		next := state.Clone()
		next.CurrentIndex--
		return next, true
	case EndQuiz:
		if state.Status() != entity.QuizStatusInProgress {
			return state, false
		}
		next := state.Clone()
		completedAt := a.CompletedAt
		next.Quiz.CompletedAt = &completedAt
		next.Quiz.Status = entity.QuizStatusCompleted
		return next, true
	case ResetQuiz:
		if state.Quiz == nil && state.Settings == nil && state.CurrentIndex == 0 {
			return state, false
		}
		return InitialState(), true
	default:
		return state, false
	}
}

func reduceStart(state State, a StartQuiz) (State, bool) {
	if state.Status() != entity.QuizStatusNotStarted || a.Quiz == nil || len(a.Quiz.Questions) == 0 {
		return state, false
	}
	quiz := a.Quiz.Clone()
	quiz.Status = entity.QuizStatusInProgress
	quiz.StartedAt = a.StartedAt
	quiz.CompletedAt = nil
	quiz.TotalQuestions = len(quiz.Questions)
	quiz.CorrectAnswers, quiz.WrongAnswers, quiz.SkippedQuestions = 0, 0, 0
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		q.UserAnswer, q.IsCorrect, q.TimeSpentMs, q.IsSkipped = nil, nil, nil, false
	}

	settings := a.Settings
	settings.QuestionTypes = append([]entity.QuestionType(nil), a.Settings.QuestionTypes...)
	return State{Quiz: quiz, Settings: &settings, CurrentIndex: 0}, true
}

func reduceAnswer(state State, a AnswerQuestion) (State, bool) {
	if state.Status() != entity.QuizStatusInProgress {
		return state, false
	}
	current := state.CurrentQuestion()
	if current == nil || current.IsResolved() {
		return state, false
	}
	if a.QuestionID != "" && a.QuestionID != current.ID {
		return state, false
	}

	next := state.Clone()
	q := next.CurrentQuestion()
	answer := a.Answer
	correct := answer == q.CorrectAnswer
	spent := a.TimeSpentMs
	if spent < 0 {
		spent = 0
	}
	q.UserAnswer = &answer
	q.IsCorrect = &correct
	q.TimeSpentMs = &spent
	if correct {
		next.Quiz.CorrectAnswers++
	} else {
		next.Quiz.WrongAnswers++
	}
	return next, true
}

func reduceSkip(state State, a SkipQuestion) (State, bool) {
	if state.Status() != entity.QuizStatusInProgress {
		return state, false
	}
	current := state.CurrentQuestion()
	if current == nil || current.IsResolved() {
		return state, false
	}
	if a.QuestionID != "" && a.QuestionID != current.ID {
		return state, false
	}

	next := state.Clone()
	next.CurrentQuestion().IsSkipped = true
	next.Quiz.SkippedQuestions++
	return next, true
}
