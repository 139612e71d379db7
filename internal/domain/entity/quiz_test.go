package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

func validSettings() QuizSettings {
	return QuizSettings{
		QuestionCount: 10,
		Difficulty:    "B1",
		QuestionTypes: []QuestionType{QuestionMultipleChoice},
		WordPool:      WordPoolAll,
	}
}

func TestQuizSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(s *QuizSettings)
		wantErr bool
	}{
		{name: "валидные настройки", modify: func(s *QuizSettings) {}},
		{name: "mixed сложность", modify: func(s *QuizSettings) { s.Difficulty = DifficultyMixed }},
		{name: "нулевое количество вопросов", modify: func(s *QuizSettings) { s.QuestionCount = 0 }, wantErr: true},
		{name: "неизвестная сложность", modify: func(s *QuizSettings) { s.Difficulty = "D1" }, wantErr: true},
		{name: "пустой список типов", modify: func(s *QuizSettings) { s.QuestionTypes = nil }, wantErr: true},
		{name: "неизвестный тип вопроса", modify: func(s *QuizSettings) {
			s.QuestionTypes = []QuestionType{"essay"}
		}, wantErr: true},
		{name: "неизвестный пул слов", modify: func(s *QuizSettings) { s.WordPool = "favorites" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := validSettings()
			tt.modify(&s)

			// Act
			err := s.Validate()

			// Assert
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrValidation), "ошибка должна оборачивать ErrValidation")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuizSettings_UniqueQuestionTypes(t *testing.T) {
	s := QuizSettings{QuestionTypes: []QuestionType{
		QuestionPronunciation, QuestionMultipleChoice, QuestionPronunciation,
	}}

	assert.Equal(t, []QuestionType{QuestionPronunciation, QuestionMultipleChoice}, s.UniqueQuestionTypes())
}

func TestQuiz_Clone_IsDeep(t *testing.T) {
	// Arrange
	answer := "dog"
	correct := true
	spent := int64(1500)
	completed := time.Now()
	original := &Quiz{
		ID:          "q1",
		CompletedAt: &completed,
		Questions: []QuizQuestion{{
			ID:          "a",
			Options:     []string{"dog", "cat"},
			UserAnswer:  &answer,
			IsCorrect:   &correct,
			TimeSpentMs: &spent,
		}},
	}

	// Act
	cp := original.Clone()
	cp.Questions[0].Options[0] = "bird"
	*cp.Questions[0].UserAnswer = "cat"
	*cp.Questions[0].IsCorrect = false
	*cp.CompletedAt = completed.Add(time.Hour)

	// Assert
	assert.Equal(t, "dog", original.Questions[0].Options[0])
	assert.Equal(t, "dog", *original.Questions[0].UserAnswer)
	assert.True(t, *original.Questions[0].IsCorrect)
	assert.Equal(t, completed, *original.CompletedAt)
}

func TestQuiz_Clone_Nil(t *testing.T) {
	var q *Quiz
	assert.Nil(t, q.Clone())
}

func TestQuizQuestion_IsResolved(t *testing.T) {
	answer := "x"
	assert.False(t, (&QuizQuestion{}).IsResolved())
	assert.True(t, (&QuizQuestion{IsSkipped: true}).IsResolved())
	assert.True(t, (&QuizQuestion{UserAnswer: &answer}).IsResolved())
	assert.False(t, (&QuizQuestion{IsSkipped: true}).IsAnswered())
}

func TestWord_Helpers(t *testing.T) {
	w := Word{Word: "Apple", Examples: []Example{{EN: "An apple a day."}}}

	assert.Equal(t, "apple", w.ID())
	assert.True(t, w.HasExample())
	assert.False(t, w.HasPronunciation())
	assert.Equal(t, "", Word{}.FirstExample())
}

func TestIsValidDifficulty(t *testing.T) {
	assert.True(t, IsValidDifficulty("mixed"))
	assert.True(t, IsValidDifficulty("C2"))
	assert.False(t, IsValidDifficulty(""))
	assert.False(t, IsValidDifficulty("b1"))
}

func TestStringArray_ScanAndValue(t *testing.T) {
	var arr StringArray

	require.NoError(t, arr.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringArray{"a", "b"}, arr)

	require.NoError(t, arr.Scan(nil))
	assert.Empty(t, arr)

	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	assert.Error(t, arr.Scan(42))
}

func TestNewQuizResultRecord(t *testing.T) {
	completed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	result := &QuizResult{
		QuizID: "quiz-1", UserID: "user-1", Difficulty: "A2",
		TotalQuestions: 10, CorrectAnswers: 7, WrongAnswers: 2, SkippedQuestions: 1,
		SuccessRate: 70, TimeSpent: 95, Recommendations: []string{"Good job!"},
		CompletedAt: &completed,
	}

	record := NewQuizResultRecord(result)

	assert.Equal(t, "quiz_results", record.TableName())
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, 7, record.CorrectAnswers)
	assert.Equal(t, 95, record.TimeSpent)
	assert.Equal(t, completed, record.CreatedAt)
	assert.Equal(t, StringArray{"Good job!"}, record.Recommendations)
	assert.Equal(t, "user_progress", UserProgress{}.TableName())
}
