package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	"github.com/yourusername/vocab-api/internal/middleware"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
	"github.com/yourusername/vocab-api/internal/repository/postgres"
	"github.com/yourusername/vocab-api/internal/repository/static"
	"github.com/yourusername/vocab-api/internal/service"
	"github.com/yourusername/vocab-api/internal/service/quizengine"
	"github.com/yourusername/vocab-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryCache хранит JSON в памяти вместо Redis
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) SetJSON(key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = data
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) GetJSON(key string, dest interface{}) error {
	m.mu.Lock()
	data, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func testWords() []entity.Word {
	words := []entity.Word{}
	add := func(level entity.CEFRLevel, typ string, names ...string) {
		for _, name := range names {
			words = append(words, entity.Word{
				Word:          name,
				Meaning:       "meaning of " + name,
				Level:         level,
				Type:          typ,
				Pronunciation: "/" + name + "/",
				Examples:      []entity.Example{{EN: "I like the " + name + "."}},
			})
		}
	}
	add(entity.LevelA1, "n.", "apple", "river", "house", "table", "bread", "chair")
	add(entity.LevelA2, "v.", "borrow", "travel", "arrive")
	add(entity.LevelB1, "adj.", "curious", "generous", "anxious")
	return words
}

type handlerFixture struct {
	router      *gin.Engine
	quizService *service.QuizService
	token       string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&entity.UserProgress{}, &entity.QuizResultRecord{}))

	engine := quizengine.DefaultConfig()
	engine.AutoAdvanceDelay = 0

	ctx, cancel := context.WithCancel(context.Background())
	cache := newMemoryCache()
	resultRepo := postgres.NewQuizResultRepo(db)
	quizService := service.NewQuizService(
		ctx,
		static.NewWordRepo(testWords()),
		postgres.NewProgressRepo(db),
		resultRepo,
		cache,
		quizengine.NewGenerator(engine, nil),
		service.QuizServiceConfig{Engine: engine, ResultCacheTTL: time.Hour},
	)
	resultService := service.NewResultService(resultRepo, cache, quizService)
	t.Cleanup(func() {
		quizService.Shutdown()
		cancel()
		_ = sqlDB.Close()
	})

	jwtService, err := auth.NewJWTService("handler-secret", "", "")
	require.NoError(t, err)
	token, err := jwtService.GenerateToken("user-1", "user@example.com", time.Hour)
	require.NoError(t, err)

	quizHandler := NewQuizHandler(quizService, resultService)
	resultHandler := NewResultHandler(resultService)
	wordHandler := NewWordHandler(quizService)

	router := gin.New()
	api := router.Group("/api", middleware.NewAuthMiddleware(jwtService).RequireAuth())
	api.GET("/words", wordHandler.ListWords)
	api.GET("/progress", wordHandler.GetProgress)
	api.PUT("/progress", wordHandler.UpdateProgress)
	api.POST("/quizzes", quizHandler.StartQuiz)
	api.GET("/quizzes/current", quizHandler.GetCurrentQuiz)
	api.DELETE("/quizzes/current", quizHandler.ResetQuiz)
	api.POST("/quizzes/current/answer", quizHandler.Answer)
	api.POST("/quizzes/current/skip", quizHandler.Skip)
	api.POST("/quizzes/current/next", quizHandler.Next)
	api.POST("/quizzes/current/previous", quizHandler.Previous)
	api.POST("/quizzes/current/end", quizHandler.EndQuiz)
	api.GET("/quizzes/:id/result", middleware.ExtractUUIDParam("id", "quizID"), quizHandler.GetQuizResult)
	api.GET("/results", resultHandler.ListResults)
	api.GET("/results/export", resultHandler.ExportResults)

	return &handlerFixture{router: router, quizService: quizService, token: token}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+f.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

// currentCorrectAnswer читает правильный ответ напрямую из сервиса: клиенту он не отдаётся
func (f *handlerFixture) currentCorrectAnswer(t *testing.T) (string, string) {
	t.Helper()
	state, err := f.quizService.CurrentState("user-1")
	require.NoError(t, err)
	q := state.CurrentQuestion()
	require.NotNil(t, q)
	return q.ID, q.CorrectAnswer
}

func TestQuizHandler_StartQuiz(t *testing.T) {
	t.Run("Пустое тело - настройки по умолчанию", func(t *testing.T) {
		// Arrange
		f := newHandlerFixture(t)

		// Act
		w := f.do(t, http.MethodPost, "/api/quizzes", nil)

		// Assert
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := parseJSONResponse(t, w)
		assert.Equal(t, "in-progress", resp["status"])
		assert.Equal(t, float64(10), resp["total_questions"])
		current := resp["current_question"].(map[string]interface{})
		assert.NotContains(t, current, "correct_answer", "ответ не раскрывается до решения")
		assert.NotContains(t, current, "explanation")
	})

	t.Run("Неизвестная сложность", func(t *testing.T) {
		f := newHandlerFixture(t)

		w := f.do(t, http.MethodPost, "/api/quizzes", map[string]interface{}{"difficulty": "Z9"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Некорректный JSON", func(t *testing.T) {
		f := newHandlerFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/quizzes", strings.NewReader("{"))
		req.Header.Set("Authorization", "Bearer "+f.token)
		w := httptest.NewRecorder()

		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Без токена", func(t *testing.T) {
		f := newHandlerFixture(t)
		w := httptest.NewRecorder()

		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/quizzes", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestQuizHandler_NoActiveQuiz(t *testing.T) {
	f := newHandlerFixture(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/quizzes/current"},
		{http.MethodPost, "/api/quizzes/current/next"},
		{http.MethodPost, "/api/quizzes/current/end"},
		{http.MethodDelete, "/api/quizzes/current"},
	} {
		w := f.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
		assert.Equal(t, "no_active_quiz", parseJSONResponse(t, w)["error_type"], tc.path)
	}
}

func TestQuizHandler_FullFlow(t *testing.T) {
	// Arrange
	f := newHandlerFixture(t)
	w := f.do(t, http.MethodPost, "/api/quizzes", map[string]interface{}{"question_count": 2, "difficulty": "A1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quizID := parseJSONResponse(t, w)["quiz_id"].(string)

	// Act: правильный ответ на первый вопрос
	questionID, correct := f.currentCorrectAnswer(t)
	w = f.do(t, http.MethodPost, "/api/quizzes/current/answer", map[string]interface{}{
		"question_id": questionID, "answer": correct, "time_spent_ms": 1200,
	})

	// Assert
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["applied"])
	state := resp["state"].(map[string]interface{})
	first := state["questions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, true, first["is_correct"])
	assert.Equal(t, correct, first["correct_answer"], "после ответа правильный вариант раскрыт")

	// Повторный ответ игнорируется
	w = f.do(t, http.MethodPost, "/api/quizzes/current/answer", map[string]interface{}{"answer": "whatever"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, parseJSONResponse(t, w)["applied"])

	// Переход и пропуск второго вопроса
	w = f.do(t, http.MethodPost, "/api/quizzes/current/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), parseJSONResponse(t, w)["state"].(map[string]interface{})["current_index"])

	w = f.do(t, http.MethodPost, "/api/quizzes/current/skip", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, parseJSONResponse(t, w)["applied"])

	// Завершение
	w = f.do(t, http.MethodPost, "/api/quizzes/current/end", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := parseJSONResponse(t, w)
	assert.Equal(t, float64(1), result["correct_answers"])
	assert.Equal(t, float64(1), result["skipped_questions"])
	assert.Equal(t, float64(50), result["success_rate"])
	assert.Empty(t, w.Header().Get("X-Result-Persist-Warning"))

	// Снимок результата
	w = f.do(t, http.MethodGet, "/api/quizzes/"+quizID+"/result", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, quizID, parseJSONResponse(t, w)["quiz_id"])

	// История
	w = f.do(t, http.MethodGet, "/api/results?page=1&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := parseJSONResponse(t, w)
	assert.Equal(t, float64(1), history["total"])
	assert.Equal(t, float64(5), history["per_page"])

	// Правильно отвеченное слово отмечено выученным
	w = f.do(t, http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), parseJSONResponse(t, w)["learned_count"])
}

func TestQuizHandler_ResetQuiz(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/quizzes", nil).Code)

	w := f.do(t, http.MethodDelete, "/api/quizzes/current", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/quizzes/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuizHandler_GetQuizResult(t *testing.T) {
	f := newHandlerFixture(t)

	t.Run("Некорректный идентификатор", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/quizzes/not-a-uuid/result", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Неизвестная викторина", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/quizzes/3f2504e0-4f89-11d3-9a0c-0305e82c3301/result", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestWordHandler(t *testing.T) {
	f := newHandlerFixture(t)

	t.Run("Список слов уровня", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/words?level=a2", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := parseJSONResponse(t, w)
		assert.Equal(t, float64(3), resp["total"])
		assert.Equal(t, "A2", resp["level"])
	})

	t.Run("Неизвестный уровень", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/words?level=Z1", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Отметка выученного слова", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/progress", map[string]interface{}{"word": "Borrow", "learned": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = f.do(t, http.MethodGet, "/api/words?level=A2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		words := parseJSONResponse(t, w)["words"].([]interface{})
		learned := map[string]bool{}
		for _, raw := range words {
			word := raw.(map[string]interface{})
			learned[word["id"].(string)] = word["learned"].(bool)
		}
		assert.True(t, learned["borrow"])
		assert.False(t, learned["travel"])
	})

	t.Run("Неизвестное слово", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/progress", map[string]interface{}{"word": "zzz", "learned": true})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Без поля learned", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/progress", map[string]interface{}{"word": "apple"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestResultHandler_Export(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/quizzes", map[string]interface{}{"question_count": 1}).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/quizzes/current/skip", nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/quizzes/current/end", nil).Code)

	t.Run("CSV", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/results/export?format=csv", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		assert.Len(t, lines, 2, "заголовок и одна строка")
		assert.Contains(t, lines[0], "Дата")
	})

	t.Run("XLSX по умолчанию", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/results/export", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx - это zip-архив")
	})
}

func TestSanitizeForExcel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"=SUM(A1)", "'=SUM(A1)"},
		{"+1", "'+1"},
		{"-1", "'-1"},
		{"@cmd", "'@cmd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeForExcel(tt.in))
	}
}
