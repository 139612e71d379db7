package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vocab-api/internal/handler/dto"
	"github.com/yourusername/vocab-api/internal/service"
	"github.com/yourusername/vocab-api/internal/service/quizengine"
)

// QuizHandler обрабатывает запросы, связанные с викторинами
type QuizHandler struct {
	quizService   *service.QuizService
	resultService *service.ResultService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService, resultService *service.ResultService) *QuizHandler {
	return &QuizHandler{
		quizService:   quizService,
		resultService: resultService,
	}
}

// QuizActionResponse состояние после действия. applied=false, если действие было недопустимо и проигнорировано.
type QuizActionResponse struct {
	State   *dto.QuizStateResponse `json:"state"`
	Applied bool                   `json:"applied"`
}

// StartQuiz генерирует и запускает новую викторину
// POST /api/quizzes
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.StartQuizRequest
	// Пустое тело допустимо: берутся настройки по умолчанию
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.quizService.StartQuiz(userID, req.Settings())
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizStateResponse(state))
}

// GetCurrentQuiz возвращает состояние активной викторины
// GET /api/quizzes/current
func (h *QuizHandler) GetCurrentQuiz(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	state, err := h.quizService.CurrentState(userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizStateResponse(state))
}

// Answer отвечает на текущий вопрос
// POST /api/quizzes/current/answer
func (h *QuizHandler) Answer(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	state, applied, err := h.quizService.Answer(userID, req.QuestionID, req.Answer, req.TimeSpentMs)
	h.respondAction(c, state, applied, err)
}

// Skip пропускает текущий вопрос
// POST /api/quizzes/current/skip
func (h *QuizHandler) Skip(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	state, applied, err := h.quizService.Skip(userID, req.QuestionID)
	h.respondAction(c, state, applied, err)
}

// Next переходит к следующему вопросу
// POST /api/quizzes/current/next
func (h *QuizHandler) Next(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	state, applied, err := h.quizService.Next(userID)
	h.respondAction(c, state, applied, err)
}

// Previous переходит к предыдущему вопросу
// POST /api/quizzes/current/previous
func (h *QuizHandler) Previous(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	state, applied, err := h.quizService.Previous(userID)
	h.respondAction(c, state, applied, err)
}

// EndQuiz завершает викторину и возвращает результат
// POST /api/quizzes/current/end
func (h *QuizHandler) EndQuiz(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.quizService.EndQuiz(userID)
	if err != nil {
		if result == nil {
			h.handleQuizError(c, err)
			return
		}
		// Результат посчитан, но не сохранён: повторный вызов повторит сохранение
		log.Printf("[QuizHandler] Результат викторины %s не сохранён: %v", result.QuizID, err)
		c.Header("X-Result-Persist-Warning", "result was not saved, retry end to persist it")
	}

	c.JSON(http.StatusOK, result)
}

// ResetQuiz сбрасывает активную викторину
// DELETE /api/quizzes/current
func (h *QuizHandler) ResetQuiz(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.quizService.ResetQuiz(userID); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetQuizResult возвращает снимок результата викторины
// GET /api/quizzes/:id/result
func (h *QuizHandler) GetQuizResult(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	quizID := c.MustGet("quizID").(string)

	result, err := h.resultService.GetResult(userID, quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *QuizHandler) respondAction(c *gin.Context, state quizengine.State, applied bool, err error) {
	if err != nil {
		h.handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, QuizActionResponse{State: dto.NewQuizStateResponse(state), Applied: applied})
}

func (h *QuizHandler) handleQuizError(c *gin.Context, err error) {
	handleError(c, "QuizHandler", err)
}
