package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	"github.com/yourusername/vocab-api/internal/handler/dto"
	"github.com/yourusername/vocab-api/internal/service"
)

// WordHandler обрабатывает запросы к словарю и прогрессу пользователя
type WordHandler struct {
	quizService *service.QuizService
}

// NewWordHandler создает новый обработчик словаря
func NewWordHandler(quizService *service.QuizService) *WordHandler {
	return &WordHandler{quizService: quizService}
}

// ListWords возвращает слова уровня с отметками выученных
// GET /api/words?level=A1
func (h *WordHandler) ListWords(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	level := strings.ToUpper(strings.TrimSpace(c.Query("level")))
	if level == "" || strings.EqualFold(level, entity.DifficultyMixed) {
		level = entity.DifficultyMixed
	}

	words, err := h.quizService.Words(level)
	if err != nil {
		handleError(c, "WordHandler", err)
		return
	}

	progress, err := h.quizService.Progress(userID)
	if err != nil {
		handleError(c, "WordHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewWordListResponse(words, level, dto.LearnedSet(progress)))
}

// GetProgress возвращает прогресс пользователя по словам
// GET /api/progress
func (h *WordHandler) GetProgress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	progress, err := h.quizService.Progress(userID)
	if err != nil {
		handleError(c, "WordHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewProgressSummaryResponse(progress))
}

// UpdateProgress отмечает слово выученным или снимает отметку
// PUT /api/progress
func (h *WordHandler) UpdateProgress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	if err := h.quizService.SetLearned(userID, req.Word, *req.Learned); err != nil {
		handleError(c, "WordHandler", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"word": strings.ToLower(strings.TrimSpace(req.Word)), "learned": *req.Learned})
}
