package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vocab-api/internal/middleware"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

// handleError переводит ошибки сервисов в HTTP-ответ
func handleError(c *gin.Context, component string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNoActiveQuiz):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_type": "no_active_quiz"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrNoWordsAtLevel), errors.Is(err, apperrors.ErrNoWordsAvailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_type": "no_words"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_type": "validation"})
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrConnectionFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "error_type": "connection_failed", "retryable": true})
	default:
		log.Printf("[%s] Internal server error: %v", component, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// requireUserID достаёт пользователя из контекста или отвечает 401
func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
		return "", false
	}
	return userID, true
}
