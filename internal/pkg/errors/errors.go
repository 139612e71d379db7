package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный или просроченный токен).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда токен истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния (например, действие над уже завершённой викториной).
	ErrConflict = errors.New("resource state conflict")
)

// Ошибки предметной области
var (
	// ErrNoWordsAtLevel пул слов для выбранной сложности пуст.
	ErrNoWordsAtLevel = errors.New("no words at this level")

	// ErrNoWordsAvailable пуст и запасной (демо) пул слов.
	ErrNoWordsAvailable = errors.New("no words available")

	// ErrNoActiveQuiz у пользователя нет активной викторины.
	ErrNoActiveQuiz = errors.New("no active quiz")

	// ErrConnectionFailed не удалось установить голосовую сессию.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrSessionClosed операция над уже закрытой голосовой сессией.
	ErrSessionClosed = errors.New("session closed")
)
