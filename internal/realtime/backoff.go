package realtime

import (
	"context"
	"errors"
	"log"
	"time"

	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

// BackoffStrategy решает, повторять ли подключение и через сколько
type BackoffStrategy interface {
	// Next возвращает задержку перед попыткой attempt (начиная с 1) и false, если попыток больше нет
	Next(attempt int) (time.Duration, bool)
}

// ExponentialBackoff экспоненциальная задержка с верхней границей
type ExponentialBackoff struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultBackoff возвращает стратегию по умолчанию: 1с, 2с, 4с
func DefaultBackoff() ExponentialBackoff {
	return ExponentialBackoff{
		Initial:     time.Second,
		Max:         10 * time.Second,
		Multiplier:  2,
		MaxAttempts: 3,
	}
}

// Next реализует BackoffStrategy
func (b ExponentialBackoff) Next(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > b.MaxAttempts {
		return 0, false
	}
	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(b.Initial)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
		if b.Max > 0 && delay >= float64(b.Max) {
			return b.Max, true
		}
	}
	return time.Duration(delay), true
}

// RetryNotify вызывается перед каждой повторной попыткой
type RetryNotify func(attempt int, delay time.Duration, err error)

// ConnectWithRetry подключает новые сессии, пока подключение не удастся или стратегия
// не исчерпается. Каждая попытка использует новую сессию: закрытая сессия не переиспользуется.
// strategy == nil означает одну попытку.
func ConnectWithRetry(ctx context.Context, strategy BackoffStrategy, newSession func() *Session, onRetry RetryNotify) (*Session, error) {
	return connectLoop(ctx, strategy, newSession, onRetry, 0, nil)
}

// Reconnect восстанавливает оборвавшееся соединение. В отличие от ConnectWithRetry
// первая попытка тоже идёт по стратегии: с задержкой и уведомлением onRetry.
// cause причина обрыва, она же возвращается, если strategy == nil.
func Reconnect(ctx context.Context, strategy BackoffStrategy, newSession func() *Session, onRetry RetryNotify, cause error) (*Session, error) {
	return connectLoop(ctx, strategy, newSession, onRetry, 1, cause)
}

func connectLoop(ctx context.Context, strategy BackoffStrategy, newSession func() *Session, onRetry RetryNotify, first int, lastErr error) (*Session, error) {
	for attempt := first; ; attempt++ {
		if attempt > 0 {
			if strategy == nil {
				return nil, lastErr
			}
			delay, ok := strategy.Next(attempt)
			if !ok {
				return nil, lastErr
			}
			if onRetry != nil {
				onRetry(attempt, delay, lastErr)
			}
			log.Printf("[RealtimeSession] Повторное подключение #%d через %v: %v", attempt, delay, lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		session := newSession()
		err := session.Connect(ctx)
		if err == nil {
			return session, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		// Отсутствие ключа не исправится повтором
		if errors.Is(err, ErrMissingCredential) || errors.Is(err, apperrors.ErrSessionClosed) {
			return nil, err
		}
	}
}
