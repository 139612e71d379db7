package repository

import (
	"time"
)

// CacheRepository кеш готовых результатов викторин в JSON
type CacheRepository interface {
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
}
