package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-api/internal/config"
)

func TestRedisOptions(t *testing.T) {
	t.Run("Single берёт первый адрес", func(t *testing.T) {
		opts, err := redisOptions(config.RedisConfig{Addrs: []string{"a:6379", "b:6379"}, MinRetryBackoff: 10})

		require.NoError(t, err)
		assert.Equal(t, []string{"a:6379"}, opts.Addrs)
		assert.Equal(t, 10*time.Millisecond, opts.MinRetryBackoff)
	})

	t.Run("Addr как запасной вариант", func(t *testing.T) {
		opts, err := redisOptions(config.RedisConfig{Mode: "single", Addr: "localhost:6379"})

		require.NoError(t, err)
		assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
	})

	t.Run("Sentinel без мастера", func(t *testing.T) {
		_, err := redisOptions(config.RedisConfig{Mode: "sentinel", Addrs: []string{"s:26379"}})
		assert.Error(t, err)
	})

	t.Run("Cluster сохраняет все адреса", func(t *testing.T) {
		opts, err := redisOptions(config.RedisConfig{Mode: "cluster", Addrs: []string{"a:1", "b:2", "c:3"}})

		require.NoError(t, err)
		assert.Len(t, opts.Addrs, 3)
	})

	t.Run("Неизвестный режим", func(t *testing.T) {
		_, err := redisOptions(config.RedisConfig{Mode: "ring", Addr: "a:1"})
		assert.Error(t, err)
	})

	t.Run("Нет адресов", func(t *testing.T) {
		_, err := redisOptions(config.RedisConfig{})
		assert.Error(t, err)
	})
}

func TestNewUniversalRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewUniversalRedisClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1", MaxRetries: -1})

	assert.Error(t, err)
}
