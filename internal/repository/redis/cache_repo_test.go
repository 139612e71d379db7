package redis

import (
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

func unreachableClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewCacheRepo(t *testing.T) {
	t.Run("Без клиента", func(t *testing.T) {
		repo, err := NewCacheRepo(nil, "vocab:")

		assert.Error(t, err)
		assert.Nil(t, repo)
	})

	t.Run("Ключи получают префикс", func(t *testing.T) {
		repo, err := NewCacheRepo(unreachableClient(t), "vocab:")

		require.NoError(t, err)
		assert.Equal(t, "vocab:quiz_result:42", repo.key("quiz_result:42"))
	})
}

func TestCacheRepo_UnavailableRedis(t *testing.T) {
	// Arrange
	repo, err := NewCacheRepo(unreachableClient(t), "vocab:")
	require.NoError(t, err)

	// Act
	setErr := repo.SetJSON("quiz_result:42", map[string]int{"score": 3}, time.Minute)
	var dest map[string]int
	getErr := repo.GetJSON("quiz_result:42", &dest)

	// Assert: недоступный Redis не выдаётся за промах кеша
	assert.Error(t, setErr)
	require.Error(t, getErr)
	assert.NotErrorIs(t, getErr, apperrors.ErrNotFound)
}

func TestCacheRepo_UnmarshalableValue(t *testing.T) {
	repo, err := NewCacheRepo(unreachableClient(t), "vocab:")
	require.NoError(t, err)

	err = repo.SetJSON("bad", make(chan int), time.Minute)

	assert.Error(t, err)
}
