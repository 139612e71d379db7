package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("  ", "", "")
	assert.Error(t, err)
}

func TestJWTService_ParseToken(t *testing.T) {
	svc, err := NewJWTService("test-secret", "vocab-auth", "vocab-api")
	require.NoError(t, err)

	t.Run("Валидный токен", func(t *testing.T) {
		// Arrange
		token, err := svc.GenerateToken("user-1", "user@example.com", time.Hour)
		require.NoError(t, err)

		// Act
		claims, err := svc.ParseToken(token)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, "user@example.com", claims.Email)
	})

	t.Run("Истекший токен", func(t *testing.T) {
		token, err := svc.GenerateToken("user-1", "", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ParseToken(token)

		assert.ErrorIs(t, err, apperrors.ErrExpiredToken)
	})

	t.Run("Чужой секрет", func(t *testing.T) {
		other, err := NewJWTService("other-secret", "vocab-auth", "vocab-api")
		require.NoError(t, err)
		token, err := other.GenerateToken("user-1", "", time.Hour)
		require.NoError(t, err)

		_, err = svc.ParseToken(token)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Неверный формат", func(t *testing.T) {
		_, err := svc.ParseToken("not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Другой издатель", func(t *testing.T) {
		other, err := NewJWTService("test-secret", "someone-else", "vocab-api")
		require.NoError(t, err)
		token, err := other.GenerateToken("user-1", "", time.Hour)
		require.NoError(t, err)

		_, err = svc.ParseToken(token)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Токен без sub", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Issuer:    "vocab-auth",
			Audience:  jwt.ClaimStrings{"vocab-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = svc.ParseToken(token)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Алгоритм none отклоняется", func(t *testing.T) {
		claims := &JWTCustomClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ParseToken(token)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}
