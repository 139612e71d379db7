package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

// JWTCustomClaims содержит поля токена, выданного сервисом авторизации.
// Идентификатор пользователя передаётся в sub.
type JWTCustomClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя из sub
func (c *JWTCustomClaims) UserID() string {
	return c.Subject
}

// JWTService проверяет токены доступа, подписанные общим секретом (HS256)
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTService создает новый сервис JWT. issuer и audience проверяются, только если заданы.
func NewJWTService(secret, issuer, audience string) (*JWTService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &JWTService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}, nil
}

// GenerateToken подписывает токен для пользователя. Используется в тестах и локальной разработке,
// в продакшене токены выдаёт сервис авторизации.
func (s *JWTService) GenerateToken(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := &JWTCustomClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken проверяет подпись и срок действия токена и возвращает claims.
// Ошибки оборачивают ErrExpiredToken или ErrUnauthorized.
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			log.Printf("[JWT] Неожиданный метод подписи: %v", token.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				log.Printf("[JWT] Ошибка: Токен имеет неверный формат")
				return nil, fmt.Errorf("%w: token is malformed", apperrors.ErrUnauthorized)
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				log.Printf("[JWT] Ошибка: Токен истек для пользователя %s", claims.Subject)
				return nil, apperrors.ErrExpiredToken
			case ve.Errors&jwt.ValidationErrorNotValidYet != 0:
				log.Printf("[JWT] Ошибка: Токен еще не действителен")
				return nil, fmt.Errorf("%w: token not valid yet", apperrors.ErrUnauthorized)
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				log.Printf("[JWT] Ошибка: Неверная подпись токена для пользователя %s", claims.Subject)
				return nil, fmt.Errorf("%w: signature is invalid", apperrors.ErrUnauthorized)
			default:
				log.Printf("[JWT] Ошибка при разборе токена: %v", err)
				return nil, fmt.Errorf("%w: token validation failed", apperrors.ErrUnauthorized)
			}
		} else {
			log.Printf("[JWT] Ошибка при разборе токена: %v", err)
			return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
		}
	} else if !token.Valid {
		log.Printf("[JWT] Токен недействителен")
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", apperrors.ErrUnauthorized)
	}
	if s.issuer != "" && !claims.VerifyIssuer(s.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", apperrors.ErrUnauthorized)
	}
	if s.audience != "" && !claims.VerifyAudience(s.audience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", apperrors.ErrUnauthorized)
	}
	return claims, nil
}
