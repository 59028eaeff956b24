package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims - полезная нагрузка access и refresh токенов.
// sid и ver привязывают токен к сессии устройства и ее версии.
type Claims struct {
	UserID       string `json:"uid"`
	SessionID    string `json:"sid,omitempty"`
	TokenVersion int    `json:"ver,omitempty"`
	TokenType    string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock подменяет источник времени (тесты)
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

func (m *TokenManager) GenerateAccessToken(userID, sessionID string) (string, error) {
	return m.sign(Claims{
		UserID:    userID,
		SessionID: sessionID,
		TokenType: TokenTypeAccess,
	}, m.accessTTL)
}

func (m *TokenManager) GenerateRefreshToken(userID, sessionID string, version int) (string, error) {
	return m.sign(Claims{
		UserID:       userID,
		SessionID:    sessionID,
		TokenVersion: version,
		TokenType:    TokenTypeRefresh,
	}, m.refreshTTL)
}

func (m *TokenManager) sign(claims Claims, ttl time.Duration) (string, error) {
	now := m.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.Subject = claims.UserID

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись (только HMAC), срок и тип токена
func (m *TokenManager) ParseToken(tokenStr, expectedType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if expectedType != "" && claims.TokenType != expectedType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
