package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)

	access, err := m.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)
	claims, err := m.ParseToken(access, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "s1", claims.SessionID)

	refresh, err := m.GenerateRefreshToken("u1", "s1", 3)
	require.NoError(t, err)
	claims, err = m.ParseToken(refresh, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, 3, claims.TokenVersion)
}

func TestTokenManager_WrongType(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)
	refresh, err := m.GenerateRefreshToken("u1", "s1", 1)
	require.NoError(t, err)

	_, err = m.ParseToken(refresh, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTokenManager_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewTokenManager("secret", time.Minute, time.Hour).WithClock(func() time.Time { return now })
	access, err := m.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.ParseToken(access, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_ForeignSecret(t *testing.T) {
	access, err := NewTokenManager("one", time.Minute, time.Hour).GenerateAccessToken("u1", "s1")
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Minute, time.Hour).ParseToken(access, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("password123", hash))
	assert.False(t, CheckPasswordHash("password124", hash))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordLength)
	assert.ErrorIs(t, ValidatePassword(string(make([]byte, 73))), ErrPasswordLength)
}
