package middleware

import (
	"context"
	"errors"
	"strings"

	"platform_backend/internal/auth"
	"platform_backend/internal/logger"
	"platform_backend/internal/models"
	"platform_backend/internal/repositories"
	"platform_backend/pkg/apperrors"
	"platform_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// AccessTokenCookie - cookie, в которой браузер присылает access токен
const AccessTokenCookie = "accessToken"

// SessionLookup - источник активных сессий (строк Device)
type SessionLookup interface {
	FindBySessionID(ctx context.Context, sessionID string) (*models.Device, error)
}

// AuthMiddleware принимает access токен из заголовка Authorization или из cookie.
// Если sessions задан, токен завершенной сессии отклоняется до истечения его срока.
func AuthMiddleware(tokens *auth.TokenManager, sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			tokenStr, _ = c.Cookie(AccessTokenCookie)
		}
		if tokenStr == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Access token is missing"))
			return
		}

		claims, err := tokens.ParseToken(tokenStr, auth.TokenTypeAccess)
		if err != nil {
			apperrors.HandleError(c, apperrors.ErrInvalidToken)
			return
		}

		if sessions != nil {
			device, err := sessions.FindBySessionID(c.Request.Context(), claims.SessionID)
			if errors.Is(err, repositories.ErrDeviceNotFound) || (err == nil && device.UserID != claims.UserID) {
				logger.CtxWarn(c.Request.Context(), "Access token for terminated session", "session_id", claims.SessionID)
				apperrors.HandleError(c, apperrors.ErrInvalidToken)
				return
			}
			if err != nil {
				apperrors.HandleError(c, apperrors.ErrDatabase(err))
				return
			}
		}

		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.SessionIDKey, claims.SessionID)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(contextkeys.UserIDKey)
}

func GetSessionID(c *gin.Context) string {
	return c.GetString(contextkeys.SessionIDKey)
}
