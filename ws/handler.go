package ws

import (
	"net/http"

	"platform_backend/internal/auth"
	"platform_backend/internal/logger"
	"platform_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const AccessTokenCookie = "accessToken"

// TokenParser проверяет access токен из cookie
type TokenParser interface {
	ParseToken(tokenStr, expectedType string) (*auth.Claims, error)
}

type Handler struct {
	registry *Registry
	tokens   TokenParser
	actions  ActionHandler
	upgrader websocket.Upgrader
}

func NewHandler(registry *Registry, tokens TokenParser, actions ActionHandler, allowedOrigins []string) *Handler {
	return &Handler{
		registry: registry,
		tokens:   tokens,
		actions:  actions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeWS - рукопожатие namespace /notifications.
// Без валидного accessToken в cookie соединение не поднимается.
func (h *Handler) ServeWS(c *gin.Context) {
	token, err := c.Cookie(AccessTokenCookie)
	if err != nil || token == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("access token cookie is missing"))
		return
	}

	claims, err := h.tokens.ParseToken(token, auth.TokenTypeAccess)
	if err != nil {
		apperrors.HandleError(c, apperrors.ErrInvalidToken)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "websocket upgrade error", "error", err)
		return
	}

	client := newClient(claims.UserID, conn, h.registry, h.actions)
	h.registry.Add(claims.UserID, client)

	go client.writePump()
	go client.readPump()

	_ = client.Emit("connected", gin.H{
		"userId":   claims.UserID,
		"socketId": client.SocketID(),
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
