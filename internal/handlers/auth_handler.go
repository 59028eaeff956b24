package handlers

import (
	"net/http"

	"platform_backend/internal/middleware"
	"platform_backend/internal/services"
	"platform_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*BaseHandler
	service      services.AuthService
	secureCookie bool
	cookieMaxAge int // секунды
}

func NewAuthHandler(base *BaseHandler, service services.AuthService, secureCookie bool, cookieMaxAge int) *AuthHandler {
	return &AuthHandler{
		BaseHandler:  base,
		service:      service,
		secureCookie: secureCookie,
		cookieMaxAge: cookieMaxAge,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login выдает токены и ставит accessToken cookie для websocket рукопожатия
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	client := dto.ClientInfo{IP: c.ClientIP(), DeviceName: c.Request.UserAgent()}
	resp, err := h.service.Login(c.Request.Context(), &req, client)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.setAccessCookie(c, resp.AccessToken)
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.setAccessCookie(c, resp.AccessToken)
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	if err := h.service.Logout(c.Request.Context(), userID, middleware.GetSessionID(c)); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) ListSessions(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	sessions, err := h.service.ListSessions(c.Request.Context(), userID, middleware.GetSessionID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *AuthHandler) TerminateSession(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	if err := h.service.TerminateSession(c.Request.Context(), userID, c.Param("sessionId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) TerminateOtherSessions(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	removed, err := h.service.TerminateOtherSessions(c.Request.Context(), userID, middleware.GetSessionID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"terminated": removed})
}

func (h *AuthHandler) setAccessCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, token, h.cookieMaxAge, "/", "", h.secureCookie, true)
}
