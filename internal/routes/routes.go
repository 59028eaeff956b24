package routes

import (
	"net/http"

	"platform_backend/internal/auth"
	"platform_backend/internal/handlers"
	"platform_backend/internal/logger"
	"platform_backend/internal/middleware"
	"platform_backend/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует HTTP и WebSocket маршруты основного сервиса
func RegisterRoutes(
	router *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.Handler,
	tokens *auth.TokenManager,
	sessions middleware.SessionLookup,
	registry *prometheus.Registry,
) {
	RegisterOps(router, registry)

	api := router.Group("/api/v1")
	authed := api.Group("", middleware.AuthMiddleware(tokens, sessions))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", appHandlers.AuthHandler.Register)
		authGroup.POST("/login", appHandlers.AuthHandler.Login)
		authGroup.POST("/refresh", appHandlers.AuthHandler.Refresh)
	}
	authed.POST("/auth/logout", appHandlers.AuthHandler.Logout)

	sessionRoutes := authed.Group("/sessions")
	{
		sessionRoutes.GET("", appHandlers.AuthHandler.ListSessions)
		sessionRoutes.DELETE("/:sessionId", appHandlers.AuthHandler.TerminateSession)
		sessionRoutes.DELETE("", appHandlers.AuthHandler.TerminateOtherSessions)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", appHandlers.NotificationHandler.List)
		notifications.PATCH("/:id/read", appHandlers.NotificationHandler.MarkAsRead)
		notifications.POST("/read-all", appHandlers.NotificationHandler.MarkAllAsRead)
		notifications.GET("/settings", appHandlers.NotificationHandler.GetSettings)
		notifications.PUT("/settings", appHandlers.NotificationHandler.UpdateSetting)
	}

	// токен проверяет сам ServeWS по cookie, до upgrade
	router.GET("/notifications", wsHandler.ServeWS)
	logger.Info("WebSocket route /notifications registered")
}

// RegisterOps - /health и /metrics, общие для обоих сервисов
func RegisterOps(router *gin.Engine, registry *prometheus.Registry) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
}

// RegisterPaymentRoutes - вход сервиса платежей, защищенный basic auth администратора
func RegisterPaymentRoutes(router *gin.Engine, webhook *handlers.BillingWebhookHandler, adminUser, adminPassword string, registry *prometheus.Registry) {
	RegisterOps(router, registry)

	hooks := router.Group("/webhooks", gin.BasicAuth(gin.Accounts{adminUser: adminPassword}))
	hooks.POST("/billing", webhook.Handle)
}
