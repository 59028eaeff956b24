package apperrors

import (
	"platform_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler - обработчик ошибок для Gin
type GinErrorHandler struct {
	Debug bool
}

// HandleGinError - основная логика обработки ошибок для Gin
func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}
	if appErr.HTTPCode >= 500 && !h.Debug {
		// В продакшене скрываем детали
		appErr = New(appErr.Code, appErr.Domain, "Internal server error", appErr.HTTPCode)
	}

	if appErr.HTTPCode >= 500 {
		logger.CtxWithError(c.Request.Context(), "server error", err)
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

var defaultHandler = &GinErrorHandler{Debug: false}

// SetDebug включает вывод деталей 5xx (development)
func SetDebug(debug bool) {
	defaultHandler.Debug = debug
}

// HandleError - быстрая функция-помощник для Gin
func HandleError(c *gin.Context, err error) {
	defaultHandler.HandleGinError(c, err)
}
