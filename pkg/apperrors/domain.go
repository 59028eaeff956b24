package apperrors

import (
	"net/http"
)

// =========================================================================
// Фабрики для оборачивания ошибок репозиториев
// =========================================================================

// ErrNotFound - ресурс не найден (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrSubscriptionNotFound - подписка с таким внешним ID отсутствует
func ErrSubscriptionNotFound(err error, externalID string) *AppError {
	return Wrap(err, CodeNotFound, "subscription", "Subscription not found", http.StatusNotFound).
		WithDetails(map[string]string{"external_subscription_id": externalID})
}

// ErrSessionNotFound - сессия устройства не найдена
func ErrSessionNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "device", "Session not found", http.StatusNotFound)
}

// ErrDatabase - ошибка БД, которую не нужно показывать клиенту
func ErrDatabase(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "database", "Database error", http.StatusInternalServerError)
}

// ErrBroker - брокер сообщений недоступен
func ErrBroker(err error) *AppError {
	return Wrap(err, CodeExternalServiceError, "broker", "Message broker unavailable", http.StatusServiceUnavailable)
}

// =========================================================================
// Предопределенные ошибки
// =========================================================================

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrRefreshTokenReused - старый refresh токен предъявлен повторно, сессия закрывается
var ErrRefreshTokenReused = New(
	CodeTokenReused,
	"auth",
	"Refresh token has already been used",
	http.StatusUnauthorized,
)

var ErrUnknownEventType = New(
	CodeBadRequest,
	"billing",
	"Unknown billing event type",
	http.StatusBadRequest,
)

var ErrEmailTaken = New(
	CodeConflict,
	"user",
	"User with this email already exists",
	http.StatusConflict,
)
