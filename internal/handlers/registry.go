package handlers

// AppHandlers содержит все хэндлеры основного сервиса
type AppHandlers struct {
	AuthHandler         *AuthHandler
	NotificationHandler *NotificationHandler
}
