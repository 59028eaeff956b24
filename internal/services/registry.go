package services

// ServiceContainer содержит сервисы основного приложения
type ServiceContainer struct {
	AuthService           AuthService
	NotificationService   NotificationService
	ReconciliationService ReconciliationService
	CounterService        CounterService
	EmailService          *EmailService
}
