package models

// All возвращает все модели, которыми владеет основное приложение.
// Используется тестовыми хелперами для AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Subscription{},
		&Payment{},
		&Notification{},
		&NotificationSettings{},
		&Device{},
		&Counter{},
	}
}
