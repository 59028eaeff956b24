package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	BaseModelWithDeleted
	UserID  string           `gorm:"type:uuid;not null;index" json:"userId"`
	Type    NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Message string           `gorm:"not null" json:"message"`
	Data    datatypes.JSON   `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead  bool             `gorm:"default:false" json:"isRead"`
	ReadAt  *time.Time       `json:"readAt,omitempty"`
}

// NotificationSettings - одна строка на пару (пользователь, тип).
// Отсутствие строки означает, что тип включен.
type NotificationSettings struct {
	BaseModel
	UserID    string           `gorm:"type:uuid;not null;uniqueIndex:idx_notification_settings_user_type" json:"userId"`
	Type      NotificationType `gorm:"type:varchar(32);not null;uniqueIndex:idx_notification_settings_user_type" json:"type"`
	IsEnabled bool             `gorm:"not null;default:true" json:"isEnabled"`
}
