package dto

import "platform_backend/internal/models"

type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Unread        int64                 `json:"unread"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

type UpdateNotificationSettingRequest struct {
	Type      models.NotificationType `json:"type" validate:"required,is-notification-type"`
	IsEnabled *bool                   `json:"isEnabled" validate:"required"`
}
