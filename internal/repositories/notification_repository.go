package repositories

import (
	"context"
	"errors"
	"time"

	"platform_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationCriteria - фильтр выдачи уведомлений пользователя
type NotificationCriteria struct {
	UnreadOnly bool
	Type       models.NotificationType
	Limit      int
	Offset     int
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	FindByUser(ctx context.Context, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error)
	MarkAsRead(ctx context.Context, userID, id string, at time.Time) (bool, error)
	MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)

	// Архивация и очистка
	CountArchivable(ctx context.Context, createdBefore time.Time) (int64, error)
	Archive(ctx context.Context, createdBefore time.Time) (int64, error)
	CountPurgeable(ctx context.Context, createdBefore time.Time) (int64, error)
	Purge(ctx context.Context, createdBefore time.Time) (int64, error)
}

type NotificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return conn(ctx, r.db).Create(notification).Error
}

func (r *NotificationRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	if err := conn(ctx, r.db).First(&notification, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) FindByUser(ctx context.Context, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	query := conn(ctx, r.db).Model(&models.Notification{}).Where("user_id = ?", userID)
	if criteria.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := criteria.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(criteria.Offset).
		Find(&notifications).Error
	return notifications, total, err
}

// MarkAsRead возвращает true, только если уведомление было непрочитанным.
// Уже прочитанное уведомление пользователя не ошибка.
func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	result := conn(ctx, r.db).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var owned int64
	if err := conn(ctx, r.db).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&owned).Error; err != nil {
		return false, err
	}
	if owned == 0 {
		return false, ErrNotificationNotFound
	}
	return false, nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result := conn(ctx, r.db).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// CountArchivable - живые (не удаленные) уведомления старше порога
func (r *NotificationRepositoryImpl) CountArchivable(ctx context.Context, createdBefore time.Time) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Notification{}).
		Where("created_at < ?", createdBefore).
		Count(&count).Error
	return count, err
}

// Archive делает soft delete. Default scope gorm пропускает уже удаленные строки.
func (r *NotificationRepositoryImpl) Archive(ctx context.Context, createdBefore time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Where("created_at < ?", createdBefore).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) CountPurgeable(ctx context.Context, createdBefore time.Time) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Unscoped().Model(&models.Notification{}).
		Where("deleted_at IS NOT NULL AND created_at < ?", createdBefore).
		Count(&count).Error
	return count, err
}

// Purge физически удаляет архивированные уведомления старше порога
func (r *NotificationRepositoryImpl) Purge(ctx context.Context, createdBefore time.Time) (int64, error) {
	result := conn(ctx, r.db).Unscoped().
		Where("deleted_at IS NOT NULL AND created_at < ?", createdBefore).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
