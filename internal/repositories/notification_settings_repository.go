package repositories

import (
	"context"
	"errors"

	"platform_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSettingsNotFound = errors.New("notification settings not found")
)

type NotificationSettingsRepository interface {
	Find(ctx context.Context, userID string, notificationType models.NotificationType) (*models.NotificationSettings, error)
	FindByUser(ctx context.Context, userID string) ([]models.NotificationSettings, error)
	Upsert(ctx context.Context, settings *models.NotificationSettings) error
}

type NotificationSettingsRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationSettingsRepository(db *gorm.DB) NotificationSettingsRepository {
	return &NotificationSettingsRepositoryImpl{db: db}
}

func (r *NotificationSettingsRepositoryImpl) Find(ctx context.Context, userID string, notificationType models.NotificationType) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := conn(ctx, r.db).
		Where("user_id = ? AND type = ?", userID, notificationType).
		First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return &settings, nil
}

func (r *NotificationSettingsRepositoryImpl) FindByUser(ctx context.Context, userID string) ([]models.NotificationSettings, error) {
	var settings []models.NotificationSettings
	err := conn(ctx, r.db).Where("user_id = ?", userID).Find(&settings).Error
	return settings, err
}

// Upsert опирается на уникальный индекс (user_id, type)
func (r *NotificationSettingsRepositoryImpl) Upsert(ctx context.Context, settings *models.NotificationSettings) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_enabled", "updated_at"}),
	}).Create(settings).Error
}
