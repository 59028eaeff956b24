package repositories

import (
	"context"
	"errors"
	"time"

	"platform_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrDeviceNotFound = errors.New("device session not found")
)

type DeviceRepository interface {
	Create(ctx context.Context, device *models.Device) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.Device, error)
	FindByUser(ctx context.Context, userID string) ([]models.Device, error)
	// BumpTokenVersion увеличивает версию, только если текущая равна expected
	BumpTokenVersion(ctx context.Context, sessionID string, expected int, seenAt time.Time) error
	DeleteBySessionID(ctx context.Context, sessionID string) error
	DeleteByUserExcept(ctx context.Context, userID, keepSessionID string) (int64, error)
}

type DeviceRepositoryImpl struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &DeviceRepositoryImpl{db: db}
}

func (r *DeviceRepositoryImpl) Create(ctx context.Context, device *models.Device) error {
	return conn(ctx, r.db).Create(device).Error
}

func (r *DeviceRepositoryImpl) FindBySessionID(ctx context.Context, sessionID string) (*models.Device, error) {
	var device models.Device
	if err := conn(ctx, r.db).First(&device, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepositoryImpl) FindByUser(ctx context.Context, userID string) ([]models.Device, error) {
	var devices []models.Device
	err := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("last_seen_at DESC").
		Find(&devices).Error
	return devices, err
}

func (r *DeviceRepositoryImpl) BumpTokenVersion(ctx context.Context, sessionID string, expected int, seenAt time.Time) error {
	result := conn(ctx, r.db).Model(&models.Device{}).
		Where("session_id = ? AND token_version = ?", sessionID, expected).
		Updates(map[string]interface{}{
			"token_version": gorm.Expr("token_version + 1"),
			"last_seen_at":  seenAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepositoryImpl) DeleteBySessionID(ctx context.Context, sessionID string) error {
	result := conn(ctx, r.db).Where("session_id = ?", sessionID).Delete(&models.Device{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepositoryImpl) DeleteByUserExcept(ctx context.Context, userID, keepSessionID string) (int64, error) {
	result := conn(ctx, r.db).
		Where("user_id = ? AND session_id <> ?", userID, keepSessionID).
		Delete(&models.Device{})
	return result.RowsAffected, result.Error
}
