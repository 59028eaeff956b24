package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"platform_backend/internal/logger"
	"platform_backend/internal/models"
	"platform_backend/internal/repositories"

	"github.com/redis/go-redis/v9"
)

const (
	settingsKeyPrefix = "notification_settings:"
	// отсутствующая строка кешируется как "включено", иначе каждое уведомление шло бы в БД
	missingSettingMarker = "-"
)

// SettingsRepository - NotificationSettingsRepository с кешем в Redis.
// Ошибки Redis не ломают чтение: запрос уходит в базу.
type SettingsRepository struct {
	next   repositories.NotificationSettingsRepository
	client redis.Cmdable
	ttl    time.Duration
}

func NewSettingsRepository(next repositories.NotificationSettingsRepository, client redis.Cmdable, ttl time.Duration) *SettingsRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SettingsRepository{next: next, client: client, ttl: ttl}
}

func settingsKey(userID string, notificationType models.NotificationType) string {
	return fmt.Sprintf("%s%s:%s", settingsKeyPrefix, userID, notificationType)
}

func (r *SettingsRepository) Find(ctx context.Context, userID string, notificationType models.NotificationType) (*models.NotificationSettings, error) {
	key := settingsKey(userID, notificationType)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == missingSettingMarker {
			return nil, repositories.ErrSettingsNotFound
		}
		var settings models.NotificationSettings
		if err := json.Unmarshal(data, &settings); err == nil {
			return &settings, nil
		}
		logger.CtxWarn(ctx, "corrupted settings cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		logger.CtxWarn(ctx, "settings cache read failed", "key", key, "error", err)
	}

	settings, err := r.next.Find(ctx, userID, notificationType)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			r.store(ctx, key, []byte(missingSettingMarker))
		}
		return nil, err
	}

	if data, err := json.Marshal(settings); err == nil {
		r.store(ctx, key, data)
	}
	return settings, nil
}

func (r *SettingsRepository) FindByUser(ctx context.Context, userID string) ([]models.NotificationSettings, error) {
	return r.next.FindByUser(ctx, userID)
}

// Upsert пишет в базу и сбрасывает ключ
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.NotificationSettings) error {
	if err := r.next.Upsert(ctx, settings); err != nil {
		return err
	}
	key := settingsKey(settings.UserID, settings.Type)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		logger.CtxWarn(ctx, "settings cache invalidation failed", "key", key, "error", err)
	}
	return nil
}

func (r *SettingsRepository) store(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		logger.CtxWarn(ctx, "settings cache write failed", "key", key, "error", err)
	}
}

var _ repositories.NotificationSettingsRepository = (*SettingsRepository)(nil)
