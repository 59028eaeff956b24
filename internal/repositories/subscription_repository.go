package repositories

import (
	"context"
	"errors"

	"platform_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	FindByID(ctx context.Context, id string) (*models.Subscription, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Subscription, error)
	FindByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	Update(ctx context.Context, subscription *models.Subscription) error
}

type SubscriptionRepositoryImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &SubscriptionRepositoryImpl{db: db}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscription *models.Subscription) error {
	return conn(ctx, r.db).Create(subscription).Error
}

func (r *SubscriptionRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := conn(ctx, r.db).First(&subscription, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *SubscriptionRepositoryImpl) FindByExternalID(ctx context.Context, externalID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := conn(ctx, r.db).
		Where("external_subscription_id = ?", externalID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *SubscriptionRepositoryImpl) FindByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subscriptions).Error
	return subscriptions, err
}

// Update перезаписывает изменяемые поля подписки.
// Проверки переходов статуса нет: последняя закоммиченная транзакция выигрывает.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, subscription *models.Subscription) error {
	result := conn(ctx, r.db).Model(&models.Subscription{}).
		Where("id = ?", subscription.ID).
		Updates(map[string]interface{}{
			"status":      subscription.Status,
			"start_date":  subscription.StartDate,
			"end_date":    subscription.EndDate,
			"canceled_at": subscription.CanceledAt,
			"auto_renew":  subscription.AutoRenew,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}
