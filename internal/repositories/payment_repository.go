package repositories

import (
	"context"

	"platform_backend/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository - платежи только добавляются, обновления нет
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindBySubscription(ctx context.Context, subscriptionID string) ([]models.Payment, error)
	FindByUser(ctx context.Context, userID string) ([]models.Payment, error)
}

type PaymentRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &PaymentRepositoryImpl{db: db}
}

func (r *PaymentRepositoryImpl) Create(ctx context.Context, payment *models.Payment) error {
	return conn(ctx, r.db).Create(payment).Error
}

func (r *PaymentRepositoryImpl) FindBySubscription(ctx context.Context, subscriptionID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := conn(ctx, r.db).
		Where("subscription_id = ?", subscriptionID).
		Order("billing_date DESC").
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepositoryImpl) FindByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("billing_date DESC").
		Find(&payments).Error
	return payments, err
}
