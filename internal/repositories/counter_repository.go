package repositories

import (
	"context"
	"errors"

	"platform_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CounterRepository interface {
	Get(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, value int64) error
}

type CounterRepositoryImpl struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &CounterRepositoryImpl{db: db}
}

// Get возвращает 0 для ключа, которого еще нет
func (r *CounterRepositoryImpl) Get(ctx context.Context, key string) (int64, error) {
	var counter models.Counter
	err := conn(ctx, r.db).First(&counter, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (r *CounterRepositoryImpl) Set(ctx context.Context, key string, value int64) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Counter{Key: key, Value: value}).Error
}
