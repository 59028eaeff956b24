package repositories

import (
	"context"

	"platform_backend/pkg/contextkeys"

	"gorm.io/gorm"
)

// Transactor открывает транзакцию и кладет ее в context.
// Репозитории, вызванные с этим context, работают внутри транзакции.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type GormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Вложенный вызов переиспользует уже открытую транзакцию
	if _, ok := ctx.Value(contextkeys.DBContextKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, contextkeys.DBContextKey, tx))
	})
}

// conn возвращает транзакцию из context, если она есть, иначе базовое соединение
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(contextkeys.DBContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
