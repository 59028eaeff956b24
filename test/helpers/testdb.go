package helpers

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"platform_backend/internal/app"
	"platform_backend/internal/auth"
	"platform_backend/internal/models"
	"platform_backend/pkg/contextkeys"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	dbOnce sync.Once
	testDB *gorm.DB
	dbErr  error
)

// OpenTestDB подключается к TEST_DATABASE_URL (или DATABASE_URL) и мигрирует схему один раз.
// Без переменной тест пропускается.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skipping database test")
	}

	dbOnce.Do(func() {
		testDB, dbErr = app.OpenDatabase(dsn, "test")
		if dbErr == nil {
			dbErr = app.Migrate(testDB)
		}
	})
	require.NoError(t, dbErr, "test database setup failed")
	return testDB
}

// BeginTx открывает транзакцию и кладет ее в context; откат выполняется в t.Cleanup.
// Репозитории и Transactor, получившие этот context, работают внутри нее.
func BeginTx(t *testing.T, db *gorm.DB) (context.Context, *gorm.DB) {
	t.Helper()

	tx := db.Begin()
	require.NoError(t, tx.Error)
	t.Cleanup(func() { tx.Rollback() })

	return context.WithValue(context.Background(), contextkeys.DBContextKey, tx), tx
}

// CreateUser создает пользователя с паролем password123
func CreateUser(t *testing.T, tx *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Email:        fmt.Sprintf("user_%s@test.com", uuid.NewString()[:8]),
		Name:         "Test User",
		PasswordHash: hash,
	}
	require.NoError(t, tx.Create(user).Error)
	return user
}

// CreateSubscription создает подписку с уникальным внешним ID
func CreateSubscription(t *testing.T, tx *gorm.DB, userID string, status models.SubscriptionStatus) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		UserID:                 userID,
		PlanType:               models.PlanTypePremium,
		Status:                 status,
		PaymentMethod:          models.PaymentMethodCard,
		ExternalSubscriptionID: "sub_" + uuid.NewString(),
		AutoRenew:              true,
	}
	require.NoError(t, tx.Create(sub).Error)
	return sub
}

// CreateNotification создает уведомление с заданным возрастом
func CreateNotification(t *testing.T, tx *gorm.DB, userID string, createdAt time.Time) *models.Notification {
	t.Helper()

	n := &models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeSubscriptionUpdate,
		Message: "test notification",
	}
	n.CreatedAt = createdAt
	n.UpdatedAt = createdAt
	require.NoError(t, tx.Create(n).Error)
	return n
}
