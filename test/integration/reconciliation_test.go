package integration_test

import (
	"context"
	"testing"
	"time"

	"platform_backend/internal/clock"
	"platform_backend/internal/events"
	"platform_backend/internal/models"
	"platform_backend/internal/repositories"
	"platform_backend/internal/services"
	"platform_backend/internal/validator"
	"platform_backend/pkg/apperrors"
	"platform_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingEmitter struct {
	events []events.NotificationEvent
}

func (r *recordingEmitter) Notify(_ context.Context, ev events.NotificationEvent) {
	r.events = append(r.events, ev)
}

func newReconciliation(db *gorm.DB, emitter services.NotificationEmitter) services.ReconciliationService {
	return services.NewReconciliationService(
		repositories.NewTransactor(db),
		repositories.NewSubscriptionRepository(db),
		repositories.NewPaymentRepository(db),
		repositories.NewUserRepository(db),
		emitter,
		validator.New(),
		nil,
		clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	)
}

func TestReconciliation_PaymentSuccessActivatesIncomplete(t *testing.T) {
	db := helpers.OpenTestDB(t)
	ctx, tx := helpers.BeginTx(t, db)

	user := helpers.CreateUser(t, tx)
	sub := helpers.CreateSubscription(t, tx, user.ID, models.SubscriptionStatusIncomplete)
	emitter := &recordingEmitter{}
	svc := newReconciliation(db, emitter)

	err := svc.HandlePaymentSucceeded(ctx, events.PaymentSucceeded{BillingEvent: events.BillingEvent{
		EventID:                "evt_1",
		ExternalSubscriptionID: sub.ExternalSubscriptionID,
		Amount:                 1999,
		Currency:               "usd",
	}})
	require.NoError(t, err)

	var stored models.Subscription
	require.NoError(t, tx.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)

	var payments []models.Payment
	require.NoError(t, tx.Where("subscription_id = ?", sub.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusSucceeded, payments[0].Status)
	assert.Equal(t, int64(1999), payments[0].Amount)

	var reloaded models.User
	require.NoError(t, tx.First(&reloaded, "id = ?", user.ID).Error)
	assert.True(t, reloaded.HasActiveSubscription)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, models.NotificationTypePaymentSuccess, emitter.events[0].Type)
}

func TestReconciliation_UnknownSubscriptionWritesNothing(t *testing.T) {
	db := helpers.OpenTestDB(t)
	ctx, tx := helpers.BeginTx(t, db)

	var before int64
	require.NoError(t, tx.Model(&models.Payment{}).Count(&before).Error)

	emitter := &recordingEmitter{}
	err := newReconciliation(db, emitter).HandleSubscriptionPastDue(ctx, events.SubscriptionPastDue{
		BillingEvent: events.BillingEvent{EventID: "evt_2", ExternalSubscriptionID: "sub_missing"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	var after int64
	require.NoError(t, tx.Model(&models.Payment{}).Count(&after).Error)
	assert.Equal(t, before, after)
	assert.Empty(t, emitter.events)
}
