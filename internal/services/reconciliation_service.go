package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"platform_backend/internal/clock"
	"platform_backend/internal/events"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"
	"platform_backend/internal/models"
	"platform_backend/internal/repositories"
	"platform_backend/internal/validator"
	"platform_backend/pkg/apperrors"
)

// NotificationEmitter принимает событие уведомления после коммита сверки
type NotificationEmitter interface {
	Notify(ctx context.Context, ev events.NotificationEvent)
}

// ReconciliationService применяет события биллинга к подпискам.
// Переходы статуса - простое присваивание без таблицы переходов:
// при конкурентных событиях по одной подписке побеждает последний коммит.
type ReconciliationService interface {
	HandlePaymentSucceeded(ctx context.Context, ev events.PaymentSucceeded) error
	HandlePaymentFailed(ctx context.Context, ev events.PaymentFailed) error
	HandleSubscriptionCancelled(ctx context.Context, ev events.SubscriptionCancelled) error
	HandleSubscriptionExpired(ctx context.Context, ev events.SubscriptionExpired) error
	HandleSubscriptionPastDue(ctx context.Context, ev events.SubscriptionPastDue) error
	HandleAutoPaymentCancelled(ctx context.Context, ev events.AutoPaymentCancelled) error
}

type reconciliationService struct {
	tx               repositories.Transactor
	subscriptionRepo repositories.SubscriptionRepository
	paymentRepo      repositories.PaymentRepository
	userRepo         repositories.UserRepository
	notifier         NotificationEmitter
	validator        *validator.Validator
	metrics          *metrics.Metrics
	clock            clock.Clock
}

func NewReconciliationService(
	tx repositories.Transactor,
	subscriptionRepo repositories.SubscriptionRepository,
	paymentRepo repositories.PaymentRepository,
	userRepo repositories.UserRepository,
	notifier NotificationEmitter,
	v *validator.Validator,
	m *metrics.Metrics,
	c clock.Clock,
) ReconciliationService {
	return &reconciliationService{
		tx:               tx,
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		validator:        v,
		metrics:          m,
		clock:            c,
	}
}

// transition описывает один use-case сверки
type transition struct {
	event         string
	apply         func(sub *models.Subscription, ev events.BillingEvent, now time.Time)
	paymentStatus models.PaymentStatus
	// activeFlag - новое значение User.HasActiveSubscription, nil - не трогать
	activeFlag   *bool
	notifyType   models.NotificationType
	notifyFormat string
}

func flag(v bool) *bool { return &v }

func (s *reconciliationService) HandlePaymentSucceeded(ctx context.Context, ev events.PaymentSucceeded) error {
	return s.reconcile(ctx, ev.BillingEvent, transition{
		event: ev.RoutingKey(),
		apply: func(sub *models.Subscription, ev events.BillingEvent, now time.Time) {
			sub.Status = models.SubscriptionStatusActive
			start := now
			if ev.PeriodStart != nil {
				start = *ev.PeriodStart
			}
			sub.StartDate = &start
			if ev.PeriodEnd != nil {
				end := *ev.PeriodEnd
				sub.EndDate = &end
			}
		},
		paymentStatus: models.PaymentStatusSucceeded,
		activeFlag:    flag(true),
		notifyType:    models.NotificationTypePaymentSuccess,
		notifyFormat:  "Payment received. Your %s subscription is active",
	})
}

// HandlePaymentFailed повышает статус только у незавершенной подписки.
// Любой другой статус остается как есть, платеж записывается всегда.
func (s *reconciliationService) HandlePaymentFailed(ctx context.Context, ev events.PaymentFailed) error {
	return s.reconcile(ctx, ev.BillingEvent, transition{
		event: ev.RoutingKey(),
		apply: func(sub *models.Subscription, _ events.BillingEvent, _ time.Time) {
			if models.NormalizeStatus(sub.Status) == models.SubscriptionStatusIncomplete {
				sub.Status = models.SubscriptionStatusIncompleteExpired
			}
		},
		paymentStatus: models.PaymentStatusFailed,
		notifyType:    models.NotificationTypePaymentFailed,
		notifyFormat:  "Payment for your %s subscription failed",
	})
}

func (s *reconciliationService) HandleSubscriptionCancelled(ctx context.Context, ev events.SubscriptionCancelled) error {
	return s.reconcile(ctx, ev.BillingEvent, transition{
		event: ev.RoutingKey(),
		apply: func(sub *models.Subscription, _ events.BillingEvent, now time.Time) {
			sub.Status = models.SubscriptionStatusCanceled
			sub.CanceledAt = &now
		},
		paymentStatus: models.PaymentStatusCancelled,
		activeFlag:    flag(false),
		notifyType:    models.NotificationTypeSubscriptionUpdate,
		notifyFormat:  "Your %s subscription has been cancelled",
	})
}

func (s *reconciliationService) HandleSubscriptionExpired(ctx context.Context, ev events.SubscriptionExpired) error {
	return s.reconcile(ctx, ev.BillingEvent, transition{
		event: ev.RoutingKey(),
		apply: func(sub *models.Subscription, _ events.BillingEvent, now time.Time) {
			sub.Status = models.SubscriptionStatusExpired
			if sub.EndDate == nil {
				sub.EndDate = &now
			}
		},
		paymentStatus: models.PaymentStatusFailed,
		activeFlag:    flag(false),
		notifyType:    models.NotificationTypeSubscriptionUpdate,
		notifyFormat:  "Your %s subscription has expired",
	})
}

func (s *reconciliationService) HandleSubscriptionPastDue(ctx context.Context, ev events.SubscriptionPastDue) error {
	return s.reconcile(ctx, ev.BillingEvent, transition{
		event: ev.RoutingKey(),
		apply: func(sub *models.Subscription, _ events.BillingEvent, _ time.Time) {
			sub.Status = models.SubscriptionStatusPastDue
		},
		paymentStatus: models.PaymentStatusFailed,
		notifyType:    models.NotificationTypePaymentFailed,
		notifyFormat:  "Your %s subscription is past due. Please update your payment method",
	})
}

func (s *reconciliationService) HandleAutoPaymentCancelled(ctx context.Context, ev events.AutoPaymentCancelled) error {
	return s.reconcile(ctx, ev.BillingEvent, transition{
		event: ev.RoutingKey(),
		apply: func(sub *models.Subscription, _ events.BillingEvent, now time.Time) {
			sub.Status = models.SubscriptionStatusCanceled
			sub.AutoRenew = false
			sub.CanceledAt = &now
		},
		paymentStatus: models.PaymentStatusCancelled,
		activeFlag:    flag(false),
		notifyType:    models.NotificationTypeSubscriptionUpdate,
		notifyFormat:  "Automatic renewal of your %s subscription has been cancelled",
	})
}

// reconcile - общий шаблон: поиск, транзакция, статус, платеж, флаг пользователя, уведомление
func (s *reconciliationService) reconcile(ctx context.Context, ev events.BillingEvent, t transition) (err error) {
	log := logger.FromContext(ctx).With(
		"event", t.event,
		"external_subscription_id", ev.ExternalSubscriptionID,
	)
	defer func() { s.count(t.event, err) }()

	if err := s.validator.Validate(ev); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			return apperrors.ValidationError(vErr.Errors)
		}
		return apperrors.NewBadRequestError(err.Error())
	}

	sub, err := s.subscriptionRepo.FindByExternalID(ctx, ev.ExternalSubscriptionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			log.Warn("subscription not found for billing event")
			return apperrors.ErrSubscriptionNotFound(err, ev.ExternalSubscriptionID)
		}
		return apperrors.ErrDatabase(err)
	}

	now := s.clock.Now()
	previous := sub.Status

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		t.apply(sub, ev, now)
		if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}

		if err := s.paymentRepo.Create(ctx, s.buildPayment(sub, ev, t.paymentStatus, now)); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		if t.activeFlag != nil {
			if err := s.userRepo.SetActiveSubscription(ctx, sub.UserID, *t.activeFlag); err != nil {
				return fmt.Errorf("update user subscription flag: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("reconciliation rolled back", "error", err)
		return apperrors.ErrDatabase(err)
	}

	log.Info("subscription reconciled",
		"subscription_id", sub.ID,
		"status_from", previous,
		"status_to", sub.Status,
		"payment_status", t.paymentStatus,
	)

	s.notifier.Notify(ctx, events.NotificationEvent{
		UserID:  sub.UserID,
		Type:    t.notifyType,
		Message: fmt.Sprintf(t.notifyFormat, sub.PlanType),
		Data: map[string]any{
			"subscriptionId": sub.ID,
			"status":         sub.Status,
			"planType":       sub.PlanType,
			"amount":         ev.Amount,
			"currency":       currencyOrDefault(ev.Currency),
		},
	})
	return nil
}

func (s *reconciliationService) buildPayment(sub *models.Subscription, ev events.BillingEvent, status models.PaymentStatus, now time.Time) *models.Payment {
	method := ev.PaymentMethod
	if method == "" {
		method = sub.PaymentMethod
	}
	billingDate := ev.OccurredAt
	if billingDate.IsZero() {
		billingDate = now
	}
	return &models.Payment{
		UserID:          sub.UserID,
		SubscriptionID:  sub.ID,
		PlanType:        sub.PlanType,
		PaymentMethod:   method,
		Status:          status,
		Amount:          ev.Amount,
		Currency:        currencyOrDefault(ev.Currency),
		BillingDate:     billingDate,
		ExternalEventID: ev.EventID,
	}
}

func (s *reconciliationService) count(event string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		outcome = "not_found"
	case apperrors.HasCode(err, apperrors.CodeValidationFailed):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	s.metrics.Reconciliations.WithLabelValues(event, outcome).Inc()
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "usd"
	}
	return currency
}
