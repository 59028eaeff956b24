package events

import (
	"time"

	"platform_backend/internal/models"
)

// Routing keys событий биллинга (payment.topic)
const (
	RoutingKeyPaymentSuccess          = "payment.success"
	RoutingKeyPaymentFailed           = "payment.failed"
	RoutingKeySubscriptionCancelled   = "subscription.cancelled"
	RoutingKeySubscriptionExpired     = "subscription.expired"
	RoutingKeySubscriptionPastDue     = "subscription.past_due"
	RoutingKeyAutoPaymentCancelled    = "subscription.auto_payment_cancelled"
	RoutingKeyEmailNotificationPrefix = "notification.email."
)

// DomainEvent - событие, которое relay переносит в брокер
type DomainEvent interface {
	RoutingKey() string
}

// BillingEvent - общее тело всех событий биллинга
type BillingEvent struct {
	EventID                string               `json:"eventId" validate:"required"`
	ExternalSubscriptionID string               `json:"externalSubscriptionId" validate:"required"`
	Amount                 int64                `json:"amount" validate:"gte=0"`
	Currency               string               `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod          models.PaymentMethod `json:"paymentMethod,omitempty" validate:"is-payment-method"`
	PeriodStart            *time.Time           `json:"periodStart,omitempty"`
	PeriodEnd              *time.Time           `json:"periodEnd,omitempty"`
	Reason                 string               `json:"reason,omitempty"`
	OccurredAt             time.Time            `json:"occurredAt"`
}

type PaymentSucceeded struct{ BillingEvent }
type PaymentFailed struct{ BillingEvent }
type SubscriptionCancelled struct{ BillingEvent }
type SubscriptionExpired struct{ BillingEvent }
type SubscriptionPastDue struct{ BillingEvent }
type AutoPaymentCancelled struct{ BillingEvent }

func (PaymentSucceeded) RoutingKey() string      { return RoutingKeyPaymentSuccess }
func (PaymentFailed) RoutingKey() string         { return RoutingKeyPaymentFailed }
func (SubscriptionCancelled) RoutingKey() string { return RoutingKeySubscriptionCancelled }
func (SubscriptionExpired) RoutingKey() string   { return RoutingKeySubscriptionExpired }
func (SubscriptionPastDue) RoutingKey() string   { return RoutingKeySubscriptionPastDue }
func (AutoPaymentCancelled) RoutingKey() string  { return RoutingKeyAutoPaymentCancelled }

// EmailRequested - письмо, которое отправит основной сервис (notification.topic)
type EmailRequested struct {
	To       string         `json:"to" validate:"required,email"`
	Subject  string         `json:"subject" validate:"required"`
	Template string         `json:"template" validate:"required"`
	Data     map[string]any `json:"data,omitempty"`
}

func (e EmailRequested) RoutingKey() string {
	return RoutingKeyEmailNotificationPrefix + e.Template
}

// NotificationEvent - внутрипроцессное событие для диспетчера уведомлений
type NotificationEvent struct {
	UserID  string
	Type    models.NotificationType
	Message string
	Data    map[string]any
}
