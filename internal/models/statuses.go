package models

type SubscriptionStatus string
type PaymentStatus string
type PlanType string
type PaymentMethod string
type NotificationType string

// Статусы подписки в формате платежного провайдера. Именно их пишет сверка.
const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "INCOMPLETE"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	SubscriptionStatusTrialing          SubscriptionStatus = "TRIALING"
	SubscriptionStatusActive            SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue           SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled          SubscriptionStatus = "CANCELED"
	SubscriptionStatusUnpaid            SubscriptionStatus = "UNPAID"
	SubscriptionStatusExpired           SubscriptionStatus = "EXPIRED"
)

// Старый набор статусов. Такие значения еще встречаются в ранних строках таблицы,
// новые записи их не получают.
const (
	LegacyStatusPending   SubscriptionStatus = "pending"
	LegacyStatusActive    SubscriptionStatus = "active"
	LegacyStatusExpired   SubscriptionStatus = "expired"
	LegacyStatusCancelled SubscriptionStatus = "cancelled"
	LegacyStatusPastDue   SubscriptionStatus = "past_due"
	LegacyStatusFailed    SubscriptionStatus = "failed"
)

var legacyStatuses = map[SubscriptionStatus]SubscriptionStatus{
	LegacyStatusPending:   SubscriptionStatusIncomplete,
	LegacyStatusActive:    SubscriptionStatusActive,
	LegacyStatusExpired:   SubscriptionStatusExpired,
	LegacyStatusCancelled: SubscriptionStatusCanceled,
	LegacyStatusPastDue:   SubscriptionStatusPastDue,
	LegacyStatusFailed:    SubscriptionStatusIncompleteExpired,
}

// NormalizeStatus приводит статус из любого набора к формату провайдера.
// Неизвестные значения возвращаются как есть.
func NormalizeStatus(s SubscriptionStatus) SubscriptionStatus {
	if mapped, ok := legacyStatuses[s]; ok {
		return mapped
	}
	return s
}

// IsLegacy - true для значений старого набора
func (s SubscriptionStatus) IsLegacy() bool {
	_, ok := legacyStatuses[s]
	return ok
}

const (
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCancelled  PaymentStatus = "cancelled"

	PlanTypeBasic    PlanType = "basic"
	PlanTypePremium  PlanType = "premium"
	PlanTypeBusiness PlanType = "business"

	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodPayPal    PaymentMethod = "paypal"
	PaymentMethodApplePay  PaymentMethod = "apple_pay"
	PaymentMethodGooglePay PaymentMethod = "google_pay"
)

// Типы уведомлений совпадают с типами websocket-событий
const (
	NotificationTypePaymentSuccess     NotificationType = "PAYMENT_SUCCESS"
	NotificationTypePaymentFailed      NotificationType = "PAYMENT_FAILED"
	NotificationTypeSubscriptionUpdate NotificationType = "SUBSCRIPTION_UPDATE"
	NotificationTypeSecurityAlert      NotificationType = "SECURITY_ALERT"
)

// AllNotificationTypes - порядок важен для выдачи настроек
var AllNotificationTypes = []NotificationType{
	NotificationTypePaymentSuccess,
	NotificationTypePaymentFailed,
	NotificationTypeSubscriptionUpdate,
	NotificationTypeSecurityAlert,
}

func (t NotificationType) Valid() bool {
	for _, known := range AllNotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}
