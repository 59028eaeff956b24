package dto

import "encoding/json"

// BillingWebhookRequest - событие провайдера биллинга: тип и тело события.
// CustomerEmail необязателен; если он есть, клиенту уходит письмо.
type BillingWebhookRequest struct {
	Type          string          `json:"type" validate:"required"`
	Data          json.RawMessage `json:"data" validate:"required"`
	CustomerEmail string          `json:"customerEmail" validate:"omitempty,email"`
	PlanType      string          `json:"planType"`
}
