package handlers

import (
	"encoding/json"
	"net/http"

	"platform_backend/internal/events"
	"platform_backend/internal/logger"
	"platform_backend/internal/services/dto"
	"platform_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// EventSink принимает доменные события для отправки в брокер (relay)
type EventSink interface {
	Emit(ev events.DomainEvent) bool
}

type billingRoute struct {
	build    func(events.BillingEvent) events.DomainEvent
	template string
	subject  string
}

var billingRoutes = map[string]billingRoute{
	events.RoutingKeyPaymentSuccess: {
		build:    func(b events.BillingEvent) events.DomainEvent { return events.PaymentSucceeded{BillingEvent: b} },
		template: "payment_success",
		subject:  "Payment received",
	},
	events.RoutingKeyPaymentFailed: {
		build:    func(b events.BillingEvent) events.DomainEvent { return events.PaymentFailed{BillingEvent: b} },
		template: "payment_failed",
		subject:  "Payment failed",
	},
	events.RoutingKeySubscriptionCancelled: {
		build:    func(b events.BillingEvent) events.DomainEvent { return events.SubscriptionCancelled{BillingEvent: b} },
		template: "subscription_cancelled",
		subject:  "Subscription cancelled",
	},
	events.RoutingKeySubscriptionExpired: {
		build:    func(b events.BillingEvent) events.DomainEvent { return events.SubscriptionExpired{BillingEvent: b} },
		template: "subscription_expired",
		subject:  "Subscription expired",
	},
	events.RoutingKeySubscriptionPastDue: {
		build:    func(b events.BillingEvent) events.DomainEvent { return events.SubscriptionPastDue{BillingEvent: b} },
		template: "subscription_past_due",
		subject:  "Payment overdue",
	},
	events.RoutingKeyAutoPaymentCancelled: {
		build:    func(b events.BillingEvent) events.DomainEvent { return events.AutoPaymentCancelled{BillingEvent: b} },
		template: "auto_payment_cancelled",
		subject:  "Auto-renewal turned off",
	},
}

// BillingWebhookHandler - вход сервиса платежей: событие провайдера превращается
// в доменное событие и уходит в relay. Ответ 202 не означает доставку в брокер.
type BillingWebhookHandler struct {
	*BaseHandler
	sink EventSink
}

func NewBillingWebhookHandler(base *BaseHandler, sink EventSink) *BillingWebhookHandler {
	return &BillingWebhookHandler{BaseHandler: base, sink: sink}
}

func (h *BillingWebhookHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.BillingWebhookRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	route, ok := billingRoutes[req.Type]
	if !ok {
		logger.CtxWarn(ctx, "unknown billing event type", "type", req.Type)
		apperrors.HandleError(c, apperrors.ErrUnknownEventType)
		return
	}

	var billing events.BillingEvent
	if err := json.Unmarshal(req.Data, &billing); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid event data: "+err.Error()))
		return
	}
	if err := h.validator.Validate(billing); err != nil {
		h.HandleServiceError(c, validationAppError(err))
		return
	}

	accepted := h.sink.Emit(route.build(billing))

	if req.CustomerEmail != "" {
		h.sink.Emit(events.EmailRequested{
			To:       req.CustomerEmail,
			Subject:  route.subject,
			Template: route.template,
			Data: map[string]any{
				"amount":   billing.Amount,
				"currency": billing.Currency,
				"planType": req.PlanType,
				"reason":   billing.Reason,
			},
		})
	}

	logger.CtxInfo(ctx, "billing event accepted",
		"type", req.Type,
		"event_id", billing.EventID,
		"external_subscription_id", billing.ExternalSubscriptionID,
		"queued", accepted,
	)
	c.JSON(http.StatusAccepted, gin.H{"eventId": billing.EventID, "queued": accepted})
}
