package services

import (
	"context"
	"encoding/json"

	"platform_backend/internal/broker"
	"platform_backend/internal/events"
	"platform_backend/pkg/apperrors"
)

// RegisterBillingHandlers привязывает use-case сверки к routing key очереди payment_events_queue
func RegisterBillingHandlers(c *broker.Consumer, svc ReconciliationService) {
	c.Handle(events.RoutingKeyPaymentSuccess, decode(func(ctx context.Context, ev events.PaymentSucceeded) error {
		return svc.HandlePaymentSucceeded(ctx, ev)
	}))
	c.Handle(events.RoutingKeyPaymentFailed, decode(func(ctx context.Context, ev events.PaymentFailed) error {
		return svc.HandlePaymentFailed(ctx, ev)
	}))
	c.Handle(events.RoutingKeySubscriptionCancelled, decode(func(ctx context.Context, ev events.SubscriptionCancelled) error {
		return svc.HandleSubscriptionCancelled(ctx, ev)
	}))
	c.Handle(events.RoutingKeySubscriptionExpired, decode(func(ctx context.Context, ev events.SubscriptionExpired) error {
		return svc.HandleSubscriptionExpired(ctx, ev)
	}))
	c.Handle(events.RoutingKeySubscriptionPastDue, decode(func(ctx context.Context, ev events.SubscriptionPastDue) error {
		return svc.HandleSubscriptionPastDue(ctx, ev)
	}))
	c.Handle(events.RoutingKeyAutoPaymentCancelled, decode(func(ctx context.Context, ev events.AutoPaymentCancelled) error {
		return svc.HandleAutoPaymentCancelled(ctx, ev)
	}))
}

func decode[T any](fn func(ctx context.Context, ev T) error) broker.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var ev T
		if err := json.Unmarshal(body, &ev); err != nil {
			return apperrors.NewBadRequestError("malformed billing event: " + err.Error())
		}
		return fn(ctx, ev)
	}
}
