package services_test

import (
	"context"
	"sync"
	"testing"

	"platform_backend/internal/broker"
	"platform_backend/internal/events"
	"platform_backend/internal/services"
	"platform_backend/pkg/apperrors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReconciliation запоминает, какой use-case получил какой внешний ID
type recordingReconciliation struct {
	calls map[string]events.BillingEvent
}

func (r *recordingReconciliation) record(method string, ev events.BillingEvent) error {
	if r.calls == nil {
		r.calls = make(map[string]events.BillingEvent)
	}
	r.calls[method] = ev
	return nil
}

func (r *recordingReconciliation) HandlePaymentSucceeded(_ context.Context, ev events.PaymentSucceeded) error {
	return r.record("payment_succeeded", ev.BillingEvent)
}

func (r *recordingReconciliation) HandlePaymentFailed(_ context.Context, ev events.PaymentFailed) error {
	return r.record("payment_failed", ev.BillingEvent)
}

func (r *recordingReconciliation) HandleSubscriptionCancelled(_ context.Context, ev events.SubscriptionCancelled) error {
	return r.record("subscription_cancelled", ev.BillingEvent)
}

func (r *recordingReconciliation) HandleSubscriptionExpired(_ context.Context, ev events.SubscriptionExpired) error {
	return r.record("subscription_expired", ev.BillingEvent)
}

func (r *recordingReconciliation) HandleSubscriptionPastDue(_ context.Context, ev events.SubscriptionPastDue) error {
	return r.record("subscription_past_due", ev.BillingEvent)
}

func (r *recordingReconciliation) HandleAutoPaymentCancelled(_ context.Context, ev events.AutoPaymentCancelled) error {
	return r.record("auto_payment_cancelled", ev.BillingEvent)
}

type ackRecorder struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestRegisterBillingHandlers_RoutesEachKeyToItsUseCase(t *testing.T) {
	cases := []struct {
		routingKey string
		method     string
	}{
		{events.RoutingKeyPaymentSuccess, "payment_succeeded"},
		{events.RoutingKeyPaymentFailed, "payment_failed"},
		{events.RoutingKeySubscriptionCancelled, "subscription_cancelled"},
		{events.RoutingKeySubscriptionExpired, "subscription_expired"},
		{events.RoutingKeySubscriptionPastDue, "subscription_past_due"},
		{events.RoutingKeyAutoPaymentCancelled, "auto_payment_cancelled"},
	}

	svc := &recordingReconciliation{}
	consumer := broker.NewConsumer(broker.QueuePaymentEvents, 1, nil)
	services.RegisterBillingHandlers(consumer, svc)
	ack := &ackRecorder{}

	for i, tc := range cases {
		body := `{"eventId":"evt-` + tc.method + `","externalSubscriptionId":"ext-` + tc.method + `","amount":1999}`
		consumer.Dispatch(context.Background(), amqp.Delivery{
			Acknowledger: ack,
			DeliveryTag:  uint64(i + 1),
			RoutingKey:   tc.routingKey,
			Body:         []byte(body),
		})
	}

	require.Len(t, svc.calls, len(cases))
	for _, tc := range cases {
		ev, ok := svc.calls[tc.method]
		require.True(t, ok, tc.routingKey)
		assert.Equal(t, "evt-"+tc.method, ev.EventID, tc.routingKey)
		assert.Equal(t, "ext-"+tc.method, ev.ExternalSubscriptionID, tc.routingKey)
		assert.Equal(t, int64(1999), ev.Amount, tc.routingKey)
	}
	assert.Len(t, ack.acked, len(cases))
	assert.Empty(t, ack.nacked)
}

func TestRegisterBillingHandlers_MalformedBodyIsDeadLettered(t *testing.T) {
	svc := &recordingReconciliation{}
	consumer := broker.NewConsumer(broker.QueuePaymentEvents, 1, nil)
	services.RegisterBillingHandlers(consumer, svc)

	handler := consumer.Lookup(events.RoutingKeyPaymentSuccess)
	require.NotNil(t, handler)
	err := handler(context.Background(), []byte(`{not json`))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))

	ack := &ackRecorder{}
	consumer.Dispatch(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  9,
		RoutingKey:   events.RoutingKeyPaymentSuccess,
		Body:         []byte(`{not json`),
	})
	assert.Empty(t, ack.acked)
	assert.Equal(t, []uint64{9}, ack.nacked)
	assert.Equal(t, []bool{false}, ack.requeue)
	assert.Empty(t, svc.calls)
}
