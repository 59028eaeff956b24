package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublishChannel struct {
	calls []publishCall
	err   error
	block chan struct{}
}

func (f *fakePublishChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.block != nil {
		<-f.block
	}
	f.calls = append(f.calls, publishCall{exchange: exchange, key: key, msg: msg})
	return f.err
}

func sourceOf(ch PublishChannel) ChannelSource {
	return func() (PublishChannel, error) { return ch, nil }
}

func TestPublisher_PersistentWithRetryHeaders(t *testing.T) {
	ch := &fakePublishChannel{}
	p := NewPublisher(sourceOf(ch), "payments")

	err := p.Publish(context.Background(), ExchangePayment, "payment.success", map[string]any{"eventId": "evt_1"})
	require.NoError(t, err)
	require.Len(t, ch.calls, 1)

	call := ch.calls[0]
	assert.Equal(t, ExchangePayment, call.exchange)
	assert.Equal(t, "payment.success", call.key)
	assert.Equal(t, amqp.Persistent, call.msg.DeliveryMode)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, "payments", call.msg.AppId)
	assert.NotEmpty(t, call.msg.MessageId)
	assert.Equal(t, "0", call.msg.Headers[HeaderRetryCount])
	assert.Equal(t, "payment.success", call.msg.Headers[HeaderOriginalRoutingKey])

	var body map[string]any
	require.NoError(t, json.Unmarshal(call.msg.Body, &body))
	assert.Equal(t, "evt_1", body["eventId"])
}

func TestPublisher_ReturnsBrokerError(t *testing.T) {
	ch := &fakePublishChannel{err: errors.New("channel closed")}
	p := NewPublisher(sourceOf(ch), "payments")

	err := p.Publish(context.Background(), ExchangePayment, "payment.failed", struct{}{})
	assert.EqualError(t, err, "channel closed")
}

func TestPublisher_ChannelSourceError(t *testing.T) {
	p := NewPublisher(func() (PublishChannel, error) { return nil, errors.New("not connected") }, "payments")
	assert.EqualError(t, p.Publish(context.Background(), ExchangePayment, "payment.failed", struct{}{}), "not connected")
}

func TestPublisher_GivesUpAtDeadline(t *testing.T) {
	ch := &fakePublishChannel{block: make(chan struct{})}
	defer close(ch.block)
	p := NewPublisher(sourceOf(ch), "payments")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Publish(ctx, ExchangePayment, "payment.success", struct{}{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublisher_UnmarshalableBody(t *testing.T) {
	ch := &fakePublishChannel{}
	p := NewPublisher(sourceOf(ch), "payments")

	err := p.Publish(context.Background(), ExchangePayment, "payment.success", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, ch.calls)
}
