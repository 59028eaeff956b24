package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishChannel - подмножество *amqp.Channel для публикации
type PublishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ChannelSource отдает актуальный канал (Connection переподключается сам)
type ChannelSource func() (PublishChannel, error)

// Publisher сериализует тело в JSON и публикует persistent сообщение
// с заголовками повторов.
type Publisher struct {
	channel ChannelSource
	appID   string
	now     func() time.Time
}

func NewPublisher(source ChannelSource, appID string) *Publisher {
	return &Publisher{channel: source, appID: appID, now: time.Now}
}

// FromConnection адаптирует Connection к ChannelSource
func FromConnection(c *Connection) ChannelSource {
	return func() (PublishChannel, error) {
		ch, err := c.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// Publish ждет подтверждения от клиента не дольше дедлайна ctx.
// Зависший вызов клиента бросается, ошибка возвращается вызывающему.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now(),
		AppId:        p.appID,
		Headers: amqp.Table{
			HeaderRetryCount:         "0",
			HeaderOriginalRoutingKey: routingKey,
		},
		Body: payload,
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("publish %s to %s: %w", routingKey, exchange, ctx.Err())
	}
}
