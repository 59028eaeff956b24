package broker

import (
	"context"
	"fmt"
	"strings"

	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc обрабатывает тело сообщения. Ошибка отправляет сообщение в DLQ.
type HandlerFunc func(ctx context.Context, body []byte) error

// ConsumeChannel - подмножество *amqp.Channel для чтения очереди
type ConsumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consumer читает одну очередь с ручным ack и раскладывает сообщения
// по обработчикам. Ключ обработчика - routing key или префикс, оканчивающийся на ".".
type Consumer struct {
	queue    string
	prefetch int
	handlers map[string]HandlerFunc
	metrics  *metrics.Metrics
}

func NewConsumer(queue string, prefetch int, m *metrics.Metrics) *Consumer {
	return &Consumer{
		queue:    queue,
		prefetch: prefetch,
		handlers: make(map[string]HandlerFunc),
		metrics:  m,
	}
}

func (c *Consumer) Handle(routingKey string, h HandlerFunc) {
	c.handlers[routingKey] = h
}

// Run блокируется до закрытия ctx или канала доставок
func (c *Consumer) Run(ctx context.Context, ch ConsumeChannel) error {
	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	log := logger.WithComponent("consumer").With("queue", c.queue)
	log.Info("consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.Dispatch(ctx, d)
		}
	}
}

// Dispatch обрабатывает одну доставку: ack при успехе, nack без requeue иначе
func (c *Consumer) Dispatch(ctx context.Context, d amqp.Delivery) {
	routingKey := d.RoutingKey
	if original, ok := d.Headers[HeaderOriginalRoutingKey].(string); ok && original != "" {
		routingKey = original
	}

	msgCtx := logger.WithCorrelationID(ctx, d.MessageId)
	log := logger.FromContext(msgCtx).With(
		"queue", c.queue,
		"routing_key", routingKey,
		"retry_count", d.Headers[HeaderRetryCount],
	)

	handler := c.Lookup(routingKey)
	if handler == nil {
		log.Warn("no handler for routing key, dead-lettering")
		c.count(routingKey, "unroutable")
		if err := d.Nack(false, false); err != nil {
			log.Error("nack failed", "error", err)
		}
		return
	}

	if err := handler(msgCtx, d.Body); err != nil {
		log.Error("message handler failed, dead-lettering", "error", err)
		c.count(routingKey, "nacked")
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("nack failed", "error", nackErr)
		}
		return
	}

	c.count(routingKey, "acked")
	if err := d.Ack(false); err != nil {
		log.Error("ack failed", "error", err)
	}
}

// Lookup возвращает обработчик по точному ключу, затем по префиксу
func (c *Consumer) Lookup(routingKey string) HandlerFunc {
	if h, ok := c.handlers[routingKey]; ok {
		return h
	}
	for key, h := range c.handlers {
		if strings.HasSuffix(key, ".") && strings.HasPrefix(routingKey, key) {
			return h
		}
	}
	return nil
}

func (c *Consumer) count(routingKey, outcome string) {
	if c.metrics != nil {
		c.metrics.ConsumedMessages.WithLabelValues(c.queue, routingKey, outcome).Inc()
	}
}
