package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangePayment      = "payment.topic"
	ExchangeNotification = "notification.topic"

	QueuePaymentEvents      = "payment_events_queue"
	QueueEmailNotifications = "email_notifications_queue"

	HeaderRetryCount         = "x-retry-count"
	HeaderOriginalRoutingKey = "x-original-routing-key"
)

// QueueSpec - очередь, ее привязки и dead-letter
type QueueSpec struct {
	Name     string
	Exchange string
	Bindings []string
}

func (q QueueSpec) DeadLetterExchange() string { return q.Exchange + ".dlx" }
func (q QueueSpec) DeadLetterQueue() string    { return q.Name + ".dlq" }

var (
	PaymentEventsQueue = QueueSpec{
		Name:     QueuePaymentEvents,
		Exchange: ExchangePayment,
		Bindings: []string{"payment.#", "subscription.#"},
	}
	EmailNotificationsQueue = QueueSpec{
		Name:     QueueEmailNotifications,
		Exchange: ExchangeNotification,
		Bindings: []string{"notification.email.#"},
	}
)

// Declarer - подмножество *amqp.Channel, нужное для объявления топологии
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareExchanges объявляет topic exchanges. Этого достаточно издателю.
func DeclareExchanges(ch Declarer) error {
	for _, name := range []string{ExchangePayment, ExchangeNotification} {
		if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

// DeclareQueue объявляет durable очередь с DLX и ее dead-letter очередь
func DeclareQueue(ch Declarer, spec QueueSpec) error {
	dlx := spec.DeadLetterExchange()
	if err := ch.ExchangeDeclare(dlx, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlx %s: %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(spec.DeadLetterQueue(), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq %s: %w", spec.DeadLetterQueue(), err)
	}
	if err := ch.QueueBind(spec.DeadLetterQueue(), "", dlx, false, nil); err != nil {
		return fmt.Errorf("bind dlq %s: %w", spec.DeadLetterQueue(), err)
	}

	args := amqp.Table{"x-dead-letter-exchange": dlx}
	if _, err := ch.QueueDeclare(spec.Name, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", spec.Name, err)
	}
	for _, key := range spec.Bindings {
		if err := ch.QueueBind(spec.Name, key, spec.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s (%s): %w", spec.Name, spec.Exchange, key, err)
		}
	}
	return nil
}
