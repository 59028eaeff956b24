package relay

import (
	"context"
	"sync"
	"time"

	"platform_backend/internal/broker"
	"platform_backend/internal/events"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"
)

// Publisher - то, чем relay отправляет сообщения в брокер
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
}

type Config struct {
	PaymentTimeout      time.Duration // payment.topic
	NotificationTimeout time.Duration // notification.topic
	Buffer              int
}

// Relay переносит внутрипроцессные события в брокер.
// На каждый тип события свой типизированный канал и свой слушатель.
// Доставка best-effort: при недоступном брокере сообщение отбрасывается,
// ошибки публикации только логируются.
type Relay struct {
	publisher Publisher
	monitor   broker.Availability
	metrics   *metrics.Metrics
	cfg       Config

	paymentSucceeded      chan events.PaymentSucceeded
	paymentFailed         chan events.PaymentFailed
	subscriptionCancelled chan events.SubscriptionCancelled
	subscriptionExpired   chan events.SubscriptionExpired
	subscriptionPastDue   chan events.SubscriptionPastDue
	autoPaymentCancelled  chan events.AutoPaymentCancelled
	emailRequested        chan events.EmailRequested
}

func New(publisher Publisher, monitor broker.Availability, m *metrics.Metrics, cfg Config) *Relay {
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 10 * time.Second
	}
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = 3 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}

	return &Relay{
		publisher:             publisher,
		monitor:               monitor,
		metrics:               m,
		cfg:                   cfg,
		paymentSucceeded:      make(chan events.PaymentSucceeded, cfg.Buffer),
		paymentFailed:         make(chan events.PaymentFailed, cfg.Buffer),
		subscriptionCancelled: make(chan events.SubscriptionCancelled, cfg.Buffer),
		subscriptionExpired:   make(chan events.SubscriptionExpired, cfg.Buffer),
		subscriptionPastDue:   make(chan events.SubscriptionPastDue, cfg.Buffer),
		autoPaymentCancelled:  make(chan events.AutoPaymentCancelled, cfg.Buffer),
		emailRequested:        make(chan events.EmailRequested, cfg.Buffer),
	}
}

// Emit ставит событие в очередь своего слушателя и сразу возвращается.
// false - неизвестный тип или переполненный буфер, событие потеряно.
func (r *Relay) Emit(ev events.DomainEvent) bool {
	switch e := ev.(type) {
	case events.PaymentSucceeded:
		return offer(r.paymentSucceeded, e)
	case events.PaymentFailed:
		return offer(r.paymentFailed, e)
	case events.SubscriptionCancelled:
		return offer(r.subscriptionCancelled, e)
	case events.SubscriptionExpired:
		return offer(r.subscriptionExpired, e)
	case events.SubscriptionPastDue:
		return offer(r.subscriptionPastDue, e)
	case events.AutoPaymentCancelled:
		return offer(r.autoPaymentCancelled, e)
	case events.EmailRequested:
		return offer(r.emailRequested, e)
	default:
		logger.WithComponent("relay").Warn("unsupported event type, dropping", "routing_key", ev.RoutingKey())
		return false
	}
}

func offer[T events.DomainEvent](ch chan T, ev T) bool {
	select {
	case ch <- ev:
		return true
	default:
		logger.WithComponent("relay").Warn("relay buffer full, dropping event", "routing_key", ev.RoutingKey())
		return false
	}
}

// Run запускает всех слушателей и ждет их завершения по ctx
func (r *Relay) Run(ctx context.Context) {
	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	start(func() { listen(ctx, r, r.paymentSucceeded, broker.ExchangePayment, r.cfg.PaymentTimeout) })
	start(func() { listen(ctx, r, r.paymentFailed, broker.ExchangePayment, r.cfg.PaymentTimeout) })
	start(func() { listen(ctx, r, r.subscriptionCancelled, broker.ExchangePayment, r.cfg.PaymentTimeout) })
	start(func() { listen(ctx, r, r.subscriptionExpired, broker.ExchangePayment, r.cfg.PaymentTimeout) })
	start(func() { listen(ctx, r, r.subscriptionPastDue, broker.ExchangePayment, r.cfg.PaymentTimeout) })
	start(func() { listen(ctx, r, r.autoPaymentCancelled, broker.ExchangePayment, r.cfg.PaymentTimeout) })
	start(func() { listen(ctx, r, r.emailRequested, broker.ExchangeNotification, r.cfg.NotificationTimeout) })

	logger.WithComponent("relay").Info("relay listeners started")
	wg.Wait()
	logger.WithComponent("relay").Info("relay listeners stopped")
}

func listen[T events.DomainEvent](ctx context.Context, r *Relay, in chan T, exchange string, timeout time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-in:
			r.forward(ctx, exchange, ev, timeout)
		}
	}
}

// forward никогда не возвращает ошибку: сбой фиксируется в мониторе и логе
func (r *Relay) forward(ctx context.Context, exchange string, ev events.DomainEvent, timeout time.Duration) {
	key := ev.RoutingKey()
	log := logger.WithComponent("relay").With("exchange", exchange, "routing_key", key)

	if !r.monitor.IsAvailable() {
		log.Warn("broker marked down, event dropped")
		r.count(exchange, key, "dropped")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	err := r.publisher.Publish(pubCtx, exchange, key, ev)
	if r.metrics != nil {
		r.metrics.PublishDuration.WithLabelValues(exchange).Observe(time.Since(started).Seconds())
	}
	if err != nil {
		r.monitor.MarkAsDown()
		logger.BrokerLog("publish", exchange, key, err)
		r.count(exchange, key, "failed")
		return
	}

	log.Debug("event relayed")
	r.count(exchange, key, "published")
}

func (r *Relay) count(exchange, key, outcome string) {
	if r.metrics != nil {
		r.metrics.RelayMessages.WithLabelValues(exchange, key, outcome).Inc()
	}
}
