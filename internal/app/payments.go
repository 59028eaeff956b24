package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"platform_backend/internal/broker"
	"platform_backend/internal/clock"
	"platform_backend/internal/config"
	"platform_backend/internal/handlers"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"
	"platform_backend/internal/relay"
	"platform_backend/internal/routes"
	"platform_backend/internal/validator"
	"platform_backend/pkg/apperrors"
)

// RunPayments - сервис платежей: принимает вебхуки биллинга и ретранслирует события в брокер
func RunPayments() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	apperrors.SetDebug(cfg.Server.Env == "development")

	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		logger.Fatal("ADMIN_USERNAME and ADMIN_PASSWORD are required for the billing webhook")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	monitor := broker.NewMonitor(clock.System(), config.Seconds(cfg.Broker.MonitorInterval), m.BrokerAvailable)
	conn := broker.NewConnection(cfg.Broker.URL, monitor)
	defer conn.Close()

	if ch, err := conn.Channel(); err != nil {
		monitor.MarkAsDown()
		logger.Warn("RabbitMQ unavailable at startup, events will be dropped until it recovers", "error", err)
	} else if err := broker.DeclareExchanges(ch); err != nil {
		logger.Warn("Failed to declare exchanges", "error", err)
	}

	publisher := broker.NewPublisher(broker.FromConnection(conn), "payments")
	eventRelay := relay.New(publisher, monitor, m, relay.Config{
		PaymentTimeout:      config.Seconds(cfg.Broker.PaymentPublishTimeout),
		NotificationTimeout: config.Seconds(cfg.Broker.NotifyPublishTimeout),
	})

	var wg sync.WaitGroup
	goWithWG(&wg, func() { eventRelay.Run(ctx) })

	webhook := handlers.NewBillingWebhookHandler(handlers.NewBaseHandler(validator.New()), eventRelay)
	router := initializeGinRouter()
	routes.RegisterPaymentRoutes(router, webhook, cfg.Admin.Username, cfg.Admin.Password, m.Registry)

	serve(ctx, fmt.Sprintf("%s:%d", cfg.Payments.Host, cfg.Payments.Port), router)

	wg.Wait()
	logger.Info("Payments service stopped")
}
