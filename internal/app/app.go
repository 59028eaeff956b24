package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"platform_backend/internal/auth"
	"platform_backend/internal/broker"
	"platform_backend/internal/cache"
	"platform_backend/internal/clock"
	"platform_backend/internal/config"
	"platform_backend/internal/email"
	"platform_backend/internal/events"
	"platform_backend/internal/handlers"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"
	"platform_backend/internal/middleware"
	"platform_backend/internal/repositories"
	"platform_backend/internal/routes"
	"platform_backend/internal/services"
	"platform_backend/internal/validator"
	"platform_backend/internal/workers"
	"platform_backend/pkg/apperrors"
	"platform_backend/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Run - основной сервис: REST, websocket /notifications, потребители очередей и очистка уведомлений
func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	apperrors.SetDebug(cfg.Server.Env == "development")
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := OpenDatabase(cfg.Database.DSN, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := Migrate(gormDB); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	m := metrics.New()
	sysClock := clock.System()
	v := validator.New()
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute, time.Duration(cfg.JWT.RefreshTTL)*time.Hour)
	registry := ws.NewRegistry(m.WSConnections)

	redisClient := connectRedis(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	container := initializeServices(cfg, gormDB, redisClient, registry, tokens, v, m, sysClock)

	monitor := broker.NewMonitor(sysClock, config.Seconds(cfg.Broker.MonitorInterval), m.BrokerAvailable)
	conn := broker.NewConnection(cfg.Broker.URL, monitor)
	defer conn.Close()

	var wg sync.WaitGroup
	goWithWG(&wg, func() { container.NotificationService.Run(ctx) })
	goWithWG(&wg, func() {
		runConsumer(ctx, conn, broker.PaymentEventsQueue, paymentEventsConsumer(cfg, container, m))
	})
	goWithWG(&wg, func() {
		runConsumer(ctx, conn, broker.EmailNotificationsQueue, emailConsumer(cfg, container, m))
	})

	cleanup := NewCleanupWorker(cfg, gormDB, sysClock, m)
	if err := cleanup.Start(ctx); err != nil {
		logger.Fatal("Failed to schedule notification cleanup", "error", err)
	}

	baseHandler := handlers.NewBaseHandler(v)
	appHandlers := &handlers.AppHandlers{
		AuthHandler: handlers.NewAuthHandler(baseHandler, container.AuthService,
			cfg.Server.Env != "development", cfg.JWT.TTL*60),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, container.NotificationService),
	}
	wsHandler := ws.NewHandler(registry, tokens, container.NotificationService, cfg.Server.AllowedOrigins)

	router := initializeGinRouter()
	routes.RegisterRoutes(router, appHandlers, wsHandler, tokens, repositories.NewDeviceRepository(gormDB), m.Registry)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	serve(ctx, address, router)

	wg.Wait()
	logger.Info("Server stopped")
}

func initializeServices(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	registry *ws.Registry,
	tokens *auth.TokenManager,
	v *validator.Validator,
	m *metrics.Metrics,
	c clock.Clock,
) *services.ServiceContainer {
	userRepo := repositories.NewUserRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	deviceRepo := repositories.NewDeviceRepository(db)
	settingsRepo := repositories.NewNotificationSettingsRepository(db)

	var counterStore services.CounterStore = repositories.NewCounterRepository(db)
	if redisClient != nil {
		settingsRepo = cache.NewSettingsRepository(settingsRepo, redisClient, config.Seconds(cfg.Redis.CacheTTL))
		counterStore = cache.NewCounterStore(redisClient)
	}

	counterService := services.NewCounterService(counterStore)
	notificationService := services.NewNotificationService(notificationRepo, settingsRepo, registry, counterService, m, c, 0)
	reconciliationService := services.NewReconciliationService(
		repositories.NewTransactor(db),
		subscriptionRepo,
		paymentRepo,
		userRepo,
		notificationService,
		v, m, c,
	)
	authService := services.NewAuthService(userRepo, deviceRepo, tokens, notificationService, v, m, c)

	var provider email.Provider
	if cfg.Email.Enabled {
		provider = email.NewGomailProvider(email.ConfigFrom(cfg.Email))
	} else {
		logger.Warn("Email is disabled, using in-memory provider")
		provider = email.NewMockProvider()
	}
	emailService := services.NewEmailService(provider, email.NewTemplateManager(), v, m)

	return &services.ServiceContainer{
		AuthService:           authService,
		NotificationService:   notificationService,
		ReconciliationService: reconciliationService,
		CounterService:        counterService,
		EmailService:          emailService,
	}
}

func paymentEventsConsumer(cfg *config.Config, container *services.ServiceContainer, m *metrics.Metrics) *broker.Consumer {
	consumer := broker.NewConsumer(broker.QueuePaymentEvents, cfg.Broker.Prefetch, m)
	services.RegisterBillingHandlers(consumer, container.ReconciliationService)
	return consumer
}

func emailConsumer(cfg *config.Config, container *services.ServiceContainer, m *metrics.Metrics) *broker.Consumer {
	consumer := broker.NewConsumer(broker.QueueEmailNotifications, cfg.Broker.Prefetch, m)
	consumer.Handle(events.RoutingKeyEmailNotificationPrefix, container.EmailService.HandleMessage)
	return consumer
}

// NewCleanupWorker собирает задачу очистки уведомлений (основной сервис и cmd/cleanup)
func NewCleanupWorker(cfg *config.Config, db *gorm.DB, c clock.Clock, m *metrics.Metrics) *workers.NotificationCleanupWorker {
	return workers.NewNotificationCleanupWorker(
		repositories.NewNotificationRepository(db),
		c,
		workers.CleanupConfig{
			Schedule:     cfg.Cleanup.Schedule,
			ArchiveAfter: time.Duration(cfg.Cleanup.ArchiveDays) * 24 * time.Hour,
			PurgeAfter:   time.Duration(cfg.Cleanup.PurgeDays) * 24 * time.Hour,
		},
		m,
	)
}

// connectRedis возвращает nil, если Redis не настроен или недоступен: кеш и счетчики уходят в postgres
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Warn("Redis is not configured, cache disabled")
		return nil
	}
	client, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, cache disabled", "error", err)
		return nil
	}
	return client
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	return router
}

// serve блокируется до отмены ctx и мягко останавливает сервер
func serve(ctx context.Context, address string, handler http.Handler) {
	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "address", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
}

func goWithWG(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}
