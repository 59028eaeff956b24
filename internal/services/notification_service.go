package services

import (
	"context"
	"encoding/json"
	"errors"

	"platform_backend/internal/clock"
	"platform_backend/internal/events"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"
	"platform_backend/internal/models"
	"platform_backend/internal/repositories"
	"platform_backend/pkg/apperrors"
	"platform_backend/ws"

	"gorm.io/datatypes"
)

// EventNotification - имя websocket события с уведомлением
const EventNotification = "notification"

// ConnLookup - источник живых websocket соединений
type ConnLookup interface {
	Get(userID string) (ws.Conn, bool)
}

// NotificationPayload - тело websocket события notification
type NotificationPayload struct {
	Type    models.NotificationType `json:"type"`
	Data    map[string]any          `json:"data"`
	Message string                  `json:"message"`
}

type NotificationService interface {
	NotificationEmitter
	Run(ctx context.Context)
	Handle(ctx context.Context, ev events.NotificationEvent) error

	ListNotifications(ctx context.Context, userID string, criteria repositories.NotificationCriteria) ([]models.Notification, int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)

	GetSettings(ctx context.Context, userID string) ([]models.NotificationSettings, error)
	UpdateSetting(ctx context.Context, userID string, notificationType models.NotificationType, enabled bool) (*models.NotificationSettings, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	settingsRepo     repositories.NotificationSettingsRepository
	conns            ConnLookup
	counter          CounterService
	metrics          *metrics.Metrics
	clock            clock.Clock
	queue            chan queuedNotification
}

type queuedNotification struct {
	ctx context.Context
	ev  events.NotificationEvent
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	settingsRepo repositories.NotificationSettingsRepository,
	conns ConnLookup,
	counter CounterService,
	m *metrics.Metrics,
	c clock.Clock,
	buffer int,
) NotificationService {
	if buffer <= 0 {
		buffer = 128
	}
	return &notificationService{
		notificationRepo: notificationRepo,
		settingsRepo:     settingsRepo,
		conns:            conns,
		counter:          counter,
		metrics:          m,
		clock:            c,
		queue:            make(chan queuedNotification, buffer),
	}
}

// Notify ставит событие в очередь диспетчера и не блокирует вызывающего.
// При переполненной очереди событие теряется.
func (s *notificationService) Notify(ctx context.Context, ev events.NotificationEvent) {
	// контекст запроса может закончиться раньше доставки
	detached := logger.WithCorrelationID(context.Background(), logger.GetCorrelationID(ctx))
	select {
	case s.queue <- queuedNotification{ctx: detached, ev: ev}:
	default:
		s.count(ev.Type, "dropped")
		logger.CtxWarn(ctx, "notification queue full, event dropped", "user_id", ev.UserID, "type", ev.Type)
	}
}

// Run обрабатывает очередь по одному событию до отмены ctx
func (s *notificationService) Run(ctx context.Context) {
	log := logger.WithComponent("notification_dispatcher")
	log.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			log.Info("notification dispatcher stopped")
			return
		case item := <-s.queue:
			if err := s.Handle(item.ctx, item.ev); err != nil {
				logger.CtxWithError(item.ctx, "notification delivery failed", err, "user_id", item.ev.UserID, "type", item.ev.Type)
			}
		}
	}
}

// Handle проверяет настройку типа, сохраняет уведомление и отправляет его в сокет.
// Отключенный тип не создает строку и не отправляет событие.
func (s *notificationService) Handle(ctx context.Context, ev events.NotificationEvent) error {
	enabled, err := s.isEnabled(ctx, ev.UserID, ev.Type)
	if err != nil {
		s.count(ev.Type, "failed")
		return apperrors.ErrDatabase(err)
	}
	if !enabled {
		s.count(ev.Type, "disabled")
		logger.CtxDebug(ctx, "notification type disabled", "user_id", ev.UserID, "type", ev.Type)
		return nil
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		s.count(ev.Type, "failed")
		return apperrors.InternalError(err)
	}

	notification := &models.Notification{
		UserID:  ev.UserID,
		Type:    ev.Type,
		Message: ev.Message,
		Data:    datatypes.JSON(data),
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.count(ev.Type, "failed")
		return apperrors.ErrDatabase(err)
	}

	if _, err := s.counter.Increment(ctx, UnreadCounterKey(ev.UserID), 1); err != nil {
		logger.CtxWarn(ctx, "unread counter increment failed", "user_id", ev.UserID, "error", err)
	}

	conn, online := s.conns.Get(ev.UserID)
	if !online {
		s.count(ev.Type, "stored")
		return nil
	}

	payload := NotificationPayload{Type: ev.Type, Data: make(map[string]any, len(ev.Data)+1), Message: ev.Message}
	for k, v := range ev.Data {
		payload.Data[k] = v
	}
	payload.Data["id"] = notification.ID

	if err := conn.Emit(EventNotification, payload); err != nil {
		// строка уже сохранена, клиент увидит ее в списке
		logger.CtxWarn(ctx, "websocket emit failed", "user_id", ev.UserID, "socket_id", conn.SocketID(), "error", err)
		s.count(ev.Type, "stored")
		return nil
	}
	s.count(ev.Type, "delivered")
	return nil
}

func (s *notificationService) isEnabled(ctx context.Context, userID string, notificationType models.NotificationType) (bool, error) {
	settings, err := s.settingsRepo.Find(ctx, userID, notificationType)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return true, nil
		}
		return false, err
	}
	return settings.IsEnabled, nil
}

func (s *notificationService) ListNotifications(ctx context.Context, userID string, criteria repositories.NotificationCriteria) ([]models.Notification, int64, error) {
	if criteria.Limit <= 0 || criteria.Limit > 100 {
		criteria.Limit = 20
	}
	if criteria.Offset < 0 {
		criteria.Offset = 0
	}
	if criteria.Type != "" && !criteria.Type.Valid() {
		return nil, 0, apperrors.NewBadRequestError("unknown notification type")
	}
	notifications, total, err := s.notificationRepo.FindByUser(ctx, userID, criteria)
	if err != nil {
		return nil, 0, apperrors.ErrDatabase(err)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	changed, err := s.notificationRepo.MarkAsRead(ctx, userID, notificationID, s.clock.Now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.ErrDatabase(err)
	}
	if !changed {
		return nil
	}
	if _, err := s.counter.Increment(ctx, UnreadCounterKey(userID), -1); err != nil {
		logger.CtxWarn(ctx, "unread counter decrement failed", "user_id", userID, "error", err)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.notificationRepo.MarkAllAsRead(ctx, userID, s.clock.Now())
	if err != nil {
		return 0, apperrors.ErrDatabase(err)
	}
	if err := s.counter.Reset(ctx, UnreadCounterKey(userID)); err != nil {
		logger.CtxWarn(ctx, "unread counter reset failed", "user_id", userID, "error", err)
	}
	return updated, nil
}

// UnreadCount отдает счетчик, а при его недоступности считает по базе
func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if n, err := s.counter.Get(ctx, UnreadCounterKey(userID)); err == nil {
		return n, nil
	}
	n, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.ErrDatabase(err)
	}
	return n, nil
}

// GetSettings возвращает настройки по всем типам, отсутствующие заполняются включенными
func (s *notificationService) GetSettings(ctx context.Context, userID string) ([]models.NotificationSettings, error) {
	stored, err := s.settingsRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	byType := make(map[models.NotificationType]models.NotificationSettings, len(stored))
	for _, st := range stored {
		byType[st.Type] = st
	}

	result := make([]models.NotificationSettings, 0, len(models.AllNotificationTypes))
	for _, t := range models.AllNotificationTypes {
		if st, ok := byType[t]; ok {
			result = append(result, st)
			continue
		}
		result = append(result, models.NotificationSettings{UserID: userID, Type: t, IsEnabled: true})
	}
	return result, nil
}

func (s *notificationService) UpdateSetting(ctx context.Context, userID string, notificationType models.NotificationType, enabled bool) (*models.NotificationSettings, error) {
	if !notificationType.Valid() {
		return nil, apperrors.NewBadRequestError("unknown notification type")
	}
	settings := &models.NotificationSettings{
		UserID:    userID,
		Type:      notificationType,
		IsEnabled: enabled,
	}
	settings.UpdatedAt = s.clock.Now()
	if err := s.settingsRepo.Upsert(ctx, settings); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return settings, nil
}

func (s *notificationService) count(t models.NotificationType, outcome string) {
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(string(t), outcome).Inc()
	}
}

var _ ws.ActionHandler = (NotificationService)(nil)
