package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"platform_backend/internal/events"
	"platform_backend/internal/models"
	"platform_backend/internal/repositories"
	"platform_backend/internal/validator"
	"platform_backend/pkg/apperrors"
	"platform_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotificationService struct {
	criteria repositories.NotificationCriteria
	read     []string
	updated  *models.NotificationSettings
}

func (s *stubNotificationService) Notify(context.Context, events.NotificationEvent) {}

func (s *stubNotificationService) Run(context.Context) {}

func (s *stubNotificationService) Handle(context.Context, events.NotificationEvent) error {
	return nil
}

func (s *stubNotificationService) ListNotifications(_ context.Context, userID string, criteria repositories.NotificationCriteria) ([]models.Notification, int64, error) {
	s.criteria = criteria
	n := models.Notification{UserID: userID, Type: models.NotificationTypePaymentSuccess, Message: "Payment received"}
	n.ID = "n1"
	return []models.Notification{n}, 1, nil
}

func (s *stubNotificationService) MarkAsRead(_ context.Context, _, notificationID string) error {
	if notificationID != "n1" {
		return apperrors.ErrNotFound(repositories.ErrNotificationNotFound)
	}
	s.read = append(s.read, notificationID)
	return nil
}

func (s *stubNotificationService) MarkAllAsRead(context.Context, string) (int64, error) {
	return 3, nil
}

func (s *stubNotificationService) UnreadCount(context.Context, string) (int64, error) {
	return 1, nil
}

func (s *stubNotificationService) GetSettings(_ context.Context, userID string) ([]models.NotificationSettings, error) {
	out := make([]models.NotificationSettings, 0, len(models.AllNotificationTypes))
	for _, t := range models.AllNotificationTypes {
		out = append(out, models.NotificationSettings{UserID: userID, Type: t, IsEnabled: true})
	}
	return out, nil
}

func (s *stubNotificationService) UpdateSetting(_ context.Context, userID string, notificationType models.NotificationType, enabled bool) (*models.NotificationSettings, error) {
	s.updated = &models.NotificationSettings{UserID: userID, Type: notificationType, IsEnabled: enabled}
	return s.updated, nil
}

func newNotificationTestRouter(svc *stubNotificationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewNotificationHandler(NewBaseHandler(validator.New()), svc)

	fakeAuth := func(c *gin.Context) {
		c.Set(contextkeys.UserIDKey, "user-1")
	}
	router.GET("/notifications", fakeAuth, h.List)
	router.PATCH("/notifications/:id/read", fakeAuth, h.MarkAsRead)
	router.POST("/notifications/read-all", fakeAuth, h.MarkAllAsRead)
	router.GET("/notifications/settings", fakeAuth, h.GetSettings)
	router.PUT("/notifications/settings", fakeAuth, h.UpdateSetting)
	router.GET("/anonymous/notifications", h.List)
	return router
}

func TestNotificationHandler_List(t *testing.T) {
	svc := &stubNotificationService{}
	rec := do(newNotificationTestRouter(svc), http.MethodGet, "/notifications?unread=true&type=PAYMENT_SUCCESS&limit=5&offset=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Notifications []models.Notification `json:"notifications"`
		Total         int64                 `json:"total"`
		Unread        int64                 `json:"unread"`
		Limit         int                   `json:"limit"`
		Offset        int                   `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "n1", body.Notifications[0].ID)
	assert.Equal(t, int64(1), body.Total)
	assert.Equal(t, int64(1), body.Unread)
	assert.Equal(t, 5, body.Limit)
	assert.Equal(t, 10, body.Offset)

	assert.True(t, svc.criteria.UnreadOnly)
	assert.Equal(t, models.NotificationTypePaymentSuccess, svc.criteria.Type)
}

func TestNotificationHandler_ListRequiresUser(t *testing.T) {
	rec := do(newNotificationTestRouter(&stubNotificationService{}), http.MethodGet, "/anonymous/notifications", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationHandler_MarkAsRead(t *testing.T) {
	svc := &stubNotificationService{}
	router := newNotificationTestRouter(svc)

	rec := do(router, http.MethodPatch, "/notifications/n1/read", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"n1"}, svc.read)

	rec = do(router, http.MethodPatch, "/notifications/missing/read", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/notifications/read-all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":3}`, rec.Body.String())
}

func TestNotificationHandler_Settings(t *testing.T) {
	svc := &stubNotificationService{}
	router := newNotificationTestRouter(svc)

	rec := do(router, http.MethodGet, "/notifications/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Settings []models.NotificationSettings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Settings, len(models.AllNotificationTypes))

	rec = do(router, http.MethodPut, "/notifications/settings", `{"type":"PAYMENT_FAILED","isEnabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated)
	assert.Equal(t, models.NotificationTypePaymentFailed, svc.updated.Type)
	assert.False(t, svc.updated.IsEnabled)

	rec = do(router, http.MethodPut, "/notifications/settings", `{"type":"MARKETING","isEnabled":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPut, "/notifications/settings", `{"type":"PAYMENT_FAILED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
