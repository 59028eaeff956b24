package handlers

import (
	"net/http"

	"platform_backend/internal/models"
	"platform_backend/internal/repositories"
	"platform_backend/internal/services"
	"platform_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	*BaseHandler
	service services.NotificationService
}

func NewNotificationHandler(base *BaseHandler, service services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	limit, offset := ParsePagination(c)
	criteria := repositories.NotificationCriteria{
		UnreadOnly: c.Query("unread") == "true",
		Type:       models.NotificationType(c.Query("type")),
		Limit:      limit,
		Offset:     offset,
	}

	ctx := c.Request.Context()
	notifications, total, err := h.service.ListNotifications(ctx, userID, criteria)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	unread, err := h.service.UnreadCount(ctx, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NotificationListResponse{
		Notifications: notifications,
		Total:         total,
		Unread:        unread,
		Limit:         limit,
		Offset:        offset,
	})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	if err := h.service.MarkAsRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	updated, err := h.service.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *NotificationHandler) GetSettings(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	settings, err := h.service.GetSettings(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *NotificationHandler) UpdateSetting(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateNotificationSettingRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	settings, err := h.service.UpdateSetting(c.Request.Context(), userID, req.Type, *req.IsEnabled)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
