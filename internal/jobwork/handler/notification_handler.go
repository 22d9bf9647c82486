package handler

import (
	"github.com/bitfantasy/jobwork/internal/jobwork/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知接口
type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List 用户通知（含租户广播）
// GET /api/v1/notifications?unread_only=true
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread_only") == "true"
	notifs, unread, err := h.svc.ListForUser(c.Request.Context(), GetTenantID(c), GetUserID(c), unreadOnly)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": notifs, "unread_count": unread})
}

// MarkRead 标记通知已读
// PATCH /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.svc.MarkRead(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, n)
}
