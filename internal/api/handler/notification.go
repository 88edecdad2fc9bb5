package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/doctranslate/internal/notify"
)

// Notifications is the outcome message queue.
type Notifications interface {
	Views() []notify.View
	Remove(id string) bool
}

// NotificationHandler exposes the notification queue.
type NotificationHandler struct {
	queue Notifications
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(queue Notifications) *NotificationHandler {
	return &NotificationHandler{queue: queue}
}

// List handles GET /api/v1/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	views := h.queue.Views()
	c.JSON(http.StatusOK, gin.H{
		"notifications": views,
		"total":         len(views),
	})
}

// Dismiss handles DELETE /api/v1/notifications/:id.
// Dismissing an expired or unknown notification succeeds too.
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	h.queue.Remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}
