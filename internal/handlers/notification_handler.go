package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"helpdesk-realtime-api/internal/events"
	"helpdesk-realtime-api/internal/middleware"
	"helpdesk-realtime-api/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier pushes realtime events to connected users.
type Notifier interface {
	SendNotification(userID int64, n *events.Notification) error
	ToUser(userID int64, e events.Event) error
	BroadcastSystemAlert(severity events.AlertSeverity, title, message string) error
}

// CreateNotificationRequest represents the request payload for creating a notification
type CreateNotificationRequest struct {
	UserID   int64          `json:"userId" binding:"required,gt=0"`
	Title    string         `json:"title" binding:"required"`
	Message  string         `json:"message" binding:"required"`
	Type     string         `json:"type"`
	Category string         `json:"category"`
	Link     string         `json:"link"`
	Icon     string         `json:"icon"`
	Metadata map[string]any `json:"metadata"`
}

// SystemAlertRequest represents the request payload for POST /api/alerts
type SystemAlertRequest struct {
	Severity events.AlertSeverity `json:"severity" binding:"required,oneof=info warning critical"`
	Title    string               `json:"title" binding:"required"`
	Message  string               `json:"message" binding:"required"`
}

type NotificationHandler struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewNotificationHandler(db *gorm.DB, notifier Notifier, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{db: db, notifier: notifier, log: log, now: time.Now}
}

/*
CreateNotification handles POST /api/notifications
Persists the notification and pushes it to the recipient's connections.
The recipient must be the caller or a user of the caller's company.
*/
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if req.UserID != p.ID {
		var recipient models.User
		err := h.db.Select("id", "company_id").First(&recipient, req.UserID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up recipient"})
			return
		}
		if !sameCompany(p.CompanyID, recipient.CompanyID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Recipient is outside your company"})
			return
		}
	}

	notifType := strings.TrimSpace(req.Type)
	if notifType == "" {
		notifType = "info"
	}

	n := models.Notification{
		UserID:   req.UserID,
		Title:    req.Title,
		Message:  req.Message,
		Type:     notifType,
		Category: req.Category,
		Link:     req.Link,
		Icon:     req.Icon,
		Metadata: req.Metadata,
	}
	if err := h.db.Create(&n).Error; err != nil {
		h.log.Error("create notification failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create notification"})
		return
	}

	// the row is the source of truth; a failed push is picked up on the next list call
	if err := h.notifier.SendNotification(n.UserID, n.Event()); err != nil {
		h.log.Warn("notification push failed", zap.String("notification_id", n.ID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, n)
}

/*
GetNotifications handles GET /api/notifications
Returns the caller's notifications, newest first.
Query params: page (default 1), limit (default 20, max 100), unread=true.
*/
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	unreadOnly := strings.EqualFold(c.Query("unread"), "true")

	query := h.db.Model(&models.Notification{}).Where("user_id = ?", p.ID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	var unread int64
	if err := h.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", p.ID, false).
		Count(&unread).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	notifications := []models.Notification{}
	if err := query.Session(&gorm.Session{}).
		Order("created_at desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
		"total":         total,
		"unreadCount":   unread,
		"page":          page,
		"limit":         limit,
	})
}

/*
MarkNotificationRead handles PATCH /api/notifications/:id/read
Only the recipient may mark a notification read. Repeating the call is harmless.
*/
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var n models.Notification
	err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), p.ID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notification"})
		return
	}

	if !n.Read {
		readAt := h.now()
		if err := h.db.Model(&n).Updates(map[string]any{"read": true, "read_at": readAt}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
			return
		}
		n.Read = true
		n.ReadAt = &readAt
	}

	// lets the user's other tabs drop the unread badge
	if err := h.notifier.ToUser(p.ID, &events.NotificationReadAck{NotificationID: n.ID}); err != nil {
		h.log.Warn("read ack push failed", zap.String("notification_id", n.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, n)
}

// CreateSystemAlert handles POST /api/alerts
func (h *NotificationHandler) CreateSystemAlert(c *gin.Context) {
	var req SystemAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.notifier.BroadcastSystemAlert(req.Severity, req.Title, req.Message); err != nil {
		h.log.Error("system alert broadcast failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to broadcast alert"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":  "Alert broadcast",
		"severity": req.Severity,
	})
}

func sameCompany(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
