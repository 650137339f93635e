// Package http 通知模块的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/fooddelivery/internal/notification/application"
	"github.com/wyfcoding/fooddelivery/internal/notification/domain"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/middleware"
)

// NotificationHandler 通知 HTTP 处理器
type NotificationHandler struct {
	notifications *application.NotificationService
}

// NewNotificationHandler 创建通知 HTTP 处理器
func NewNotificationHandler(notifications *application.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterRoutes 注册路由
func (h *NotificationHandler) RegisterRoutes(api *gin.RouterGroup, issuer *middleware.TokenIssuer) {
	authed := api.Group("/notifications", middleware.GinAuthMiddleware(issuer))
	{
		authed.GET("", h.List)
		authed.GET("/unread-count", h.CountUnread)
		authed.PUT("/:id/read", h.MarkRead)
		authed.PUT("/read-all", h.MarkAllRead)
	}
}

// List 通知列表，unread=true 时只返回未读
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	unreadOnly := c.DefaultQuery("unread", "false") == "true"

	notifications, err := h.notifications.List(c.Request.Context(), middleware.CurrentUserID(c), unreadOnly, limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// CountUnread 未读数量
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	count, err := h.notifications.CountUnread(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead 标记单条已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), uint(id)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

func (h *NotificationHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
	default:
		logger.Error(c.Request.Context(), "notification request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
