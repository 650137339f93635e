// Package application 站内通知的应用服务
package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/fooddelivery/internal/notification/domain"
	"github.com/wyfcoding/fooddelivery/pkg/metrics"
)

// NotificationService 通知应用服务
type NotificationService struct {
	notifications domain.NotificationRepository
	metrics       *metrics.Metrics
}

// NewNotificationService 创建通知应用服务
func NewNotificationService(notifications domain.NotificationRepository, m *metrics.Metrics) *NotificationService {
	return &NotificationService{notifications: notifications, metrics: m}
}

// Notify 给用户写一条站内通知
func (s *NotificationService) Notify(ctx context.Context, userID uint, title, message string, kind domain.NotificationType) error {
	err := s.notifications.Create(ctx, &domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if s.metrics != nil {
		s.metrics.NotificationsTotal.Inc()
	}
	return nil
}

// List 用户的通知列表
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.ListByUser(ctx, userID, unreadOnly, limit)
}

// CountUnread 未读数量
func (s *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead 标记单条已读，只能标记自己的
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.notifications.MarkRead(ctx, userID, id)
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.notifications.MarkAllRead(ctx, userID)
}
