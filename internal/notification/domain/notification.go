// Package domain 站内通知的领域模型
package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeError   NotificationType = "error"
)

// ErrNotificationNotFound 通知不存在
var ErrNotificationNotFound = errors.New("notification not found")

// Notification 站内通知实体。只落库，不做邮件/短信投递。
type Notification struct {
	gorm.Model
	// UserID 接收用户
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// Title 标题
	Title string `gorm:"column:title;type:varchar(100);not null" json:"title"`
	// Message 内容
	Message string `gorm:"column:message;type:text;not null" json:"message"`
	// Type 通知类型
	Type NotificationType `gorm:"column:type;type:varchar(20);not null;default:'info'" json:"type"`
	// IsRead 是否已读
	IsRead bool `gorm:"column:is_read;not null;default:false;index" json:"is_read"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) error
}
