// Package messaging 消费信用分变更事件并转为站内通知
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	creditdomain "github.com/wyfcoding/fooddelivery/internal/credit/domain"
	creditmsg "github.com/wyfcoding/fooddelivery/internal/credit/infrastructure/messaging"
	"github.com/wyfcoding/fooddelivery/internal/notification/domain"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/mq"
)

// Notifier 站内通知写入接口，由 notification 应用服务实现
type Notifier interface {
	Notify(ctx context.Context, userID uint, title, message string, kind domain.NotificationType) error
}

// ScoreChangedConsumer 消费 credit.score.changed，把分数变动写成用户可见的站内通知
type ScoreChangedConsumer struct {
	consumer *mq.KafkaConsumer
	notifier Notifier
}

// NewScoreChangedConsumer 创建信用分变更事件消费者
func NewScoreChangedConsumer(cfg mq.KafkaConfig, notifier Notifier) (*ScoreChangedConsumer, error) {
	consumer, err := mq.NewConsumer(cfg, creditmsg.TopicScoreChanged)
	if err != nil {
		return nil, err
	}
	return &ScoreChangedConsumer{consumer: consumer, notifier: notifier}, nil
}

// Run 持续消费直到 ctx 取消。单条消息处理失败只记日志，不中断消费。
func (c *ScoreChangedConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error(ctx, "failed to read score change event", "error", err)
			continue
		}

		if err := c.handle(ctx, msg.Value); err != nil {
			logger.Error(ctx, "failed to handle score change event",
				"key", msg.Key,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// handle 解析事件并写通知。分数未变不打扰用户。
func (c *ScoreChangedConsumer) handle(ctx context.Context, payload []byte) error {
	var event creditdomain.ScoreChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal score change event: %w", err)
	}
	if event.NewScore == event.OldScore {
		return nil
	}

	kind := domain.NotificationTypeInfo
	title := "Credit Score Updated"
	message := fmt.Sprintf("Your credit score changed from %d to %d. Reason: %s",
		event.OldScore, event.NewScore, event.Reason)

	switch {
	case event.Status == creditdomain.TierBlocked:
		kind = domain.NotificationTypeError
		title = "Account Restricted"
		message = fmt.Sprintf("Your credit score dropped to %d and ordering is now blocked. Reason: %s",
			event.NewScore, event.Reason)
	case event.NewScore < event.OldScore:
		kind = domain.NotificationTypeWarning
	}

	return c.notifier.Notify(ctx, event.UserID, title, message, kind)
}

// Close 关闭底层消费者
func (c *ScoreChangedConsumer) Close() error {
	return c.consumer.Close()
}
