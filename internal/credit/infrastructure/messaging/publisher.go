// Package messaging 信用分集成事件的 Kafka 发布
package messaging

import (
	"context"
	"strconv"

	"github.com/wyfcoding/fooddelivery/internal/credit/domain"
	"github.com/wyfcoding/fooddelivery/pkg/mq"
)

// TopicScoreChanged 信用分变更事件主题
const TopicScoreChanged = "credit.score.changed"

// kafkaPublisher 信用分事件发布器
type kafkaPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaPublisher 创建信用分事件发布器
func NewKafkaPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &kafkaPublisher{producer: producer}
}

// PublishScoreChanged 以 user_id 为 key 发布，保证同一用户事件有序
func (p *kafkaPublisher) PublishScoreChanged(ctx context.Context, event *domain.ScoreChangedEvent) error {
	key := strconv.FormatUint(uint64(event.UserID), 10)
	return p.producer.SendMessage(ctx, TopicScoreChanged, key, event)
}
