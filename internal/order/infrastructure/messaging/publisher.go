// Package messaging 订单集成事件的 Kafka 发布
package messaging

import (
	"context"
	"strconv"

	"github.com/wyfcoding/fooddelivery/internal/order/domain"
	"github.com/wyfcoding/fooddelivery/pkg/mq"
)

// TopicOrderStatusChanged 订单状态变更事件主题
const TopicOrderStatusChanged = "order.status.changed"

// kafkaPublisher 订单事件发布器
type kafkaPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaPublisher 创建订单事件发布器
func NewKafkaPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &kafkaPublisher{producer: producer}
}

// PublishStatusChanged 以 order_id 为 key 发布，保证同一订单事件有序
func (p *kafkaPublisher) PublishStatusChanged(ctx context.Context, event *domain.OrderStatusChangedEvent) error {
	key := strconv.FormatUint(uint64(event.OrderID), 10)
	return p.producer.SendMessage(ctx, TopicOrderStatusChanged, key, event)
}
