package domain

import "context"

// CreditRepository 用户信用状态仓储。
// GetStateForUpdate 必须在事务内对用户行加锁，保证同一用户的
// 读当前分 → 写新分 → 追加台账 作为一个串行化单元执行。
type CreditRepository interface {
	// GetState 读取用户当前信用快照；用户不存在时返回 ErrUserNotFound
	GetState(ctx context.Context, userID uint) (*CreditState, error)
	// GetStateForUpdate 同 GetState，但对用户行加排他锁（仅在事务内调用）
	GetStateForUpdate(ctx context.Context, userID uint) (*CreditState, error)
	// UpdateState 持久化 {score, status, last_credit_update}
	UpdateState(ctx context.Context, state *CreditState) error
}

// StatsRepository 订单行为统计聚合
type StatsRepository interface {
	// AggregateForUser 聚合用户的订单行为统计；无订单时返回零值统计
	AggregateForUser(ctx context.Context, userID uint) (*BehaviorStats, error)
}

// HistoryRepository 信用变更台账仓储
type HistoryRepository interface {
	// Append 追加一条台账记录
	Append(ctx context.Context, entry *CreditHistory) error
	// ListRecent 按时间倒序返回用户最近的台账记录
	ListRecent(ctx context.Context, userID uint, limit int) ([]*CreditHistory, error)
}

// EventPublisher 信用分变更集成事件发布
type EventPublisher interface {
	PublishScoreChanged(ctx context.Context, event *ScoreChangedEvent) error
}
