package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/fooddelivery/internal/credit/domain"
	"github.com/wyfcoding/fooddelivery/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// creditRepository 用户信用状态仓储实现
type creditRepository struct {
	db *gorm.DB
}

// NewCreditRepository 创建并返回一个新的 creditRepository 实例
func NewCreditRepository(gdb *gorm.DB) domain.CreditRepository {
	return &creditRepository{db: gdb}
}

func (r *creditRepository) GetState(ctx context.Context, userID uint) (*domain.CreditState, error) {
	return r.getState(ctx, userID, false)
}

// GetStateForUpdate 行锁读取，必须在事务 context 内调用
func (r *creditRepository) GetStateForUpdate(ctx context.Context, userID uint) (*domain.CreditState, error) {
	return r.getState(ctx, userID, true)
}

func (r *creditRepository) getState(ctx context.Context, userID uint, forUpdate bool) (*domain.CreditState, error) {
	query := r.getDB(ctx).WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model userCreditModel
	if err := query.Where("id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	state := &domain.CreditState{
		UserID: model.ID,
		Score:  model.CreditScore,
		Status: domain.Tier(model.CreditStatus),
	}
	if model.LastCreditUpdate != nil {
		state.LastCreditUpdate = *model.LastCreditUpdate
	}
	return state, nil
}

func (r *creditRepository) UpdateState(ctx context.Context, state *domain.CreditState) error {
	result := r.getDB(ctx).WithContext(ctx).
		Model(&userCreditModel{}).
		Where("id = ?", state.UserID).
		Updates(map[string]any{
			"credit_score":       state.Score,
			"credit_status":      string(state.Status),
			"last_credit_update": state.LastCreditUpdate,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *creditRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// statsRepository 订单行为统计聚合实现。
// 商家评价通过 customer_feedback 表按订单关联取均值（orders 表上的同名列
// 没有任何写入路径，不能作为聚合来源）；配送评价取 orders.delivery_feedback。
type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository 创建行为统计仓储
func NewStatsRepository(gdb *gorm.DB) domain.StatsRepository {
	return &statsRepository{db: gdb}
}

func (r *statsRepository) AggregateForUser(ctx context.Context, userID uint) (*domain.BehaviorStats, error) {
	var row behaviorStatsRow
	err := r.getDB(ctx).WithContext(ctx).Raw(`
		SELECT
			COUNT(o.id)                                                          AS total_orders,
			COALESCE(SUM(CASE WHEN o.status = 'delivered' THEN 1 ELSE 0 END), 0) AS completed_orders,
			COALESCE(SUM(CASE WHEN o.status = 'cancelled' THEN 1 ELSE 0 END), 0) AS cancelled_orders,
			COALESCE(SUM(CASE WHEN o.payment_status = 'failed' THEN 1 ELSE 0 END), 0) AS failed_payments,
			COALESCE(AVG(cf.overall_rating), 0)                                  AS avg_restaurant_feedback,
			COALESCE(AVG(o.delivery_feedback), 0)                                AS avg_delivery_feedback
		FROM orders o
		LEFT JOIN customer_feedback cf ON cf.order_id = o.id
		WHERE o.user_id = ?`, userID).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &domain.BehaviorStats{
		TotalOrders:           row.TotalOrders,
		CompletedOrders:       row.CompletedOrders,
		CancelledOrders:       row.CancelledOrders,
		FailedPayments:        row.FailedPayments,
		AvgRestaurantFeedback: row.AvgRestaurantFeedback,
		AvgDeliveryFeedback:   row.AvgDeliveryFeedback,
	}, nil
}

func (r *statsRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// historyRepository 信用变更台账仓储实现
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建台账仓储
func NewHistoryRepository(gdb *gorm.DB) domain.HistoryRepository {
	return &historyRepository{db: gdb}
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.CreditHistory) error {
	return r.getDB(ctx).WithContext(ctx).Create(entry).Error
}

func (r *historyRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]*domain.CreditHistory, error) {
	if limit <= 0 {
		limit = 10
	}

	var entries []*domain.CreditHistory
	err := r.getDB(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}
