// Package mysql 订单与顾客评价的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/fooddelivery/internal/order/domain"
	"github.com/wyfcoding/fooddelivery/pkg/db"
	"gorm.io/gorm"
)

// orderRepository 订单仓储实现
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(gdb *gorm.DB) domain.OrderRepository {
	return &orderRepository{db: gdb}
}

// Create 订单和明细一起落库，依赖 gorm 的关联写入
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.getDB(ctx).WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	if err := r.getDB(ctx).WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetWithItems(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	err := r.getDB(ctx).WithContext(ctx).Preload("Items").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.getDB(ctx).WithContext(ctx).Omit("Items").Save(order).Error
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*domain.Order, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []*domain.Order
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) ListByRestaurant(ctx context.Context, restaurantID uint, status domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Order{}).Where("restaurant_id = ?", restaurantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []*domain.Order
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// feedbackRepository 顾客评价仓储实现
type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository 创建顾客评价仓储
func NewFeedbackRepository(gdb *gorm.DB) domain.FeedbackRepository {
	return &feedbackRepository{db: gdb}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *domain.CustomerFeedback) error {
	return r.getDB(ctx).WithContext(ctx).Create(feedback).Error
}

func (r *feedbackRepository) ExistsForOrder(ctx context.Context, orderID uint) (bool, error) {
	var count int64
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.CustomerFeedback{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *feedbackRepository) ListByRestaurant(ctx context.Context, restaurantID uint, limit int) ([]*domain.CustomerFeedback, error) {
	var feedback []*domain.CustomerFeedback
	err := r.getDB(ctx).WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&feedback).Error
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

// ListPendingOrders 已送达但商家还没评价的订单
func (r *feedbackRepository) ListPendingOrders(ctx context.Context, restaurantID uint, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Order{}).
		Where("orders.restaurant_id = ? AND orders.status = ?", restaurantID, domain.StatusDelivered).
		Where("NOT EXISTS (SELECT 1 FROM customer_feedback cf WHERE cf.order_id = orders.id)").
		Order("orders.created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *feedbackRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}
