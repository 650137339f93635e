// Package mysql 信用分子系统的 MySQL 持久化实现
package mysql

import "time"

// userCreditModel users 表中信用相关列的投影
type userCreditModel struct {
	ID               uint       `gorm:"column:id;primaryKey"`
	CreditScore      int        `gorm:"column:credit_score"`
	CreditStatus     string     `gorm:"column:credit_status"`
	LastCreditUpdate *time.Time `gorm:"column:last_credit_update"`
}

func (userCreditModel) TableName() string { return "users" }

// behaviorStatsRow 行为统计聚合结果
type behaviorStatsRow struct {
	TotalOrders           int     `gorm:"column:total_orders"`
	CompletedOrders       int     `gorm:"column:completed_orders"`
	CancelledOrders       int     `gorm:"column:cancelled_orders"`
	FailedPayments        int     `gorm:"column:failed_payments"`
	AvgRestaurantFeedback float64 `gorm:"column:avg_restaurant_feedback"`
	AvgDeliveryFeedback   float64 `gorm:"column:avg_delivery_feedback"`
}
