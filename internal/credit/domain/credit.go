// Package domain 信用分子系统的领域模型：行为统计、评分规则、信用等级与变更台账
package domain

import (
	"time"

	"gorm.io/gorm"
)

// DefaultScore 新用户的初始信用分，也是评分规则的基准分
const DefaultScore = 70

// Tier 信用等级
type Tier string

const (
	TierTrusted Tier = "trusted"
	TierGood    Tier = "good"
	TierAverage Tier = "average"
	TierRisky   Tier = "risky"
	TierBlocked Tier = "blocked"
)

// TierFor 根据信用分计算信用等级。
// 等级区间为 [0,100] 的完整划分：>=90 trusted, >=75 good, >=50 average, >=30 risky, 其余 blocked。
// 所有写路径（重算、管理员覆盖、初始化）必须经由此函数，等级不允许独立存储修改。
func TierFor(score int) Tier {
	switch {
	case score >= 90:
		return TierTrusted
	case score >= 75:
		return TierGood
	case score >= 50:
		return TierAverage
	case score >= 30:
		return TierRisky
	default:
		return TierBlocked
	}
}

// DiscountPercent 等级对应的下单折扣百分比
func (t Tier) DiscountPercent() int {
	switch t {
	case TierTrusted:
		return 20
	case TierGood:
		return 15
	case TierAverage:
		return 10
	case TierRisky:
		return 5
	default:
		return 0
	}
}

// Trigger 信用分变更的触发来源
type Trigger string

const (
	TriggerSystem     Trigger = "system"
	TriggerAdmin      Trigger = "admin"
	TriggerRestaurant Trigger = "restaurant"
	TriggerDelivery   Trigger = "delivery"
)

// BehaviorStats 用户的订单行为统计，每次重算时从订单历史现查，不单独落库
type BehaviorStats struct {
	TotalOrders           int
	CompletedOrders       int
	CancelledOrders       int
	FailedPayments        int
	AvgRestaurantFeedback float64
	AvgDeliveryFeedback   float64
}

// CreditHistory 信用分变更台账，只追加，不修改不删除
type CreditHistory struct {
	gorm.Model
	UserID       uint    `gorm:"column:user_id;index;not null" json:"user_id"`
	OldScore     int     `gorm:"column:old_score;not null" json:"old_score"`
	NewScore     int     `gorm:"column:new_score;not null" json:"new_score"`
	ChangeAmount int     `gorm:"column:change_amount;not null" json:"change_amount"`
	Reason       string  `gorm:"column:reason;type:varchar(255)" json:"reason"`
	TriggeredBy  Trigger `gorm:"column:triggered_by;type:varchar(20);not null" json:"triggered_by"`
	ReferenceID  *uint   `gorm:"column:reference_id" json:"reference_id,omitempty"`
}

func (CreditHistory) TableName() string { return "credit_history" }

// CreditState 用户当前的信用快照
type CreditState struct {
	UserID           uint      `json:"user_id"`
	Score            int       `json:"score"`
	Status           Tier      `json:"status"`
	LastCreditUpdate time.Time `json:"last_credit_update"`
}

// ScoreChangedEvent 信用分变更集成事件
type ScoreChangedEvent struct {
	UserID      uint      `json:"user_id"`
	OldScore    int       `json:"old_score"`
	NewScore    int       `json:"new_score"`
	Status      Tier      `json:"status"`
	TriggeredBy Trigger   `json:"triggered_by"`
	Reason      string    `json:"reason"`
	ChangedAt   time.Time `json:"changed_at"`
}
