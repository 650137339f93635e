// Package domain 订单与顾客评价的领域模型
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusAccepted       OrderStatus = "accepted"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentCOD        PaymentMethod = "cod"
	PaymentCard       PaymentMethod = "card"
	PaymentWallet     PaymentMethod = "wallet"
	PaymentNetbanking PaymentMethod = "netbanking"
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrEmptyCart 购物车为空或全部菜品不可售
	ErrEmptyCart = errors.New("cart is empty or has no available items")
	// ErrRestaurantClosed 商家未营业
	ErrRestaurantClosed = errors.New("restaurant is closed")
	// ErrCustomerBlocked 顾客信用等级为 blocked，拒绝下单
	ErrCustomerBlocked = errors.New("customer is blocked due to low credit score")
	// ErrOrderNotCancellable 当前状态不允许取消
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	// ErrInvalidTransition 非法状态流转
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrUnauthorized 无权操作该订单
	ErrUnauthorized = errors.New("not allowed to operate on this order")
	// ErrFeedbackExists 该订单已有评价
	ErrFeedbackExists = errors.New("feedback already submitted for this order")
	// ErrInvalidRating 评分必须在 1~5
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrInvalidPaymentMethod 非法支付方式
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// Order 订单实体。金额全部用 decimal 存取。
type Order struct {
	gorm.Model
	// OrderNumber 对外订单号
	OrderNumber string `gorm:"column:order_number;type:varchar(50);uniqueIndex;not null" json:"order_number"`
	// UserID 下单顾客
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// RestaurantID 接单商家
	RestaurantID uint `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	// TotalAmount 菜品小计
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(10,2);not null" json:"total_amount"`
	// DeliveryFee 配送费
	DeliveryFee decimal.Decimal `gorm:"column:delivery_fee;type:decimal(10,2);not null;default:0" json:"delivery_fee"`
	// DiscountAmount 信用折扣金额
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:decimal(10,2);not null;default:0" json:"discount_amount"`
	// FinalAmount 应付金额
	FinalAmount decimal.Decimal `gorm:"column:final_amount;type:decimal(10,2);not null" json:"final_amount"`
	// DeliveryAddress 收货地址
	DeliveryAddress string `gorm:"column:delivery_address;type:varchar(255);not null" json:"delivery_address"`
	// PaymentMethod 支付方式
	PaymentMethod PaymentMethod `gorm:"column:payment_method;type:varchar(20);not null;default:'cod'" json:"payment_method"`
	// PaymentStatus 支付状态
	PaymentStatus PaymentStatus `gorm:"column:payment_status;type:varchar(20);not null;default:'pending'" json:"payment_status"`
	// Status 订单状态
	Status OrderStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	// CustomerCreditScore 下单时刻的顾客信用分快照
	CustomerCreditScore int `gorm:"column:customer_credit_score" json:"customer_credit_score"`
	// DeliveryFeedback 顾客对配送的评分
	DeliveryFeedback *float64 `gorm:"column:delivery_feedback;type:decimal(2,1)" json:"delivery_feedback,omitempty"`
	// CancelledBy 取消方角色
	CancelledBy string `gorm:"column:cancelled_by;type:varchar(20)" json:"cancelled_by,omitempty"`
	// CancellationReason 取消原因
	CancellationReason string `gorm:"column:cancellation_reason;type:text" json:"cancellation_reason,omitempty"`
	// EstimatedDeliveryTime 预计送达时间
	EstimatedDeliveryTime *time.Time `gorm:"column:estimated_delivery_time" json:"estimated_delivery_time,omitempty"`
	// ActualDeliveryTime 实际送达时间
	ActualDeliveryTime *time.Time `gorm:"column:actual_delivery_time" json:"actual_delivery_time,omitempty"`
	// Items 订单明细
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单明细项，价格为下单时刻快照
type OrderItem struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	OrderID    uint            `gorm:"column:order_id;index;not null" json:"order_id"`
	MenuItemID uint            `gorm:"column:menu_item_id;not null" json:"menu_item_id"`
	Quantity   int             `gorm:"column:quantity;not null" json:"quantity"`
	Price      decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	Notes      string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// CustomerFeedback 商家对顾客的评价，一单一评
type CustomerFeedback struct {
	gorm.Model
	// RestaurantID 评价方商家
	RestaurantID uint `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	// UserID 被评价顾客
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// OrderID 关联订单，唯一
	OrderID uint `gorm:"column:order_id;uniqueIndex;not null" json:"order_id"`
	// PolitenessRating 礼貌程度 1~5
	PolitenessRating int `gorm:"column:politeness_rating;not null" json:"politeness_rating"`
	// PickupPunctuality 取餐准时程度 1~5
	PickupPunctuality int `gorm:"column:pickup_punctuality;not null" json:"pickup_punctuality"`
	// OrderAuthenticity 订单真实性 1~5
	OrderAuthenticity int `gorm:"column:order_authenticity;not null" json:"order_authenticity"`
	// OverallRating 三项均值
	OverallRating float64 `gorm:"column:overall_rating;type:decimal(2,1);not null" json:"overall_rating"`
	// Comments 评语
	Comments string `gorm:"column:comments;type:text" json:"comments"`
}

// TableName 指定表名
func (CustomerFeedback) TableName() string {
	return "customer_feedback"
}

// NewOrderNumber 生成对外订单号
func NewOrderNumber() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// ValidPaymentMethod 校验支付方式取值
func ValidPaymentMethod(method PaymentMethod) bool {
	switch method {
	case PaymentCOD, PaymentCard, PaymentWallet, PaymentNetbanking:
		return true
	}
	return false
}

// 商家侧允许的状态流转
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusAccepted, StatusCancelled},
	StatusAccepted:       {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
}

// CanTransition 判断状态流转是否合法
func CanTransition(from, to OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable 判断订单当前是否还能取消
func (o *Order) Cancellable() bool {
	switch o.Status {
	case StatusDelivered, StatusCancelled, StatusOutForDelivery:
		return false
	}
	return true
}

// OrderStatusChangedEvent 订单状态变更集成事件
type OrderStatusChangedEvent struct {
	OrderID      uint        `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	UserID       uint        `json:"user_id"`
	RestaurantID uint        `json:"restaurant_id"`
	OldStatus    OrderStatus `json:"old_status"`
	NewStatus    OrderStatus `json:"new_status"`
	ChangedBy    string      `json:"changed_by"`
	ChangedAt    time.Time   `json:"changed_at"`
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	GetWithItems(ctx context.Context, id uint) (*Order, error)
	Update(ctx context.Context, order *Order) error
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*Order, int64, error)
	ListByRestaurant(ctx context.Context, restaurantID uint, status OrderStatus, offset, limit int) ([]*Order, int64, error)
}

// FeedbackRepository 顾客评价仓储接口
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *CustomerFeedback) error
	ExistsForOrder(ctx context.Context, orderID uint) (bool, error)
	ListByRestaurant(ctx context.Context, restaurantID uint, limit int) ([]*CustomerFeedback, error)
	ListPendingOrders(ctx context.Context, restaurantID uint, limit int) ([]*Order, error)
}

// EventPublisher 订单集成事件发布接口
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event *OrderStatusChangedEvent) error
}
