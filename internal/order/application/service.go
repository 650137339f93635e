// Package application 订单生命周期的应用服务：下单、取消、流转、评价
package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	creditdomain "github.com/wyfcoding/fooddelivery/internal/credit/domain"
	notifdomain "github.com/wyfcoding/fooddelivery/internal/notification/domain"
	"github.com/wyfcoding/fooddelivery/internal/order/domain"
	restdomain "github.com/wyfcoding/fooddelivery/internal/restaurant/domain"
	userdomain "github.com/wyfcoding/fooddelivery/internal/user/domain"
	"github.com/wyfcoding/fooddelivery/pkg/db"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/metrics"
	"gorm.io/gorm"
)

// TxManager 事务边界，*gorm.DB 天然满足
type TxManager interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// MenuReader 菜单读接口，由 restaurant 模块实现
type MenuReader interface {
	GetByIDs(ctx context.Context, ids []uint) ([]*restdomain.MenuItem, error)
}

// RestaurantReader 商家读接口，由 restaurant 模块实现
type RestaurantReader interface {
	GetByID(ctx context.Context, id uint) (*restdomain.Restaurant, error)
	GetByUserID(ctx context.Context, userID uint) (*restdomain.Restaurant, error)
}

// CreditService 信用分接口，由 credit 模块实现
type CreditService interface {
	GetState(ctx context.Context, userID uint) (*creditdomain.CreditState, error)
	Recompute(ctx context.Context, userID uint, trigger creditdomain.Trigger, reason string, referenceID *uint) (int, error)
}

// Notifier 站内通知接口，由 notification 模块实现
type Notifier interface {
	Notify(ctx context.Context, userID uint, title, message string, kind notifdomain.NotificationType) error
}

// 满 500 免配送费
var (
	deliveryFee       = decimal.NewFromInt(30)
	freeDeliveryAbove = decimal.NewFromInt(500)
	oneHundred        = decimal.NewFromInt(100)
)

// OrderService 订单应用服务
type OrderService struct {
	db          TxManager
	orders      domain.OrderRepository
	feedback    domain.FeedbackRepository
	menu        MenuReader
	restaurants RestaurantReader
	credit      CreditService
	notifier    Notifier
	events      domain.EventPublisher // 可为 nil
	metrics     *metrics.Metrics      // 可为 nil
}

// NewOrderService 创建订单应用服务
func NewOrderService(
	gdb TxManager,
	orders domain.OrderRepository,
	feedback domain.FeedbackRepository,
	menu MenuReader,
	restaurants RestaurantReader,
	credit CreditService,
	notifier Notifier,
	events domain.EventPublisher,
	m *metrics.Metrics,
) *OrderService {
	return &OrderService{
		db:          gdb,
		orders:      orders,
		feedback:    feedback,
		menu:        menu,
		restaurants: restaurants,
		credit:      credit,
		notifier:    notifier,
		events:      events,
		metrics:     m,
	}
}

// CartItem 结算购物车条目
type CartItem struct {
	MenuItemID uint
	Quantity   int
	Notes      string
}

// CheckoutCommand 结算命令
type CheckoutCommand struct {
	UserID          uint
	RestaurantID    uint
	Items           []CartItem
	DeliveryAddress string
	PaymentMethod   domain.PaymentMethod
}

// Checkout 从购物车创建订单。
// 折扣按下单时刻的信用等级计算并把当时的信用分快照进订单；
// blocked 等级的顾客直接拒单。不可售或不属于该商家的菜品会被跳过。
func (s *OrderService) Checkout(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error) {
	if len(cmd.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if cmd.PaymentMethod == "" {
		cmd.PaymentMethod = domain.PaymentCOD
	}
	if !domain.ValidPaymentMethod(cmd.PaymentMethod) {
		return nil, domain.ErrInvalidPaymentMethod
	}

	restaurant, err := s.restaurants.GetByID(ctx, cmd.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !restaurant.IsOpen {
		return nil, domain.ErrRestaurantClosed
	}

	state, err := s.credit.GetState(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("load credit state: %w", err)
	}
	if state.Status == creditdomain.TierBlocked {
		return nil, domain.ErrCustomerBlocked
	}

	ids := make([]uint, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		ids = append(ids, item.MenuItemID)
	}
	menuItems, err := s.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	prices := make(map[uint]decimal.Decimal, len(menuItems))
	for _, item := range menuItems {
		if item.IsAvailable && item.RestaurantID == cmd.RestaurantID {
			prices[item.ID] = item.Price
		}
	}

	total := decimal.Zero
	orderItems := make([]domain.OrderItem, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		price, ok := prices[item.MenuItemID]
		if !ok || item.Quantity <= 0 {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		orderItems = append(orderItems, domain.OrderItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Price:      price,
			Notes:      item.Notes,
		})
	}
	if total.IsZero() {
		return nil, domain.ErrEmptyCart
	}

	fee := deliveryFee
	if total.GreaterThanOrEqual(freeDeliveryAbove) {
		fee = decimal.Zero
	}
	discount := total.
		Mul(decimal.NewFromInt(int64(state.Status.DiscountPercent()))).
		Div(oneHundred).
		Round(2)
	final := total.Add(fee).Sub(discount)

	paymentStatus := domain.PaymentStatusPending
	if cmd.PaymentMethod != domain.PaymentCOD {
		paymentStatus = domain.PaymentStatusCompleted
	}

	estimated := time.Now().Add(time.Duration(restaurant.AvgPrepTime+30) * time.Minute)
	order := &domain.Order{
		OrderNumber:           domain.NewOrderNumber(),
		UserID:                cmd.UserID,
		RestaurantID:          cmd.RestaurantID,
		TotalAmount:           total,
		DeliveryFee:           fee,
		DiscountAmount:        discount,
		FinalAmount:           final,
		DeliveryAddress:       cmd.DeliveryAddress,
		PaymentMethod:         cmd.PaymentMethod,
		PaymentStatus:         paymentStatus,
		Status:                domain.StatusPending,
		CustomerCreditScore:   state.Score,
		EstimatedDeliveryTime: &estimated,
		Items:                 orderItems,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.orders.Create(db.TxToContext(ctx, tx), order)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.notify(ctx, restaurant.UserID, "New Order",
		fmt.Sprintf("You have a new order #%s (Total: %s)", order.OrderNumber, final.StringFixed(2)),
		notifdomain.NotificationTypeInfo)
	s.notify(ctx, cmd.UserID, "Order Confirmed",
		fmt.Sprintf("Your order #%s has been placed successfully. Total: %s", order.OrderNumber, final.StringFixed(2)),
		notifdomain.NotificationTypeSuccess)

	if s.metrics != nil {
		s.metrics.OrdersPlacedTotal.Inc()
	}
	logger.Info(ctx, "order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"user_id", cmd.UserID,
		"restaurant_id", cmd.RestaurantID,
		"final_amount", final.StringFixed(2),
	)
	return order, nil
}

// Cancel 取消订单。顾客本人、接单商家与管理员可取消；
// 顾客取消会触发信用分重算并收到预警通知。
func (s *OrderService) Cancel(ctx context.Context, actorID uint, role string, orderID uint, reason string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actorID, role, order); err != nil {
		return nil, err
	}
	if !order.Cancellable() {
		return nil, domain.ErrOrderNotCancellable
	}

	// cancelled_by 枚举没有 admin，管理员取消按 system 记录
	cancelledBy := role
	if role == userdomain.RoleAdmin {
		cancelledBy = "system"
	}

	oldStatus := order.Status
	order.Status = domain.StatusCancelled
	order.CancelledBy = cancelledBy
	order.CancellationReason = reason
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if role == userdomain.RoleCustomer {
		s.recompute(ctx, order.UserID, creditdomain.TriggerSystem,
			fmt.Sprintf("Order cancellation: %s", reason), orderID)
		s.notify(ctx, order.UserID, "Credit Score Impact",
			fmt.Sprintf("Your credit score has been affected due to order cancellation. Reason: %s", reason),
			notifdomain.NotificationTypeWarning)
	} else {
		s.notify(ctx, order.UserID, "Order Update",
			"Your order has been cancelled by the restaurant.",
			notifdomain.NotificationTypeInfo)
	}

	if s.metrics != nil {
		s.metrics.OrdersCancelledTotal.Inc()
	}
	s.publishStatusChange(ctx, order, oldStatus, cancelledBy)

	logger.Info(ctx, "order cancelled",
		"order_id", order.ID,
		"cancelled_by", cancelledBy,
		"reason", reason,
	)
	return order, nil
}

// 商家推进状态时发给顾客的通知文案
var statusMessages = map[domain.OrderStatus]string{
	domain.StatusAccepted:       "Your order has been accepted by the restaurant.",
	domain.StatusPreparing:      "Your food is being prepared.",
	domain.StatusReady:          "Your order is ready for pickup/delivery.",
	domain.StatusOutForDelivery: "Your order is out for delivery.",
	domain.StatusDelivered:      "Your order has been delivered. Enjoy your meal!",
}

// UpdateStatus 商家推进订单状态。送达后触发一次信用分重算，
// 让按时完成的订单尽快反映到顾客信用分上。
func (s *OrderService) UpdateStatus(ctx context.Context, restaurantUserID, orderID uint, newStatus domain.OrderStatus) (*domain.Order, error) {
	restaurant, err := s.restaurants.GetByUserID(ctx, restaurantUserID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.RestaurantID != restaurant.ID {
		return nil, domain.ErrUnauthorized
	}
	if !domain.CanTransition(order.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, newStatus)
	}

	oldStatus := order.Status
	order.Status = newStatus
	if newStatus == domain.StatusCancelled {
		order.CancelledBy = userdomain.RoleRestaurant
	}
	if newStatus == domain.StatusDelivered {
		now := time.Now()
		order.ActualDeliveryTime = &now
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if message, ok := statusMessages[newStatus]; ok {
		s.notify(ctx, order.UserID, "Order Update", message, notifdomain.NotificationTypeInfo)
	} else if newStatus == domain.StatusCancelled {
		s.notify(ctx, order.UserID, "Order Update",
			"Your order has been cancelled by the restaurant.",
			notifdomain.NotificationTypeInfo)
	}

	if newStatus == domain.StatusDelivered {
		s.recompute(ctx, order.UserID, creditdomain.TriggerSystem, "Order completed", orderID)
	}

	s.publishStatusChange(ctx, order, oldStatus, userdomain.RoleRestaurant)

	logger.Info(ctx, "order status updated",
		"order_id", order.ID,
		"old_status", oldStatus,
		"new_status", newStatus,
	)
	return order, nil
}

// FeedbackCommand 商家评价顾客命令
type FeedbackCommand struct {
	OrderID      uint
	Politeness   int
	Punctuality  int
	Authenticity int
	Comments     string
}

// SubmitFeedback 商家对顾客提交一单一评，触发信用分重算
func (s *OrderService) SubmitFeedback(ctx context.Context, restaurantUserID uint, cmd FeedbackCommand) (*domain.CustomerFeedback, error) {
	for _, rating := range []int{cmd.Politeness, cmd.Punctuality, cmd.Authenticity} {
		if rating < 1 || rating > 5 {
			return nil, domain.ErrInvalidRating
		}
	}

	restaurant, err := s.restaurants.GetByUserID(ctx, restaurantUserID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order.RestaurantID != restaurant.ID {
		return nil, domain.ErrUnauthorized
	}

	exists, err := s.feedback.ExistsForOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, fmt.Errorf("check existing feedback: %w", err)
	}
	if exists {
		return nil, domain.ErrFeedbackExists
	}

	overall := math.Round(float64(cmd.Politeness+cmd.Punctuality+cmd.Authenticity)/3*10) / 10
	feedback := &domain.CustomerFeedback{
		RestaurantID:      restaurant.ID,
		UserID:            order.UserID,
		OrderID:           cmd.OrderID,
		PolitenessRating:  cmd.Politeness,
		PickupPunctuality: cmd.Punctuality,
		OrderAuthenticity: cmd.Authenticity,
		OverallRating:     overall,
		Comments:          cmd.Comments,
	}
	if err := s.feedback.Create(ctx, feedback); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	if s.metrics != nil {
		s.metrics.FeedbackSubmittedTotal.Inc()
	}
	s.recompute(ctx, order.UserID, creditdomain.TriggerRestaurant, "Restaurant feedback", cmd.OrderID)

	logger.Info(ctx, "customer feedback submitted",
		"order_id", cmd.OrderID,
		"restaurant_id", restaurant.ID,
		"user_id", order.UserID,
		"overall", overall,
	)
	return feedback, nil
}

// RateDelivery 顾客对已送达订单的配送打分，触发信用分重算
func (s *OrderService) RateDelivery(ctx context.Context, userID, orderID uint, rating float64) (*domain.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, domain.ErrInvalidRating
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	if order.Status != domain.StatusDelivered {
		return nil, fmt.Errorf("%w: order not delivered yet", domain.ErrInvalidTransition)
	}

	rounded := math.Round(rating*10) / 10
	order.DeliveryFeedback = &rounded
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("save delivery feedback: %w", err)
	}

	s.recompute(ctx, userID, creditdomain.TriggerDelivery, "Delivery feedback", orderID)
	return order, nil
}

// GetOrder 订单详情（含明细），仅顾客本人、接单商家与管理员可见
func (s *OrderService) GetOrder(ctx context.Context, actorID uint, role string, orderID uint) (*domain.Order, error) {
	order, err := s.orders.GetWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, role, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListMyOrders 顾客订单历史
func (s *OrderService) ListMyOrders(ctx context.Context, userID uint, page, pageSize int) ([]*domain.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.orders.ListByUser(ctx, userID, (page-1)*pageSize, pageSize)
}

// ListRestaurantOrders 商家订单列表，可按状态过滤
func (s *OrderService) ListRestaurantOrders(ctx context.Context, restaurantUserID uint, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	restaurant, err := s.restaurants.GetByUserID(ctx, restaurantUserID)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.orders.ListByRestaurant(ctx, restaurant.ID, status, (page-1)*pageSize, pageSize)
}

// PendingFeedback 商家待评价的已送达订单
func (s *OrderService) PendingFeedback(ctx context.Context, restaurantUserID uint, limit int) ([]*domain.Order, error) {
	restaurant, err := s.restaurants.GetByUserID(ctx, restaurantUserID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.feedback.ListPendingOrders(ctx, restaurant.ID, limit)
}

// FeedbackHistory 商家已提交的评价记录
func (s *OrderService) FeedbackHistory(ctx context.Context, restaurantUserID uint, limit int) ([]*domain.CustomerFeedback, error) {
	restaurant, err := s.restaurants.GetByUserID(ctx, restaurantUserID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.feedback.ListByRestaurant(ctx, restaurant.ID, limit)
}

// authorize 校验对订单的操作权限
func (s *OrderService) authorize(ctx context.Context, actorID uint, role string, order *domain.Order) error {
	if role == userdomain.RoleAdmin || order.UserID == actorID {
		return nil
	}
	restaurant, err := s.restaurants.GetByUserID(ctx, actorID)
	if err == nil && restaurant.ID == order.RestaurantID {
		return nil
	}
	return domain.ErrUnauthorized
}

// recompute 触发信用分重算。统计降级与其他失败都只记日志，不中断订单流程。
func (s *OrderService) recompute(ctx context.Context, userID uint, trigger creditdomain.Trigger, reason string, orderID uint) {
	refID := orderID
	_, err := s.credit.Recompute(ctx, userID, trigger, reason, &refID)
	switch {
	case err == nil:
	case errors.Is(err, creditdomain.ErrStatsUnavailable):
		logger.Warn(ctx, "credit recompute degraded, score unchanged", "user_id", userID, "trigger", trigger)
	default:
		logger.Error(ctx, "credit recompute failed", "user_id", userID, "trigger", trigger, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.ScoreRecomputesTotal.Inc()
	}
}

// notify 写站内通知，失败只记日志
func (s *OrderService) notify(ctx context.Context, userID uint, title, message string, kind notifdomain.NotificationType) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, message, kind); err != nil {
		logger.Error(ctx, "failed to create notification", "user_id", userID, "title", title, "error", err)
	}
}

// publishStatusChange 发布订单状态变更集成事件，失败只记日志
func (s *OrderService) publishStatusChange(ctx context.Context, order *domain.Order, oldStatus domain.OrderStatus, changedBy string) {
	if s.events == nil {
		return
	}
	event := &domain.OrderStatusChangedEvent{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		RestaurantID: order.RestaurantID,
		OldStatus:    oldStatus,
		NewStatus:    order.Status,
		ChangedBy:    changedBy,
		ChangedAt:    time.Now(),
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		logger.Error(ctx, "failed to publish order status event", "order_id", order.ID, "error", err)
	}
}
