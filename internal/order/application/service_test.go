package application

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	creditdomain "github.com/wyfcoding/fooddelivery/internal/credit/domain"
	notifdomain "github.com/wyfcoding/fooddelivery/internal/notification/domain"
	"github.com/wyfcoding/fooddelivery/internal/order/domain"
	restdomain "github.com/wyfcoding/fooddelivery/internal/restaurant/domain"
	"gorm.io/gorm"
)

type fakeTx struct{}

func (fakeTx) Transaction(fc func(tx *gorm.DB) error, _ ...*sql.TxOptions) error {
	return fc(nil)
}

type fakeOrders struct {
	orders map[uint]*domain.Order
	nextID uint
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[uint]*domain.Order), nextID: 1}
}

func (f *fakeOrders) Create(_ context.Context, order *domain.Order) error {
	order.ID = f.nextID
	f.nextID++
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id uint) (*domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrders) GetWithItems(ctx context.Context, id uint) (*domain.Order, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeOrders) Update(_ context.Context, order *domain.Order) error {
	if _, ok := f.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID uint, _, _ int) ([]*domain.Order, int64, error) {
	var out []*domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) ListByRestaurant(_ context.Context, restaurantID uint, status domain.OrderStatus, _, _ int) ([]*domain.Order, int64, error) {
	var out []*domain.Order
	for _, o := range f.orders {
		if o.RestaurantID == restaurantID && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

type fakeFeedback struct {
	byOrder map[uint]*domain.CustomerFeedback
}

func newFakeFeedback() *fakeFeedback {
	return &fakeFeedback{byOrder: make(map[uint]*domain.CustomerFeedback)}
}

func (f *fakeFeedback) Create(_ context.Context, fb *domain.CustomerFeedback) error {
	f.byOrder[fb.OrderID] = fb
	return nil
}

func (f *fakeFeedback) ExistsForOrder(_ context.Context, orderID uint) (bool, error) {
	_, ok := f.byOrder[orderID]
	return ok, nil
}

func (f *fakeFeedback) ListByRestaurant(_ context.Context, restaurantID uint, _ int) ([]*domain.CustomerFeedback, error) {
	var out []*domain.CustomerFeedback
	for _, fb := range f.byOrder {
		if fb.RestaurantID == restaurantID {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (f *fakeFeedback) ListPendingOrders(_ context.Context, _ uint, _ int) ([]*domain.Order, error) {
	return nil, nil
}

type fakeMenu struct {
	items map[uint]*restdomain.MenuItem
}

func (f *fakeMenu) GetByIDs(_ context.Context, ids []uint) ([]*restdomain.MenuItem, error) {
	var out []*restdomain.MenuItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeRestaurants struct {
	restaurants map[uint]*restdomain.Restaurant
}

func (f *fakeRestaurants) GetByID(_ context.Context, id uint) (*restdomain.Restaurant, error) {
	r, ok := f.restaurants[id]
	if !ok {
		return nil, restdomain.ErrRestaurantNotFound
	}
	return r, nil
}

func (f *fakeRestaurants) GetByUserID(_ context.Context, userID uint) (*restdomain.Restaurant, error) {
	for _, r := range f.restaurants {
		if r.UserID == userID {
			return r, nil
		}
	}
	return nil, restdomain.ErrRestaurantNotFound
}

type recomputeCall struct {
	userID  uint
	trigger creditdomain.Trigger
	reason  string
}

type fakeCredit struct {
	states     map[uint]*creditdomain.CreditState
	recomputes []recomputeCall
	statsFail  bool
}

func (f *fakeCredit) GetState(_ context.Context, userID uint) (*creditdomain.CreditState, error) {
	state, ok := f.states[userID]
	if !ok {
		return nil, creditdomain.ErrUserNotFound
	}
	return state, nil
}

func (f *fakeCredit) Recompute(_ context.Context, userID uint, trigger creditdomain.Trigger, reason string, _ *uint) (int, error) {
	f.recomputes = append(f.recomputes, recomputeCall{userID: userID, trigger: trigger, reason: reason})
	if f.statsFail {
		return f.states[userID].Score, creditdomain.ErrStatsUnavailable
	}
	return f.states[userID].Score, nil
}

type sentNotification struct {
	userID uint
	title  string
	kind   notifdomain.NotificationType
}

type fakeNotifier struct {
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, userID uint, title, _ string, kind notifdomain.NotificationType) error {
	f.sent = append(f.sent, sentNotification{userID: userID, title: title, kind: kind})
	return nil
}

type orderFixture struct {
	svc         *OrderService
	orders      *fakeOrders
	feedback    *fakeFeedback
	menu        *fakeMenu
	restaurants *fakeRestaurants
	credit      *fakeCredit
	notifier    *fakeNotifier
}

// 商家 1（账号 50）营业中，菜品 10/11；顾客 100 信用 80 分 good 档
func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:   newFakeOrders(),
		feedback: newFakeFeedback(),
		menu: &fakeMenu{items: map[uint]*restdomain.MenuItem{
			10: {RestaurantID: 1, Name: "Dal", Price: decimal.NewFromFloat(120.50), IsAvailable: true},
			11: {RestaurantID: 1, Name: "Rice", Price: decimal.NewFromInt(80), IsAvailable: true},
			12: {RestaurantID: 1, Name: "Gone", Price: decimal.NewFromInt(999), IsAvailable: false},
		}},
		restaurants: &fakeRestaurants{restaurants: map[uint]*restdomain.Restaurant{
			1: {UserID: 50, Name: "Spice Route", IsOpen: true, AvgPrepTime: 30},
		}},
		credit: &fakeCredit{states: map[uint]*creditdomain.CreditState{
			100: {UserID: 100, Score: 80, Status: creditdomain.TierGood},
		}},
		notifier: &fakeNotifier{},
	}
	f.menu.items[10].ID = 10
	f.menu.items[11].ID = 11
	f.menu.items[12].ID = 12
	f.restaurants.restaurants[1].ID = 1
	f.svc = NewOrderService(fakeTx{}, f.orders, f.feedback, f.menu, f.restaurants, f.credit, f.notifier, nil, nil)
	return f
}

func TestCheckoutTotals(t *testing.T) {
	f := newOrderFixture()

	order, err := f.svc.Checkout(context.Background(), CheckoutCommand{
		UserID:       100,
		RestaurantID: 1,
		Items: []CartItem{
			{MenuItemID: 10, Quantity: 2},
			{MenuItemID: 11, Quantity: 1},
		},
		DeliveryAddress: "1 Main St",
		PaymentMethod:   domain.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// 2*120.50 + 80 = 321.00，good 档 15% 折扣 48.15，小于 500 收 30 配送费
	if !order.TotalAmount.Equal(decimal.NewFromFloat(321.00)) {
		t.Errorf("total = %s, want 321.00", order.TotalAmount)
	}
	if !order.DiscountAmount.Equal(decimal.NewFromFloat(48.15)) {
		t.Errorf("discount = %s, want 48.15", order.DiscountAmount)
	}
	if !order.DeliveryFee.Equal(decimal.NewFromInt(30)) {
		t.Errorf("delivery fee = %s, want 30", order.DeliveryFee)
	}
	if !order.FinalAmount.Equal(decimal.NewFromFloat(302.85)) {
		t.Errorf("final = %s, want 302.85", order.FinalAmount)
	}
	if order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("cod payment status = %s, want pending", order.PaymentStatus)
	}
	if order.CustomerCreditScore != 80 {
		t.Errorf("credit snapshot = %d, want 80", order.CustomerCreditScore)
	}
	if len(order.OrderNumber) != 8 {
		t.Errorf("order number %q, want 8 chars", order.OrderNumber)
	}
	if len(order.Items) != 2 {
		t.Errorf("items = %d, want 2", len(order.Items))
	}
	// 商家和顾客各一条通知
	if len(f.notifier.sent) != 2 {
		t.Fatalf("notifications = %d, want 2", len(f.notifier.sent))
	}
	if f.notifier.sent[0].userID != 50 || f.notifier.sent[1].userID != 100 {
		t.Errorf("notification recipients = %+v", f.notifier.sent)
	}
}

func TestCheckoutFreeDeliveryAndPrepaid(t *testing.T) {
	f := newOrderFixture()

	// 5*120.50 = 602.50 ≥ 500，免配送费；非 cod 支付直接 completed
	order, err := f.svc.Checkout(context.Background(), CheckoutCommand{
		UserID:          100,
		RestaurantID:    1,
		Items:           []CartItem{{MenuItemID: 10, Quantity: 5}},
		DeliveryAddress: "1 Main St",
		PaymentMethod:   domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if !order.DeliveryFee.IsZero() {
		t.Errorf("delivery fee = %s, want 0", order.DeliveryFee)
	}
	if order.PaymentStatus != domain.PaymentStatusCompleted {
		t.Errorf("card payment status = %s, want completed", order.PaymentStatus)
	}
}

func TestCheckoutSkipsUnavailableItems(t *testing.T) {
	f := newOrderFixture()

	order, err := f.svc.Checkout(context.Background(), CheckoutCommand{
		UserID:       100,
		RestaurantID: 1,
		Items: []CartItem{
			{MenuItemID: 11, Quantity: 1},
			{MenuItemID: 12, Quantity: 3}, // 已下架
		},
		DeliveryAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(order.Items) != 1 {
		t.Errorf("items = %d, want 1 (unavailable skipped)", len(order.Items))
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(80)) {
		t.Errorf("total = %s, want 80", order.TotalAmount)
	}

	// 全部不可售时拒单
	if _, err := f.svc.Checkout(context.Background(), CheckoutCommand{
		UserID:          100,
		RestaurantID:    1,
		Items:           []CartItem{{MenuItemID: 12, Quantity: 1}},
		DeliveryAddress: "1 Main St",
	}); !errors.Is(err, domain.ErrEmptyCart) {
		t.Errorf("error = %v, want ErrEmptyCart", err)
	}
}

func TestCheckoutBlockedCustomer(t *testing.T) {
	f := newOrderFixture()
	f.credit.states[100] = &creditdomain.CreditState{UserID: 100, Score: 10, Status: creditdomain.TierBlocked}

	_, err := f.svc.Checkout(context.Background(), CheckoutCommand{
		UserID:          100,
		RestaurantID:    1,
		Items:           []CartItem{{MenuItemID: 10, Quantity: 1}},
		DeliveryAddress: "1 Main St",
	})
	if !errors.Is(err, domain.ErrCustomerBlocked) {
		t.Errorf("error = %v, want ErrCustomerBlocked", err)
	}
}

func TestCheckoutClosedRestaurant(t *testing.T) {
	f := newOrderFixture()
	f.restaurants.restaurants[1].IsOpen = false

	_, err := f.svc.Checkout(context.Background(), CheckoutCommand{
		UserID:          100,
		RestaurantID:    1,
		Items:           []CartItem{{MenuItemID: 10, Quantity: 1}},
		DeliveryAddress: "1 Main St",
	})
	if !errors.Is(err, domain.ErrRestaurantClosed) {
		t.Errorf("error = %v, want ErrRestaurantClosed", err)
	}
}

func placeTestOrder(t *testing.T, f *orderFixture) *domain.Order {
	t.Helper()
	order, err := f.svc.Checkout(context.Background(), CheckoutCommand{
		UserID:          100,
		RestaurantID:    1,
		Items:           []CartItem{{MenuItemID: 10, Quantity: 1}},
		DeliveryAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	return order
}

func TestCancelByCustomerTriggersRecompute(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)
	f.notifier.sent = nil

	cancelled, err := f.svc.Cancel(context.Background(), 100, "customer", order.ID, "changed my mind")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled || cancelled.CancelledBy != "customer" {
		t.Errorf("status=%s cancelled_by=%s", cancelled.Status, cancelled.CancelledBy)
	}

	if len(f.credit.recomputes) != 1 {
		t.Fatalf("recomputes = %d, want 1", len(f.credit.recomputes))
	}
	call := f.credit.recomputes[0]
	if call.userID != 100 || call.trigger != creditdomain.TriggerSystem {
		t.Errorf("recompute call = %+v", call)
	}

	if len(f.notifier.sent) != 1 || f.notifier.sent[0].kind != notifdomain.NotificationTypeWarning {
		t.Errorf("notifications = %+v, want one warning", f.notifier.sent)
	}
}

func TestCancelByRestaurantNoRecompute(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)

	if _, err := f.svc.Cancel(context.Background(), 50, "restaurant", order.ID, "out of stock"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(f.credit.recomputes) != 0 {
		t.Errorf("recomputes = %d, want 0", len(f.credit.recomputes))
	}
}

func TestCancelUnauthorized(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)

	if _, err := f.svc.Cancel(context.Background(), 999, "customer", order.ID, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestCancelDeliveredOrderRejected(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)
	order.Status = domain.StatusDelivered

	if _, err := f.svc.Cancel(context.Background(), 100, "customer", order.ID, ""); !errors.Is(err, domain.ErrOrderNotCancellable) {
		t.Errorf("error = %v, want ErrOrderNotCancellable", err)
	}
}

func TestUpdateStatusFlow(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)

	for _, status := range []domain.OrderStatus{
		domain.StatusAccepted,
		domain.StatusPreparing,
		domain.StatusReady,
		domain.StatusOutForDelivery,
		domain.StatusDelivered,
	} {
		if _, err := f.svc.UpdateStatus(context.Background(), 50, order.ID, status); err != nil {
			t.Fatalf("UpdateStatus(%s): %v", status, err)
		}
	}

	final := f.orders.orders[order.ID]
	if final.Status != domain.StatusDelivered {
		t.Errorf("status = %s, want delivered", final.Status)
	}
	if final.ActualDeliveryTime == nil {
		t.Error("actual delivery time not set")
	}
	// 送达触发一次重算
	if len(f.credit.recomputes) != 1 || f.credit.recomputes[0].reason != "Order completed" {
		t.Errorf("recomputes = %+v", f.credit.recomputes)
	}
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)

	if _, err := f.svc.UpdateStatus(context.Background(), 50, order.ID, domain.StatusDelivered); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestSubmitFeedback(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)

	feedback, err := f.svc.SubmitFeedback(context.Background(), 50, FeedbackCommand{
		OrderID:      order.ID,
		Politeness:   4,
		Punctuality:  5,
		Authenticity: 5,
		Comments:     "great customer",
	})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	// (4+5+5)/3 = 4.666... → 4.7
	if feedback.OverallRating != 4.7 {
		t.Errorf("overall = %v, want 4.7", feedback.OverallRating)
	}
	if feedback.UserID != 100 {
		t.Errorf("feedback user = %d, want 100", feedback.UserID)
	}

	if len(f.credit.recomputes) != 1 || f.credit.recomputes[0].trigger != creditdomain.TriggerRestaurant {
		t.Errorf("recomputes = %+v, want one restaurant trigger", f.credit.recomputes)
	}

	// 一单一评
	if _, err := f.svc.SubmitFeedback(context.Background(), 50, FeedbackCommand{
		OrderID: order.ID, Politeness: 1, Punctuality: 1, Authenticity: 1,
	}); !errors.Is(err, domain.ErrFeedbackExists) {
		t.Errorf("duplicate error = %v, want ErrFeedbackExists", err)
	}
}

func TestSubmitFeedbackInvalidRating(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)

	if _, err := f.svc.SubmitFeedback(context.Background(), 50, FeedbackCommand{
		OrderID: order.ID, Politeness: 0, Punctuality: 5, Authenticity: 5,
	}); !errors.Is(err, domain.ErrInvalidRating) {
		t.Errorf("error = %v, want ErrInvalidRating", err)
	}
}

func TestSubmitFeedbackStatsFallbackTolerated(t *testing.T) {
	f := newOrderFixture()
	f.credit.statsFail = true
	order := placeTestOrder(t, f)

	// 信用统计降级不影响评价提交本身
	if _, err := f.svc.SubmitFeedback(context.Background(), 50, FeedbackCommand{
		OrderID: order.ID, Politeness: 5, Punctuality: 5, Authenticity: 5,
	}); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
}

func TestRateDelivery(t *testing.T) {
	f := newOrderFixture()
	order := placeTestOrder(t, f)

	// 未送达不能评
	if _, err := f.svc.RateDelivery(context.Background(), 100, order.ID, 4.5); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}

	order.Status = domain.StatusDelivered
	rated, err := f.svc.RateDelivery(context.Background(), 100, order.ID, 4.5)
	if err != nil {
		t.Fatalf("RateDelivery: %v", err)
	}
	if rated.DeliveryFeedback == nil || *rated.DeliveryFeedback != 4.5 {
		t.Errorf("delivery feedback = %v, want 4.5", rated.DeliveryFeedback)
	}
	if len(f.credit.recomputes) != 1 || f.credit.recomputes[0].trigger != creditdomain.TriggerDelivery {
		t.Errorf("recomputes = %+v, want one delivery trigger", f.credit.recomputes)
	}

	// 别人的订单不能评
	if _, err := f.svc.RateDelivery(context.Background(), 999, order.ID, 3); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}
