// Package http 订单模块的 HTTP 接口层
package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/fooddelivery/internal/order/application"
	"github.com/wyfcoding/fooddelivery/internal/order/domain"
	restdomain "github.com/wyfcoding/fooddelivery/internal/restaurant/domain"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/middleware"
)

// OrderHandler 订单 HTTP 处理器
type OrderHandler struct {
	orders *application.OrderService
}

// NewOrderHandler 创建订单 HTTP 处理器
func NewOrderHandler(orders *application.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes 注册路由
func (h *OrderHandler) RegisterRoutes(api *gin.RouterGroup, issuer *middleware.TokenIssuer) {
	customer := api.Group("/orders", middleware.GinAuthMiddleware(issuer, "customer"))
	{
		customer.POST("", h.Checkout)
		customer.GET("", h.ListMyOrders)
		customer.PUT("/:id/delivery-rating", h.RateDelivery)
	}

	authed := api.Group("/orders", middleware.GinAuthMiddleware(issuer))
	{
		authed.GET("/:id", h.GetOrder)
		authed.POST("/:id/cancel", h.Cancel)
	}

	restaurant := api.Group("/restaurant", middleware.GinAuthMiddleware(issuer, "restaurant"))
	{
		restaurant.GET("/orders", h.ListRestaurantOrders)
		restaurant.PUT("/orders/:id/status", h.UpdateStatus)
		restaurant.POST("/feedback", h.SubmitFeedback)
		restaurant.GET("/feedback/pending", h.PendingFeedback)
		restaurant.GET("/feedback/history", h.FeedbackHistory)
	}
}

// CartItemRequest 购物车条目
type CartItemRequest struct {
	MenuItemID uint   `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	Notes      string `json:"notes"`
}

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	RestaurantID    uint              `json:"restaurant_id" binding:"required"`
	Items           []CartItemRequest `json:"items" binding:"required,min=1"`
	DeliveryAddress string            `json:"delivery_address" binding:"required"`
	PaymentMethod   string            `json:"payment_method"`
}

// Checkout 顾客下单
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]application.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, application.CartItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		})
	}

	order, err := h.orders.Checkout(c.Request.Context(), application.CheckoutCommand{
		UserID:          middleware.CurrentUserID(c),
		RestaurantID:    req.RestaurantID,
		Items:           items,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListMyOrders 顾客订单历史
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := h.orders.ListMyOrders(c.Request.Context(), middleware.CurrentUserID(c), page, pageSize)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total, "page": page})
}

// GetOrder 订单详情
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentUserRole(c), uint(orderID))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelRequest 取消订单请求
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel 取消订单
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	// reason 可选，空请求体按无理由取消处理
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentUserRole(c), uint(orderID), req.Reason)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStatusRequest 推进订单状态请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 商家推进订单状态
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), middleware.CurrentUserID(c), uint(orderID), domain.OrderStatus(req.Status))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListRestaurantOrders 商家订单列表
func (h *OrderHandler) ListRestaurantOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := h.orders.ListRestaurantOrders(c.Request.Context(), middleware.CurrentUserID(c),
		domain.OrderStatus(c.Query("status")), page, pageSize)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total, "page": page})
}

// FeedbackRequest 商家评价顾客请求
type FeedbackRequest struct {
	OrderID      uint   `json:"order_id" binding:"required"`
	Politeness   int    `json:"politeness" binding:"required,min=1,max=5"`
	Punctuality  int    `json:"punctuality" binding:"required,min=1,max=5"`
	Authenticity int    `json:"authenticity" binding:"required,min=1,max=5"`
	Comments     string `json:"comments"`
}

// SubmitFeedback 商家评价顾客
func (h *OrderHandler) SubmitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feedback, err := h.orders.SubmitFeedback(c.Request.Context(), middleware.CurrentUserID(c), application.FeedbackCommand{
		OrderID:      req.OrderID,
		Politeness:   req.Politeness,
		Punctuality:  req.Punctuality,
		Authenticity: req.Authenticity,
		Comments:     req.Comments,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedback)
}

// PendingFeedback 商家待评价订单
func (h *OrderHandler) PendingFeedback(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	orders, err := h.orders.PendingFeedback(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// FeedbackHistory 商家评价记录
func (h *OrderHandler) FeedbackHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	feedback, err := h.orders.FeedbackHistory(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": feedback})
}

// RateDeliveryRequest 配送评分请求
type RateDeliveryRequest struct {
	Rating float64 `json:"rating" binding:"required,min=1,max=5"`
}

// RateDelivery 顾客对配送打分
func (h *OrderHandler) RateDelivery(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req RateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.RateDelivery(c.Request.Context(), middleware.CurrentUserID(c), uint(orderID), req.Rating)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, restdomain.ErrRestaurantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "restaurant not found"})
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty or has no available items"})
	case errors.Is(err, domain.ErrRestaurantClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "restaurant is closed"})
	case errors.Is(err, domain.ErrCustomerBlocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "ordering is blocked due to low credit score"})
	case errors.Is(err, domain.ErrOrderNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": "order can no longer be cancelled"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to operate on this order"})
	case errors.Is(err, domain.ErrFeedbackExists):
		c.JSON(http.StatusConflict, gin.H{"error": "feedback already submitted for this order"})
	case errors.Is(err, domain.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment method"})
	default:
		logger.Error(c.Request.Context(), "order request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
