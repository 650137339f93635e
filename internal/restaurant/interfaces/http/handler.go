// Package http 商家模块的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/fooddelivery/internal/restaurant/application"
	"github.com/wyfcoding/fooddelivery/internal/restaurant/domain"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/middleware"
)

// RestaurantHandler 商家 HTTP 处理器
type RestaurantHandler struct {
	restaurants *application.RestaurantService
}

// NewRestaurantHandler 创建商家 HTTP 处理器
func NewRestaurantHandler(restaurants *application.RestaurantService) *RestaurantHandler {
	return &RestaurantHandler{restaurants: restaurants}
}

// RegisterRoutes 注册路由
func (h *RestaurantHandler) RegisterRoutes(api *gin.RouterGroup, issuer *middleware.TokenIssuer) {
	public := api.Group("/restaurants")
	{
		public.GET("", h.Search)
		public.GET("/:id", h.GetRestaurant)
		public.GET("/:id/menu", h.ListMenu)
	}

	owner := api.Group("/restaurant", middleware.GinAuthMiddleware(issuer, "restaurant"))
	{
		owner.POST("", h.CreateRestaurant)
		owner.GET("/me", h.GetOwnRestaurant)
		owner.PUT("/me", h.UpdateProfile)
		owner.PUT("/me/open", h.SetOpen)
		owner.POST("/me/menu", h.AddMenuItem)
		owner.PUT("/me/menu/:item_id", h.UpdateMenuItem)
		owner.PUT("/me/menu/:item_id/availability", h.SetMenuItemAvailability)
		owner.DELETE("/me/menu/:item_id", h.DeleteMenuItem)
	}

	admin := api.Group("/admin", middleware.GinAuthMiddleware(issuer, "admin"))
	{
		admin.PUT("/restaurants/:id/trust-badge", h.SetTrustBadge)
	}
}

// Search 搜索商家
func (h *RestaurantHandler) Search(c *gin.Context) {
	minRating, _ := strconv.ParseFloat(c.DefaultQuery("min_rating", "0"), 64)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}

	filter := domain.SearchFilter{
		Name:      c.Query("name"),
		Cuisine:   c.Query("cuisine"),
		MinRating: minRating,
		OnlyOpen:  c.DefaultQuery("only_open", "false") == "true",
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	}

	restaurants, total, err := h.restaurants.Search(c.Request.Context(), filter)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": restaurants, "total": total, "page": page})
}

// GetRestaurant 商家详情
func (h *RestaurantHandler) GetRestaurant(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid restaurant id"})
		return
	}

	restaurant, err := h.restaurants.GetRestaurant(c.Request.Context(), uint(id))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// ListMenu 商家菜单，默认只返回可售菜品
func (h *RestaurantHandler) ListMenu(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid restaurant id"})
		return
	}

	onlyAvailable := c.DefaultQuery("all", "false") != "true"
	items, err := h.restaurants.ListMenu(c.Request.Context(), uint(id), onlyAvailable)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// CreateRestaurantRequest 创建商家档案请求
type CreateRestaurantRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Address     string  `json:"address" binding:"required"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	CuisineType string  `json:"cuisine_type"`
	OpeningTime string  `json:"opening_time"`
	ClosingTime string  `json:"closing_time"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// CreateRestaurant 商家创建档案
func (h *RestaurantHandler) CreateRestaurant(c *gin.Context) {
	var req CreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurant, err := h.restaurants.CreateRestaurant(c.Request.Context(), application.CreateRestaurantCommand{
		UserID:      middleware.CurrentUserID(c),
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		CuisineType: req.CuisineType,
		OpeningTime: req.OpeningTime,
		ClosingTime: req.ClosingTime,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, restaurant)
}

// GetOwnRestaurant 商家查看自己的档案
func (h *RestaurantHandler) GetOwnRestaurant(c *gin.Context) {
	restaurant, err := h.restaurants.GetOwnRestaurant(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// UpdateProfileRequest 更新商家档案请求，缺省字段不变
type UpdateProfileRequest struct {
	Description *string `json:"description"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone"`
	CuisineType *string `json:"cuisine_type"`
	OpeningTime *string `json:"opening_time"`
	ClosingTime *string `json:"closing_time"`
	AvgPrepTime *int    `json:"avg_prep_time"`
}

// UpdateProfile 商家更新档案
func (h *RestaurantHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurant, err := h.restaurants.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), application.UpdateProfileCommand{
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		CuisineType: req.CuisineType,
		OpeningTime: req.OpeningTime,
		ClosingTime: req.ClosingTime,
		AvgPrepTime: req.AvgPrepTime,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// SetOpenRequest 切换营业状态请求
type SetOpenRequest struct {
	IsOpen *bool `json:"is_open" binding:"required"`
}

// SetOpen 商家切换营业状态
func (h *RestaurantHandler) SetOpen(c *gin.Context) {
	var req SetOpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurant, err := h.restaurants.SetOpen(c.Request.Context(), middleware.CurrentUserID(c), *req.IsOpen)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// MenuItemRequest 新增/更新菜品请求
type MenuItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	PrepTime    int             `json:"prep_time"`
}

func (r *MenuItemRequest) toCommand() application.MenuItemCommand {
	return application.MenuItemCommand{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		ImageURL:    r.ImageURL,
		PrepTime:    r.PrepTime,
	}
}

// AddMenuItem 商家新增菜品
func (h *RestaurantHandler) AddMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Price.IsNegative() || req.Price.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive"})
		return
	}

	item, err := h.restaurants.AddMenuItem(c.Request.Context(), middleware.CurrentUserID(c), req.toCommand())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateMenuItem 商家更新菜品
func (h *RestaurantHandler) UpdateMenuItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid menu item id"})
		return
	}

	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.restaurants.UpdateMenuItem(c.Request.Context(), middleware.CurrentUserID(c), uint(itemID), req.toCommand())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// SetAvailabilityRequest 菜品上下架请求
type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

// SetMenuItemAvailability 商家上下架菜品
func (h *RestaurantHandler) SetMenuItemAvailability(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid menu item id"})
		return
	}

	var req SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.restaurants.SetMenuItemAvailability(c.Request.Context(), middleware.CurrentUserID(c), uint(itemID), *req.IsAvailable)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteMenuItem 商家删除菜品
func (h *RestaurantHandler) DeleteMenuItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid menu item id"})
		return
	}

	if err := h.restaurants.DeleteMenuItem(c.Request.Context(), middleware.CurrentUserID(c), uint(itemID)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// SetTrustBadgeRequest 信任标识请求
type SetTrustBadgeRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetTrustBadge 管理员授予/撤销信任标识
func (h *RestaurantHandler) SetTrustBadge(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid restaurant id"})
		return
	}

	var req SetTrustBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.restaurants.SetTrustBadge(c.Request.Context(), middleware.CurrentUserID(c), uint(id), *req.Enabled, c.ClientIP()); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant_id": id, "trust_badge": *req.Enabled})
}

func (h *RestaurantHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRestaurantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "restaurant not found"})
	case errors.Is(err, domain.ErrMenuItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
	case errors.Is(err, domain.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this restaurant"})
	case errors.Is(err, domain.ErrRestaurantExists):
		c.JSON(http.StatusConflict, gin.H{"error": "restaurant already exists"})
	default:
		logger.Error(c.Request.Context(), "restaurant request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
