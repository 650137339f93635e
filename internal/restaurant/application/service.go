// Package application 商家与菜单管理的应用服务
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/fooddelivery/internal/restaurant/domain"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
)

// AdminAuditor 管理员操作审计，由 user 模块实现
type AdminAuditor interface {
	RecordAdminAction(ctx context.Context, adminID uint, actionType, targetType string, targetID uint, details, ip string) error
}

// RestaurantService 商家应用服务
type RestaurantService struct {
	restaurants domain.RestaurantRepository
	menu        domain.MenuRepository
	audit       AdminAuditor
}

// NewRestaurantService 创建商家应用服务
func NewRestaurantService(restaurants domain.RestaurantRepository, menu domain.MenuRepository, audit AdminAuditor) *RestaurantService {
	return &RestaurantService{restaurants: restaurants, menu: menu, audit: audit}
}

// CreateRestaurantCommand 创建商家档案命令
type CreateRestaurantCommand struct {
	UserID      uint
	Name        string
	Description string
	Address     string
	Phone       string
	Email       string
	CuisineType string
	OpeningTime string
	ClosingTime string
	Latitude    float64
	Longitude   float64
}

// CreateRestaurant 为商家账号创建档案，一个账号只能有一个
func (s *RestaurantService) CreateRestaurant(ctx context.Context, cmd CreateRestaurantCommand) (*domain.Restaurant, error) {
	if existing, err := s.restaurants.GetByUserID(ctx, cmd.UserID); err == nil && existing != nil {
		return nil, domain.ErrRestaurantExists
	} else if err != nil && !errors.Is(err, domain.ErrRestaurantNotFound) {
		return nil, fmt.Errorf("failed to check existing restaurant: %w", err)
	}

	restaurant := &domain.Restaurant{
		UserID:         cmd.UserID,
		Name:           cmd.Name,
		Description:    cmd.Description,
		Address:        cmd.Address,
		Phone:          cmd.Phone,
		Email:          cmd.Email,
		CuisineType:    cmd.CuisineType,
		OpeningTime:    cmd.OpeningTime,
		ClosingTime:    cmd.ClosingTime,
		IsOpen:         true,
		AvgPrepTime:    30,
		CommissionRate: decimal.NewFromInt(15),
	}
	if err := s.restaurants.Create(ctx, restaurant); err != nil {
		return nil, fmt.Errorf("failed to create restaurant: %w", err)
	}

	logger.Info(ctx, "restaurant created", "restaurant_id", restaurant.ID, "user_id", cmd.UserID)
	return restaurant, nil
}

// GetRestaurant 商家详情
func (s *RestaurantService) GetRestaurant(ctx context.Context, id uint) (*domain.Restaurant, error) {
	return s.restaurants.GetByID(ctx, id)
}

// GetOwnRestaurant 按账号取商家档案
func (s *RestaurantService) GetOwnRestaurant(ctx context.Context, userID uint) (*domain.Restaurant, error) {
	return s.restaurants.GetByUserID(ctx, userID)
}

// Search 搜索商家
func (s *RestaurantService) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Restaurant, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.restaurants.Search(ctx, filter)
}

// SetOpen 商家切换营业状态
func (s *RestaurantService) SetOpen(ctx context.Context, userID uint, open bool) (*domain.Restaurant, error) {
	restaurant, err := s.restaurants.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	restaurant.IsOpen = open
	if err := s.restaurants.Update(ctx, restaurant); err != nil {
		return nil, fmt.Errorf("failed to update restaurant: %w", err)
	}
	logger.Info(ctx, "restaurant open status changed", "restaurant_id", restaurant.ID, "is_open", open)
	return restaurant, nil
}

// UpdateProfileCommand 更新商家档案命令，nil 字段不变
type UpdateProfileCommand struct {
	Description *string
	Address     *string
	Phone       *string
	CuisineType *string
	OpeningTime *string
	ClosingTime *string
	AvgPrepTime *int
}

// UpdateProfile 商家更新档案
func (s *RestaurantService) UpdateProfile(ctx context.Context, userID uint, cmd UpdateProfileCommand) (*domain.Restaurant, error) {
	restaurant, err := s.restaurants.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cmd.Description != nil {
		restaurant.Description = *cmd.Description
	}
	if cmd.Address != nil {
		restaurant.Address = *cmd.Address
	}
	if cmd.Phone != nil {
		restaurant.Phone = *cmd.Phone
	}
	if cmd.CuisineType != nil {
		restaurant.CuisineType = *cmd.CuisineType
	}
	if cmd.OpeningTime != nil {
		restaurant.OpeningTime = *cmd.OpeningTime
	}
	if cmd.ClosingTime != nil {
		restaurant.ClosingTime = *cmd.ClosingTime
	}
	if cmd.AvgPrepTime != nil {
		restaurant.AvgPrepTime = *cmd.AvgPrepTime
	}

	if err := s.restaurants.Update(ctx, restaurant); err != nil {
		return nil, fmt.Errorf("failed to update restaurant: %w", err)
	}
	return restaurant, nil
}

// SetTrustBadge 管理员授予/撤销信任标识并落审计
func (s *RestaurantService) SetTrustBadge(ctx context.Context, adminID, restaurantID uint, enabled bool, ip string) error {
	if err := s.restaurants.SetTrustBadge(ctx, restaurantID, enabled); err != nil {
		return err
	}

	verb := "revoked"
	if enabled {
		verb = "granted"
	}
	if s.audit != nil {
		if err := s.audit.RecordAdminAction(ctx, adminID, "toggle_trust_badge", "restaurant", restaurantID,
			fmt.Sprintf("Trust badge %s", verb), ip); err != nil {
			logger.Error(ctx, "failed to record admin action", "admin_id", adminID, "restaurant_id", restaurantID, "error", err)
		}
	}

	logger.Info(ctx, "trust badge toggled", "admin_id", adminID, "restaurant_id", restaurantID, "enabled", enabled)
	return nil
}

// MenuItemCommand 新增/更新菜品命令
type MenuItemCommand struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	PrepTime    int
}

// AddMenuItem 商家新增菜品
func (s *RestaurantService) AddMenuItem(ctx context.Context, userID uint, cmd MenuItemCommand) (*domain.MenuItem, error) {
	restaurant, err := s.restaurants.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	prepTime := cmd.PrepTime
	if prepTime <= 0 {
		prepTime = 15
	}
	item := &domain.MenuItem{
		RestaurantID: restaurant.ID,
		Name:         cmd.Name,
		Description:  cmd.Description,
		Price:        cmd.Price,
		Category:     cmd.Category,
		IsAvailable:  true,
		ImageURL:     cmd.ImageURL,
		PrepTime:     prepTime,
	}
	if err := s.menu.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}
	return item, nil
}

// UpdateMenuItem 商家更新自家菜品
func (s *RestaurantService) UpdateMenuItem(ctx context.Context, userID, itemID uint, cmd MenuItemCommand) (*domain.MenuItem, error) {
	item, err := s.ownedMenuItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	item.Name = cmd.Name
	item.Description = cmd.Description
	item.Price = cmd.Price
	item.Category = cmd.Category
	item.ImageURL = cmd.ImageURL
	if cmd.PrepTime > 0 {
		item.PrepTime = cmd.PrepTime
	}
	if err := s.menu.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	return item, nil
}

// SetMenuItemAvailability 商家上下架菜品
func (s *RestaurantService) SetMenuItemAvailability(ctx context.Context, userID, itemID uint, available bool) (*domain.MenuItem, error) {
	item, err := s.ownedMenuItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	item.IsAvailable = available
	if err := s.menu.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	return item, nil
}

// DeleteMenuItem 商家删除自家菜品
func (s *RestaurantService) DeleteMenuItem(ctx context.Context, userID, itemID uint) error {
	item, err := s.ownedMenuItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	return s.menu.Delete(ctx, item.ID)
}

// ListMenu 菜单列表；onlyAvailable 为真时只返回可售菜品
func (s *RestaurantService) ListMenu(ctx context.Context, restaurantID uint, onlyAvailable bool) ([]*domain.MenuItem, error) {
	if _, err := s.restaurants.GetByID(ctx, restaurantID); err != nil {
		return nil, err
	}
	return s.menu.ListByRestaurant(ctx, restaurantID, onlyAvailable)
}

func (s *RestaurantService) ownedMenuItem(ctx context.Context, userID, itemID uint) (*domain.MenuItem, error) {
	restaurant, err := s.restaurants.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.menu.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RestaurantID != restaurant.ID {
		return nil, domain.ErrNotOwner
	}
	return item, nil
}
