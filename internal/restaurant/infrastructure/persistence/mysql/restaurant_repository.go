// Package mysql 商家与菜单的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/fooddelivery/internal/restaurant/domain"
	"github.com/wyfcoding/fooddelivery/pkg/db"
	"gorm.io/gorm"
)

// restaurantRepository 商家仓储实现
type restaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository 创建商家仓储
func NewRestaurantRepository(gdb *gorm.DB) domain.RestaurantRepository {
	return &restaurantRepository{db: gdb}
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant *domain.Restaurant) error {
	return r.getDB(ctx).WithContext(ctx).Create(restaurant).Error
}

func (r *restaurantRepository) GetByID(ctx context.Context, id uint) (*domain.Restaurant, error) {
	var restaurant domain.Restaurant
	if err := r.getDB(ctx).WithContext(ctx).First(&restaurant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRestaurantNotFound
		}
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepository) GetByUserID(ctx context.Context, userID uint) (*domain.Restaurant, error) {
	var restaurant domain.Restaurant
	err := r.getDB(ctx).WithContext(ctx).Where("user_id = ?", userID).First(&restaurant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRestaurantNotFound
		}
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepository) Update(ctx context.Context, restaurant *domain.Restaurant) error {
	return r.getDB(ctx).WithContext(ctx).Save(restaurant).Error
}

func (r *restaurantRepository) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Restaurant, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Restaurant{})
	if filter.Name != "" {
		query = query.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Cuisine != "" {
		query = query.Where("cuisine_type = ?", filter.Cuisine)
	}
	if filter.MinRating > 0 {
		query = query.Where("rating >= ?", filter.MinRating)
	}
	if filter.OnlyOpen {
		query = query.Where("is_open = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var restaurants []*domain.Restaurant
	err := query.
		Order("trust_badge DESC, rating DESC, id ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&restaurants).Error
	if err != nil {
		return nil, 0, err
	}
	return restaurants, total, nil
}

func (r *restaurantRepository) SetTrustBadge(ctx context.Context, id uint, enabled bool) error {
	result := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Restaurant{}).
		Where("id = ?", id).
		Update("trust_badge", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrRestaurantNotFound
	}
	return nil
}

func (r *restaurantRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// menuRepository 菜单仓储实现
type menuRepository struct {
	db *gorm.DB
}

// NewMenuRepository 创建菜单仓储
func NewMenuRepository(gdb *gorm.DB) domain.MenuRepository {
	return &menuRepository{db: gdb}
}

func (r *menuRepository) Create(ctx context.Context, item *domain.MenuItem) error {
	return r.getDB(ctx).WithContext(ctx).Create(item).Error
}

func (r *menuRepository) GetByID(ctx context.Context, id uint) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := r.getDB(ctx).WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMenuItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *menuRepository) GetByIDs(ctx context.Context, ids []uint) ([]*domain.MenuItem, error) {
	var items []*domain.MenuItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.getDB(ctx).WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *menuRepository) ListByRestaurant(ctx context.Context, restaurantID uint, onlyAvailable bool) ([]*domain.MenuItem, error) {
	query := r.getDB(ctx).WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}

	var items []*domain.MenuItem
	err := query.Order("category ASC, name ASC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *menuRepository) Update(ctx context.Context, item *domain.MenuItem) error {
	return r.getDB(ctx).WithContext(ctx).Save(item).Error
}

func (r *menuRepository) Delete(ctx context.Context, id uint) error {
	result := r.getDB(ctx).WithContext(ctx).Delete(&domain.MenuItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrMenuItemNotFound
	}
	return nil
}

func (r *menuRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}
