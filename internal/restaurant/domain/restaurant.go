// Package domain 商家与菜单的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrRestaurantNotFound 商家不存在
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrMenuItemNotFound 菜品不存在
	ErrMenuItemNotFound = errors.New("menu item not found")
	// ErrNotOwner 非商家拥有者
	ErrNotOwner = errors.New("not the owner of this restaurant")
	// ErrRestaurantExists 该用户已有商家档案
	ErrRestaurantExists = errors.New("restaurant already exists for this user")
)

// Restaurant 商家实体
type Restaurant struct {
	gorm.Model
	// UserID 商家所属账号
	UserID uint `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	// Name 商家名称
	Name string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	// Description 简介
	Description string `gorm:"column:description;type:text" json:"description"`
	// Address 地址
	Address string `gorm:"column:address;type:varchar(255);not null" json:"address"`
	// Phone 联系电话
	Phone string `gorm:"column:phone;type:varchar(20)" json:"phone"`
	// Email 联系邮箱
	Email string `gorm:"column:email;type:varchar(128)" json:"email"`
	// CuisineType 菜系
	CuisineType string `gorm:"column:cuisine_type;type:varchar(50);index" json:"cuisine_type"`
	// OpeningTime 营业开始时间，HH:MM
	OpeningTime string `gorm:"column:opening_time;type:varchar(8)" json:"opening_time"`
	// ClosingTime 营业结束时间，HH:MM
	ClosingTime string `gorm:"column:closing_time;type:varchar(8)" json:"closing_time"`
	// IsOpen 是否营业中
	IsOpen bool `gorm:"column:is_open;not null;default:true;index" json:"is_open"`
	// AvgPrepTime 平均出餐时间（分钟）
	AvgPrepTime int `gorm:"column:avg_prep_time;not null;default:30" json:"avg_prep_time"`
	// Rating 平均评分
	Rating decimal.Decimal `gorm:"column:rating;type:decimal(3,2);not null;default:0" json:"rating"`
	// TotalRatings 评分次数
	TotalRatings int `gorm:"column:total_ratings;not null;default:0" json:"total_ratings"`
	// TrustBadge 平台信任标识，仅管理员可变更
	TrustBadge bool `gorm:"column:trust_badge;not null;default:false" json:"trust_badge"`
	// Latitude 纬度
	Latitude float64 `gorm:"column:latitude;type:decimal(10,8)" json:"latitude"`
	// Longitude 经度
	Longitude float64 `gorm:"column:longitude;type:decimal(11,8)" json:"longitude"`
	// CommissionRate 平台抽成百分比
	CommissionRate decimal.Decimal `gorm:"column:commission_rate;type:decimal(5,2);not null;default:15" json:"commission_rate"`
}

// TableName 指定表名
func (Restaurant) TableName() string {
	return "restaurants"
}

// MenuItem 菜品实体
type MenuItem struct {
	gorm.Model
	// RestaurantID 所属商家
	RestaurantID uint `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	// Name 菜品名称
	Name string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	// Description 描述
	Description string `gorm:"column:description;type:text" json:"description"`
	// Price 单价
	Price decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	// Category 分类
	Category string `gorm:"column:category;type:varchar(50);index" json:"category"`
	// IsAvailable 是否可售
	IsAvailable bool `gorm:"column:is_available;not null;default:true" json:"is_available"`
	// ImageURL 图片地址
	ImageURL string `gorm:"column:image_url;type:varchar(255)" json:"image_url"`
	// PrepTime 出餐时间（分钟）
	PrepTime int `gorm:"column:prep_time;not null;default:15" json:"prep_time"`
}

// TableName 指定表名
func (MenuItem) TableName() string {
	return "menu_items"
}

// SearchFilter 商家搜索条件
type SearchFilter struct {
	Name      string
	Cuisine   string
	MinRating float64
	OnlyOpen  bool
	Offset    int
	Limit     int
}

// RestaurantRepository 商家仓储接口
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *Restaurant) error
	GetByID(ctx context.Context, id uint) (*Restaurant, error)
	GetByUserID(ctx context.Context, userID uint) (*Restaurant, error)
	Update(ctx context.Context, restaurant *Restaurant) error
	Search(ctx context.Context, filter SearchFilter) ([]*Restaurant, int64, error)
	SetTrustBadge(ctx context.Context, id uint, enabled bool) error
}

// MenuRepository 菜单仓储接口
type MenuRepository interface {
	Create(ctx context.Context, item *MenuItem) error
	GetByID(ctx context.Context, id uint) (*MenuItem, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*MenuItem, error)
	ListByRestaurant(ctx context.Context, restaurantID uint, onlyAvailable bool) ([]*MenuItem, error)
	Update(ctx context.Context, item *MenuItem) error
	Delete(ctx context.Context, id uint) error
}
