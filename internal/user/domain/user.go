// Package domain 用户与管理员审计的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// 用户角色
const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleAdmin      = "admin"
	RoleDelivery   = "delivery"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists 用户名或邮箱已被占用
	ErrUserExists = errors.New("username or email already exists")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserInactive 账号已被停用
	ErrUserInactive = errors.New("user account is deactivated")
	// ErrInvalidRole 非法角色
	ErrInvalidRole = errors.New("invalid role")
)

// User 用户实体。credit_score/credit_status 列由信用模块独占写入，本模块只读。
type User struct {
	gorm.Model
	// Username 用户名
	Username string `gorm:"column:username;type:varchar(64);uniqueIndex;not null" json:"username"`
	// Email 邮箱
	Email string `gorm:"column:email;type:varchar(128);uniqueIndex;not null" json:"email"`
	// PasswordHash 密码哈希
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	// Role 角色
	Role string `gorm:"column:role;type:varchar(20);index;not null;default:'customer'" json:"role"`
	// Phone 联系电话
	Phone string `gorm:"column:phone;type:varchar(20)" json:"phone"`
	// Address 默认收货地址
	Address string `gorm:"column:address;type:varchar(255)" json:"address"`
	// CreditScore 信用分
	CreditScore int `gorm:"column:credit_score;not null;default:70" json:"credit_score"`
	// CreditStatus 信用等级
	CreditStatus string `gorm:"column:credit_status;type:varchar(20);not null;default:'average'" json:"credit_status"`
	// LastCreditUpdate 最近一次信用分更新时间
	LastCreditUpdate *time.Time `gorm:"column:last_credit_update" json:"last_credit_update,omitempty"`
	// IsActive 账号是否可用
	IsActive bool `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// ValidRole 校验角色取值
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleRestaurant, RoleAdmin, RoleDelivery:
		return true
	}
	return false
}

// AdminAction 管理员操作审计记录
type AdminAction struct {
	gorm.Model
	// AdminID 操作人
	AdminID uint `gorm:"column:admin_id;index;not null" json:"admin_id"`
	// ActionType 操作类型，如 update_credit_score / toggle_user_status
	ActionType string `gorm:"column:action_type;type:varchar(50);not null" json:"action_type"`
	// TargetType 目标对象类型，如 user / restaurant
	TargetType string `gorm:"column:target_type;type:varchar(20);not null" json:"target_type"`
	// TargetID 目标对象 ID
	TargetID uint `gorm:"column:target_id;not null" json:"target_id"`
	// Details 操作描述
	Details string `gorm:"column:details;type:text" json:"details"`
	// IPAddress 操作来源 IP
	IPAddress string `gorm:"column:ip_address;type:varchar(45)" json:"ip_address"`
}

// TableName 指定表名
func (AdminAction) TableName() string {
	return "admin_actions"
}

// UserRepository 用户仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	List(ctx context.Context, role string, offset, limit int) ([]*User, int64, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

// AdminActionRepository 管理员审计仓储接口
type AdminActionRepository interface {
	Append(ctx context.Context, action *AdminAction) error
	ListRecent(ctx context.Context, limit int) ([]*AdminAction, error)
}
