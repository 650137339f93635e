// Package mysql 用户与审计的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/fooddelivery/internal/user/domain"
	"github.com/wyfcoding/fooddelivery/pkg/db"
	"gorm.io/gorm"
)

// userRepository 用户仓储实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(gdb *gorm.DB) domain.UserRepository {
	return &userRepository{db: gdb}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.getDB(ctx).WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.getDB(ctx).WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.getDB(ctx).WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) List(ctx context.Context, role string, offset, limit int) ([]*domain.User, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*domain.User
	err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.getDB(ctx).WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// adminActionRepository 管理员审计仓储实现
type adminActionRepository struct {
	db *gorm.DB
}

// NewAdminActionRepository 创建管理员审计仓储
func NewAdminActionRepository(gdb *gorm.DB) domain.AdminActionRepository {
	return &adminActionRepository{db: gdb}
}

func (r *adminActionRepository) Append(ctx context.Context, action *domain.AdminAction) error {
	return r.getDB(ctx).WithContext(ctx).Create(action).Error
}

func (r *adminActionRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AdminAction, error) {
	var actions []*domain.AdminAction
	err := r.getDB(ctx).WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *adminActionRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}
