// Package application 用户注册、登录与管理员操作的应用服务
package application

import (
	"context"
	"errors"
	"fmt"

	creditdomain "github.com/wyfcoding/fooddelivery/internal/credit/domain"
	"github.com/wyfcoding/fooddelivery/internal/user/domain"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/middleware"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 用户应用服务
type UserService struct {
	users  domain.UserRepository
	audit  domain.AdminActionRepository
	issuer *middleware.TokenIssuer
}

// NewUserService 创建用户应用服务
func NewUserService(users domain.UserRepository, audit domain.AdminActionRepository, issuer *middleware.TokenIssuer) *UserService {
	return &UserService{users: users, audit: audit, issuer: issuer}
}

// RegisterCommand 注册命令
type RegisterCommand struct {
	Username string
	Email    string
	Password string
	Role     string
	Phone    string
	Address  string
}

// Register 注册新用户。新用户信用分从基准分起步，等级经统一的等级划分函数得出。
func (s *UserService) Register(ctx context.Context, cmd RegisterCommand) (*domain.User, error) {
	if cmd.Role == "" {
		cmd.Role = domain.RoleCustomer
	}
	if !domain.ValidRole(cmd.Role) {
		return nil, domain.ErrInvalidRole
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, cmd.Username, cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, domain.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     cmd.Username,
		Email:        cmd.Email,
		PasswordHash: string(hash),
		Role:         cmd.Role,
		Phone:        cmd.Phone,
		Address:      cmd.Address,
		CreditScore:  creditdomain.DefaultScore,
		CreditStatus: string(creditdomain.TierFor(creditdomain.DefaultScore)),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// Login 校验凭证并签发 token
func (s *UserService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, domain.ErrUserInactive
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListUsers 管理员分页查询用户，可按角色过滤
func (s *UserService) ListUsers(ctx context.Context, role string, page, pageSize int) ([]*domain.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.users.List(ctx, role, (page-1)*pageSize, pageSize)
}

// SetUserActive 管理员启用/停用账号并落审计
func (s *UserService) SetUserActive(ctx context.Context, adminID, userID uint, active bool, ip string) (*domain.User, error) {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}

	verb := "deactivated"
	if active {
		verb = "activated"
	}
	if err := s.RecordAdminAction(ctx, adminID, "toggle_user_status", "user", userID,
		fmt.Sprintf("User account %s", verb), ip); err != nil {
		logger.Error(ctx, "failed to record admin action", "admin_id", adminID, "user_id", userID, "error", err)
	}

	logger.Info(ctx, "user status toggled", "admin_id", adminID, "user_id", userID, "active", active)
	return s.users.GetByID(ctx, userID)
}

// RecordAdminAction 追加一条管理员审计记录
func (s *UserService) RecordAdminAction(ctx context.Context, adminID uint, actionType, targetType string, targetID uint, details, ip string) error {
	return s.audit.Append(ctx, &domain.AdminAction{
		AdminID:    adminID,
		ActionType: actionType,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		IPAddress:  ip,
	})
}

// ListAdminActions 最近的管理员操作记录
func (s *UserService) ListAdminActions(ctx context.Context, limit int) ([]*domain.AdminAction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.audit.ListRecent(ctx, limit)
}
