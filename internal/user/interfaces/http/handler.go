// Package http 用户模块的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/fooddelivery/internal/user/application"
	"github.com/wyfcoding/fooddelivery/internal/user/domain"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/middleware"
)

// UserHandler 用户 HTTP 处理器
type UserHandler struct {
	users *application.UserService
}

// NewUserHandler 创建用户 HTTP 处理器
func NewUserHandler(users *application.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes 注册路由
func (h *UserHandler) RegisterRoutes(api *gin.RouterGroup, issuer *middleware.TokenIssuer) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	authed := api.Group("", middleware.GinAuthMiddleware(issuer))
	{
		authed.GET("/users/me", h.GetProfile)
	}

	admin := api.Group("/admin", middleware.GinAuthMiddleware(issuer, "admin"))
	{
		admin.GET("/users", h.ListUsers)
		admin.PUT("/users/:id/status", h.SetUserStatus)
		admin.GET("/actions", h.ListAdminActions)
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Register 注册新用户
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 管理员账号不允许自助注册
	if req.Role == domain.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot self-register as admin"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), application.RegisterCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录并返回 token
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetProfile 当前用户资料
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers 管理员分页查询用户
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, total, err := h.users.ListUsers(c.Request.Context(), c.Query("role"), page, pageSize)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total, "page": page, "page_size": pageSize})
}

// SetUserStatusRequest 启用/停用账号请求
type SetUserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetUserStatus 管理员启用/停用账号
func (h *UserHandler) SetUserStatus(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req SetUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.SetUserActive(c.Request.Context(), middleware.CurrentUserID(c), uint(userID), *req.IsActive, c.ClientIP())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListAdminActions 最近的管理员操作记录
func (h *UserHandler) ListAdminActions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	actions, err := h.users.ListAdminActions(c.Request.Context(), limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

func (h *UserHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, domain.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	case errors.Is(err, domain.ErrUserInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "account is deactivated"})
	case errors.Is(err, domain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
	default:
		logger.Error(c.Request.Context(), "user request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
