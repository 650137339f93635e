// Package http 信用分子系统的 HTTP 接口层
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/fooddelivery/internal/credit/application"
	"github.com/wyfcoding/fooddelivery/internal/credit/domain"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/metrics"
	"github.com/wyfcoding/fooddelivery/pkg/middleware"
)

// AdminActionRecorder 管理员操作审计，由 user 模块实现。
// 覆盖信用分是管理员行为，除信用台账外还要落一条独立的操作审计。
type AdminActionRecorder interface {
	RecordAdminAction(ctx context.Context, adminID uint, actionType, targetType string, targetID uint, details, ip string) error
}

// CreditHandler 信用分 HTTP 处理器
type CreditHandler struct {
	credit  *application.CreditService
	audit   AdminActionRecorder
	metrics *metrics.Metrics
}

// NewCreditHandler 创建信用分 HTTP 处理器
func NewCreditHandler(credit *application.CreditService, audit AdminActionRecorder, m *metrics.Metrics) *CreditHandler {
	return &CreditHandler{credit: credit, audit: audit, metrics: m}
}

// RegisterRoutes 注册路由
func (h *CreditHandler) RegisterRoutes(api *gin.RouterGroup, issuer *middleware.TokenIssuer) {
	authed := api.Group("", middleware.GinAuthMiddleware(issuer))
	{
		authed.GET("/credit/me", h.GetMySummary)
		authed.GET("/credit/me/history", h.GetMyHistory)
	}

	admin := api.Group("/admin", middleware.GinAuthMiddleware(issuer, "admin"))
	{
		admin.POST("/credit/override", h.Override)
		admin.GET("/credit/:user_id", h.GetUserSummary)
	}
}

// GetMySummary 当前用户的信用概览
func (h *CreditHandler) GetMySummary(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	summary, err := h.credit.GetSummary(c.Request.Context(), userID, 10)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetMyHistory 当前用户的信用变更记录
func (h *CreditHandler) GetMyHistory(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	entries, err := h.credit.ListHistory(c.Request.Context(), userID, limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// GetUserSummary 管理员查看任意用户的信用概览
func (h *CreditHandler) GetUserSummary(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	summary, err := h.credit.GetSummary(c.Request.Context(), uint(userID), 10)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// OverrideRequest 管理员覆盖信用分请求
type OverrideRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Override 管理员直接设定用户信用分
func (h *CreditHandler) Override(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Reason == "" {
		req.Reason = "Manual adjustment by admin"
	}

	adminID := middleware.CurrentUserID(c)

	newScore, err := h.credit.Override(c.Request.Context(), req.UserID, req.Score, req.Reason)
	if err != nil {
		h.renderError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ScoreOverridesTotal.Inc()
	}

	// 操作审计失败不回滚已提交的信用变更，只记日志
	if h.audit != nil {
		if err := h.audit.RecordAdminAction(c.Request.Context(), adminID, "update_credit_score", "user", req.UserID,
			"Credit score override to "+strconv.Itoa(newScore)+". Reason: "+req.Reason, c.ClientIP()); err != nil {
			logger.Error(c.Request.Context(), "failed to record admin action",
				"admin_id", adminID,
				"user_id", req.UserID,
				"error", err,
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{"user_id": req.UserID, "score": newScore})
}

func (h *CreditHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		logger.Error(c.Request.Context(), "credit request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
