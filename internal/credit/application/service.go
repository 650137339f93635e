// Package application 信用分子系统的应用层服务，协调评分规则、持久化与集成事件
package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/fooddelivery/internal/credit/domain"
	"github.com/wyfcoding/fooddelivery/pkg/db"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"gorm.io/gorm"
)

// TxManager 事务边界，*gorm.DB 天然满足
type TxManager interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// CreditService 信用分应用服务。
// Recompute 与 Override 共用同一个事务单元：行锁读当前分 → 写新分+等级 → 追加台账，
// 三步要么全部提交要么全部丢弃，同一用户的并发变更被行锁串行化。
type CreditService struct {
	db      TxManager
	credits domain.CreditRepository
	stats   domain.StatsRepository
	history domain.HistoryRepository
	events  domain.EventPublisher // 可为 nil（如本地开发关闭 Kafka）
}

// NewCreditService 创建信用分应用服务
func NewCreditService(
	gdb TxManager,
	credits domain.CreditRepository,
	stats domain.StatsRepository,
	history domain.HistoryRepository,
	events domain.EventPublisher,
) *CreditService {
	return &CreditService{
		db:      gdb,
		credits: credits,
		stats:   stats,
		history: history,
		events:  events,
	}
}

// Recompute 依据用户最新的订单行为统计重算信用分。
// 统计聚合失败时降级：不改分、不写台账，返回当前分与 ErrStatsUnavailable，
// 触发方（订单取消、商家评价）据此告警但不中断自身流程。
func (s *CreditService) Recompute(ctx context.Context, userID uint, trigger domain.Trigger, reason string, referenceID *uint) (int, error) {
	stats, err := s.stats.AggregateForUser(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "behavior stats aggregation failed, score left unchanged",
			"user_id", userID,
			"trigger", trigger,
			"error", err,
		)
		state, stateErr := s.credits.GetState(ctx, userID)
		if stateErr != nil {
			return 0, stateErr
		}
		return state.Score, domain.ErrStatsUnavailable
	}

	newScore := domain.ComputeScore(*stats)
	return s.apply(ctx, userID, newScore, trigger, reason, referenceID)
}

// Override 管理员直接设定信用分，绕过评分规则但走同一套写路径。
// 入参分值按与评分规则相同的边界收敛到 [0,100]。
// 管理员操作本身的授权审计由调用方（admin 模块）另行记录。
func (s *CreditService) Override(ctx context.Context, userID uint, score int, reason string) (int, error) {
	return s.apply(ctx, userID, domain.ClampScore(score), domain.TriggerAdmin, reason, nil)
}

// apply 执行一次信用分变更单元
func (s *CreditService) apply(ctx context.Context, userID uint, newScore int, trigger domain.Trigger, reason string, referenceID *uint) (int, error) {
	var event *domain.ScoreChangedEvent

	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := db.TxToContext(ctx, tx)

		state, err := s.credits.GetStateForUpdate(txCtx, userID)
		if err != nil {
			return err
		}

		oldScore := state.Score
		now := time.Now()

		state.Score = newScore
		state.Status = domain.TierFor(newScore)
		state.LastCreditUpdate = now

		if err := s.credits.UpdateState(txCtx, state); err != nil {
			return fmt.Errorf("persist credit state: %w", err)
		}

		entry := &domain.CreditHistory{
			UserID:       userID,
			OldScore:     oldScore,
			NewScore:     newScore,
			ChangeAmount: newScore - oldScore,
			Reason:       reason,
			TriggeredBy:  trigger,
			ReferenceID:  referenceID,
		}
		if err := s.history.Append(txCtx, entry); err != nil {
			return fmt.Errorf("append credit history: %w", err)
		}

		event = &domain.ScoreChangedEvent{
			UserID:      userID,
			OldScore:    oldScore,
			NewScore:    newScore,
			Status:      state.Status,
			TriggeredBy: trigger,
			Reason:      reason,
			ChangedAt:   now,
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// 集成事件在事务提交后发布，失败只记日志，不影响已提交的变更
	if s.events != nil && event != nil {
		if err := s.events.PublishScoreChanged(ctx, event); err != nil {
			logger.Error(ctx, "failed to publish score changed event",
				"user_id", userID,
				"error", err,
			)
		}
	}

	logger.Info(ctx, "credit score updated",
		"user_id", userID,
		"old_score", event.OldScore,
		"new_score", event.NewScore,
		"status", event.Status,
		"trigger", trigger,
	)

	return newScore, nil
}

// GetState 读取用户当前信用快照
func (s *CreditService) GetState(ctx context.Context, userID uint) (*domain.CreditState, error) {
	return s.credits.GetState(ctx, userID)
}

// GetSummary 返回用户信用概览：当前分、等级、折扣、行为统计与最近台账
func (s *CreditService) GetSummary(ctx context.Context, userID uint, historyLimit int) (*CreditSummaryDTO, error) {
	state, err := s.credits.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &CreditSummaryDTO{
		UserID:          state.UserID,
		Score:           state.Score,
		Status:          string(state.Status),
		DiscountPercent: state.Status.DiscountPercent(),
		LastUpdate:      state.LastCreditUpdate,
	}

	stats, err := s.stats.AggregateForUser(ctx, userID)
	if err != nil {
		// 概览里的统计是软数据，聚合失败时保留零值
		logger.Warn(ctx, "stats aggregation failed for summary", "user_id", userID, "error", err)
	} else {
		summary.Stats = *stats
	}

	entries, err := s.history.ListRecent(ctx, userID, historyLimit)
	if err != nil {
		return nil, err
	}
	summary.History = make([]HistoryEntryDTO, 0, len(entries))
	for _, e := range entries {
		summary.History = append(summary.History, toHistoryDTO(e))
	}

	return summary, nil
}

// ListHistory 按时间倒序返回用户最近的信用变更记录
func (s *CreditService) ListHistory(ctx context.Context, userID uint, limit int) ([]HistoryEntryDTO, error) {
	if _, err := s.credits.GetState(ctx, userID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryDTO(e))
	}
	return out, nil
}

// IsStatsFallback 判断错误是否为统计降级软失败
func IsStatsFallback(err error) bool {
	return errors.Is(err, domain.ErrStatsUnavailable)
}
