// Package persistence 组合 MySQL 与 Redis 的信用状态仓储
package persistence

import (
	"context"

	"github.com/wyfcoding/fooddelivery/internal/credit/domain"
	credisredis "github.com/wyfcoding/fooddelivery/internal/credit/infrastructure/persistence/redis"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/metrics"
)

// compositeCreditRepository 读走缓存、写走 MySQL 并失效缓存。
// 加锁读永远直达 MySQL，缓存只服务无锁读路径。
type compositeCreditRepository struct {
	primary domain.CreditRepository
	cache   *credisredis.CreditCache // 可为 nil
	metrics *metrics.Metrics         // 可为 nil
}

// NewCompositeCreditRepository 创建组合仓储
func NewCompositeCreditRepository(primary domain.CreditRepository, cache *credisredis.CreditCache, m *metrics.Metrics) domain.CreditRepository {
	return &compositeCreditRepository{
		primary: primary,
		cache:   cache,
		metrics: m,
	}
}

func (r *compositeCreditRepository) GetState(ctx context.Context, userID uint) (*domain.CreditState, error) {
	if r.cache != nil {
		state, err := r.cache.Get(ctx, userID)
		if err == nil && state != nil {
			if r.metrics != nil {
				r.metrics.CreditScoreCacheHits.Inc()
			}
			return state, nil
		}
		// 缓存故障按未命中处理
		if r.metrics != nil {
			r.metrics.CreditScoreCacheMiss.Inc()
		}
	}

	state, err := r.primary.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, state); err != nil {
			logger.Warn(ctx, "failed to backfill credit state cache", "user_id", userID, "error", err)
		}
	}
	return state, nil
}

func (r *compositeCreditRepository) GetStateForUpdate(ctx context.Context, userID uint) (*domain.CreditState, error) {
	return r.primary.GetStateForUpdate(ctx, userID)
}

func (r *compositeCreditRepository) UpdateState(ctx context.Context, state *domain.CreditState) error {
	if err := r.primary.UpdateState(ctx, state); err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Invalidate(ctx, state.UserID); err != nil {
			logger.Warn(ctx, "failed to invalidate credit state cache", "user_id", state.UserID, "error", err)
		}
	}
	return nil
}
