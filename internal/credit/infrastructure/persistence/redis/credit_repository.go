// Package redis 信用快照的 Redis 缓存层
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/fooddelivery/internal/credit/domain"
	"github.com/wyfcoding/fooddelivery/pkg/cache"
)

// 缓存 TTL；每次写分都会主动失效，TTL 只兜底
const stateTTL = 5 * time.Minute

// CreditCache 信用快照缓存
type CreditCache struct {
	cache *cache.RedisCache
}

// NewCreditCache 创建信用快照缓存
func NewCreditCache(c *cache.RedisCache) *CreditCache {
	return &CreditCache{cache: c}
}

func stateKey(userID uint) string {
	return fmt.Sprintf("credit:state:%d", userID)
}

// Get 读取缓存的信用快照，未命中时返回 (nil, nil)
func (c *CreditCache) Get(ctx context.Context, userID uint) (*domain.CreditState, error) {
	var state domain.CreditState
	hit, err := c.cache.GetJSON(ctx, stateKey(userID), &state)
	if err != nil || !hit {
		return nil, err
	}
	return &state, nil
}

// Set 写入信用快照缓存
func (c *CreditCache) Set(ctx context.Context, state *domain.CreditState) error {
	return c.cache.SetJSON(ctx, stateKey(state.UserID), state, stateTTL)
}

// Invalidate 删除用户的信用快照缓存
func (c *CreditCache) Invalidate(ctx context.Context, userID uint) error {
	return c.cache.Delete(ctx, stateKey(userID))
}
