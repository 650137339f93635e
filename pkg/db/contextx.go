package db

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// TxToContext 将事务句柄注入 context，供仓储在同一事务内执行
func TxToContext(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext 从 context 取出事务句柄，不存在时返回 nil
func TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}
