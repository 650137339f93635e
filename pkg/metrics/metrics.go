// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板与业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数（按方法/路径/状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 数据库查询计数
	DBQueriesTotal prometheus.Counter
	// 数据库查询耗时
	DBQueryDuration prometheus.Histogram

	// 业务指标
	OrdersPlacedTotal     prometheus.Counter
	OrdersCancelledTotal  prometheus.Counter
	ScoreRecomputesTotal  prometheus.Counter
	ScoreOverridesTotal   prometheus.Counter
	CreditScoreCacheHits  prometheus.Counter
	CreditScoreCacheMiss  prometheus.Counter
	NotificationsTotal    prometheus.Counter
	FeedbackSubmittedTotal prometheus.Counter
}

// New 创建指标实例并注册到独立 registry
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		DBQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "db_queries_total",
			Help:      "Total database queries",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		OrdersPlacedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "orders_placed_total",
			Help:      "Total orders placed",
		}),
		OrdersCancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "orders_cancelled_total",
			Help:      "Total orders cancelled",
		}),
		ScoreRecomputesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "credit_score_recomputes_total",
			Help:      "Total credit score recomputations",
		}),
		ScoreOverridesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "credit_score_overrides_total",
			Help:      "Total admin credit score overrides",
		}),
		CreditScoreCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "credit_score_cache_hits_total",
			Help:      "Credit summary cache hits",
		}),
		CreditScoreCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "credit_score_cache_misses_total",
			Help:      "Credit summary cache misses",
		}),
		NotificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "notifications_created_total",
			Help:      "Total notifications created",
		}),
		FeedbackSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "customer_feedback_total",
			Help:      "Total customer feedback submissions",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.OrdersPlacedTotal,
		m.OrdersCancelledTotal,
		m.ScoreRecomputesTotal,
		m.ScoreOverridesTotal,
		m.CreditScoreCacheHits,
		m.CreditScoreCacheMiss,
		m.NotificationsTotal,
		m.FeedbackSubmittedTotal,
	)

	return m
}

// GinMiddleware Gin HTTP 指标中间件
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ExposeHTTP 在独立端口暴露 /metrics，立即返回，监听在后台进行
func (m *Metrics) ExposeHTTP(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", port)
	go func() {
		logger.Info(context.Background(), "Metrics server starting", "addr", addr, "path", path)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "Metrics server failed", "error", err)
		}
	}()
}
