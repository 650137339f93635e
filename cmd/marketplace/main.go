// 外卖平台主程序
// 功能：用户/商家/订单/站内通知与顾客信用分体系，单体部署，gin HTTP API
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	creditapp "github.com/wyfcoding/fooddelivery/internal/credit/application"
	creditdomain "github.com/wyfcoding/fooddelivery/internal/credit/domain"
	creditmsg "github.com/wyfcoding/fooddelivery/internal/credit/infrastructure/messaging"
	creditpersist "github.com/wyfcoding/fooddelivery/internal/credit/infrastructure/persistence"
	creditmysql "github.com/wyfcoding/fooddelivery/internal/credit/infrastructure/persistence/mysql"
	creditredis "github.com/wyfcoding/fooddelivery/internal/credit/infrastructure/persistence/redis"
	credithttp "github.com/wyfcoding/fooddelivery/internal/credit/interfaces/http"
	notifapp "github.com/wyfcoding/fooddelivery/internal/notification/application"
	notifdomain "github.com/wyfcoding/fooddelivery/internal/notification/domain"
	notifmsg "github.com/wyfcoding/fooddelivery/internal/notification/infrastructure/messaging"
	notifmysql "github.com/wyfcoding/fooddelivery/internal/notification/infrastructure/persistence/mysql"
	notifhttp "github.com/wyfcoding/fooddelivery/internal/notification/interfaces/http"
	orderapp "github.com/wyfcoding/fooddelivery/internal/order/application"
	orderdomain "github.com/wyfcoding/fooddelivery/internal/order/domain"
	ordermsg "github.com/wyfcoding/fooddelivery/internal/order/infrastructure/messaging"
	ordermysql "github.com/wyfcoding/fooddelivery/internal/order/infrastructure/persistence/mysql"
	orderhttp "github.com/wyfcoding/fooddelivery/internal/order/interfaces/http"
	restapp "github.com/wyfcoding/fooddelivery/internal/restaurant/application"
	restdomain "github.com/wyfcoding/fooddelivery/internal/restaurant/domain"
	restmysql "github.com/wyfcoding/fooddelivery/internal/restaurant/infrastructure/persistence/mysql"
	resthttp "github.com/wyfcoding/fooddelivery/internal/restaurant/interfaces/http"
	userapp "github.com/wyfcoding/fooddelivery/internal/user/application"
	userdomain "github.com/wyfcoding/fooddelivery/internal/user/domain"
	usermysql "github.com/wyfcoding/fooddelivery/internal/user/infrastructure/persistence/mysql"
	userhttp "github.com/wyfcoding/fooddelivery/internal/user/interfaces/http"
	"github.com/wyfcoding/fooddelivery/pkg/cache"
	"github.com/wyfcoding/fooddelivery/pkg/config"
	"github.com/wyfcoding/fooddelivery/pkg/db"
	"github.com/wyfcoding/fooddelivery/pkg/logger"
	"github.com/wyfcoding/fooddelivery/pkg/metrics"
	"github.com/wyfcoding/fooddelivery/pkg/middleware"
	"github.com/wyfcoding/fooddelivery/pkg/mq"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting marketplace",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		metricsInstance.ExposeHTTP(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 4. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		QueryHook: func(elapsed time.Duration) {
			metricsInstance.DBQueriesTotal.Inc()
			metricsInstance.DBQueryDuration.Observe(elapsed.Seconds())
		},
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	// 非生产环境自动建表
	if cfg.Environment != "prod" {
		if err := database.AutoMigrate(
			&userdomain.User{},
			&userdomain.AdminAction{},
			&restdomain.Restaurant{},
			&restdomain.MenuItem{},
			&orderdomain.Order{},
			&orderdomain.OrderItem{},
			&orderdomain.CustomerFeedback{},
			&creditdomain.CreditHistory{},
			&notifdomain.Notification{},
		); err != nil {
			logger.Fatal(ctx, "Failed to migrate database schema", "error", err)
		}
	}

	// 5. 初始化 Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 6. 初始化 Kafka（可选）
	var producer *mq.KafkaProducer
	if cfg.Kafka.Enabled {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			GroupID:      cfg.Kafka.GroupID,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to create Kafka producer", "error", err)
		}
		defer producer.Close()
	}

	// 7. 初始化仓储
	userRepo := usermysql.NewUserRepository(database.DB)
	adminActionRepo := usermysql.NewAdminActionRepository(database.DB)
	restaurantRepo := restmysql.NewRestaurantRepository(database.DB)
	menuRepo := restmysql.NewMenuRepository(database.DB)
	orderRepo := ordermysql.NewOrderRepository(database.DB)
	feedbackRepo := ordermysql.NewFeedbackRepository(database.DB)
	notifRepo := notifmysql.NewNotificationRepository(database.DB)

	creditPrimary := creditmysql.NewCreditRepository(database.DB)
	creditCache := creditredis.NewCreditCache(redisCache)
	creditRepo := creditpersist.NewCompositeCreditRepository(creditPrimary, creditCache, metricsInstance)
	statsRepo := creditmysql.NewStatsRepository(database.DB)
	historyRepo := creditmysql.NewHistoryRepository(database.DB)

	var creditEvents creditdomain.EventPublisher
	var orderEvents orderdomain.EventPublisher
	if producer != nil {
		creditEvents = creditmsg.NewKafkaPublisher(producer)
		orderEvents = ordermsg.NewKafkaPublisher(producer)
	}

	// 8. 初始化应用服务
	issuer := middleware.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Hour)
	userService := userapp.NewUserService(userRepo, adminActionRepo, issuer)
	creditService := creditapp.NewCreditService(database.DB, creditRepo, statsRepo, historyRepo, creditEvents)
	notifService := notifapp.NewNotificationService(notifRepo, metricsInstance)
	restaurantService := restapp.NewRestaurantService(restaurantRepo, menuRepo, userService)
	orderService := orderapp.NewOrderService(database.DB, orderRepo, feedbackRepo, menuRepo, restaurantRepo,
		creditService, notifService, orderEvents, metricsInstance)

	// 信用分变更事件消费者：把分数变动转为站内通知
	var scoreConsumer *notifmsg.ScoreChangedConsumer
	if cfg.Kafka.Enabled {
		scoreConsumer, err = notifmsg.NewScoreChangedConsumer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			GroupID:      cfg.Kafka.GroupID,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		}, notifService)
		if err != nil {
			logger.Fatal(ctx, "Failed to create score change consumer", "error", err)
		}
		defer scoreConsumer.Close()
	}

	// 9. 创建 HTTP 服务器
	httpServer := createHTTPServer(cfg, metricsInstance, issuer,
		userService, creditService, restaurantService, orderService, notifService)

	// 10. 启动与优雅关停
	rootCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		logger.Info(ctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if scoreConsumer != nil {
		g.Go(func() error {
			logger.Info(ctx, "Starting score change consumer")
			return scoreConsumer.Run(gCtx)
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info(ctx, "Shutting down marketplace")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "Server exited with error", "error", err)
	}
	logger.Info(ctx, "Marketplace stopped")
}

// createHTTPServer 创建 HTTP 服务器并注册全部路由
func createHTTPServer(
	cfg *config.Config,
	m *metrics.Metrics,
	issuer *middleware.TokenIssuer,
	userService *userapp.UserService,
	creditService *creditapp.CreditService,
	restaurantService *restapp.RestaurantService,
	orderService *orderapp.OrderService,
	notifService *notifapp.NotificationService,
) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(m.GinMiddleware())
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())

	api := router.Group("/api/v1")
	userhttp.NewUserHandler(userService).RegisterRoutes(api, issuer)
	credithttp.NewCreditHandler(creditService, userService, m).RegisterRoutes(api, issuer)
	resthttp.NewRestaurantHandler(restaurantService).RegisterRoutes(api, issuer)
	orderhttp.NewOrderHandler(orderService).RegisterRoutes(api, issuer)
	notifhttp.NewNotificationHandler(notifService).RegisterRoutes(api, issuer)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
