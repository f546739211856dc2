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
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/bondmarket/internal/market/application"
	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/internal/market/infrastructure/messaging"
	persistencemysql "github.com/wyfcoding/bondmarket/internal/market/infrastructure/persistence/mysql"
	persistenceredis "github.com/wyfcoding/bondmarket/internal/market/infrastructure/persistence/redis"
	httpserver "github.com/wyfcoding/bondmarket/internal/market/interfaces/http"
	"github.com/wyfcoding/bondmarket/pkg/cache"
	"github.com/wyfcoding/bondmarket/pkg/config"
	"github.com/wyfcoding/bondmarket/pkg/db"
	"github.com/wyfcoding/bondmarket/pkg/logger"
	"github.com/wyfcoding/bondmarket/pkg/metrics"
	"github.com/wyfcoding/bondmarket/pkg/middleware"
	"github.com/wyfcoding/bondmarket/pkg/mq"
	"github.com/wyfcoding/bondmarket/pkg/ratelimit"
	"github.com/wyfcoding/bondmarket/pkg/trace"
)

var configPath = flag.String("config", "configs/config.toml", "config file path")

func main() {
	flag.Parse()
	ctx := context.Background()

	// 1. 加载配置
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	logger.Info(ctx, "starting bond market service", "service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	// 3. 初始化链路追踪
	if cfg.Tracing.Enabled {
		shutdown, err := trace.InitTracer(cfg.ServiceName, cfg.Tracing.CollectorEndpoint, cfg.Tracing.SamplingRate)
		if err != nil {
			logger.Fatal(ctx, "failed to init tracer", "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error(shutdownCtx, "failed to shutdown tracer", "error", err)
			}
		}()
	}

	// 4. 初始化指标
	metricsImpl := metrics.New(cfg.ServiceName)
	if err := metricsImpl.Register(); err != nil {
		logger.Fatal(ctx, "failed to register metrics", "error", err)
	}
	collector := metrics.NewDefaultCollector(metricsImpl)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "metrics server exited", "error", err)
			}
		}()
	}

	// 5. 初始化 Redis 与权威存储
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
		logger.Fatal(ctx, "failed to connect redis", "error", err)
	}
	defer redisCache.Close()
	store := persistenceredis.NewStore(redisCache.GetClient())

	// 6. 可选：初始化 MySQL 成交归档
	var archive domain.TradeArchive
	if cfg.Market.ArchiveEnabled {
		database, err := db.Init(db.Config{
			Driver:             cfg.Database.Driver,
			DSN:                cfg.Database.DSN,
			MaxOpenConns:       cfg.Database.MaxOpenConns,
			MaxIdleConns:       cfg.Database.MaxIdleConns,
			ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
			LogEnabled:         cfg.Database.LogEnabled,
			SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to connect database", "error", err)
		}
		defer database.Close()
		if cfg.Environment == "dev" {
			if err := database.AutoMigrate(&persistencemysql.TradeModel{}); err != nil {
				logger.Error(ctx, "failed to migrate database", "error", err)
			}
		}
		archive = persistencemysql.NewTradeArchive(database)
	}

	// 7. 可选：初始化 Kafka 成交事件发布
	var publisher domain.TradePublisher
	if cfg.Market.FeedEnabled {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:           cfg.Kafka.Brokers,
			GroupID:           cfg.Kafka.GroupID,
			Partitions:        cfg.Kafka.Partitions,
			Replication:       cfg.Kafka.Replication,
			SessionTimeout:    cfg.Kafka.SessionTimeout,
			MaxRetries:        3,
			RetryBackoff:      100,
			EnableCompression: true,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to create kafka producer", "error", err)
		}
		defer producer.Close()
		publisher = messaging.NewKafkaTradePublisher(producer, cfg.Market.TradeFeedTopic, logger.Get())
	}

	// 8. 装配应用服务
	enhancedThreshold := decimal.Zero
	if cfg.Market.EnhancedReportThreshold != "" {
		enhancedThreshold, err = decimal.NewFromString(cfg.Market.EnhancedReportThreshold)
		if err != nil {
			logger.Fatal(ctx, "invalid enhanced report threshold", "value", cfg.Market.EnhancedReportThreshold, "error", err)
		}
	}
	gate := application.NewComplianceService(enhancedThreshold, collector, logger.Get())
	ledgerService := application.NewLedgerService(store, collector, logger.Get())
	matchingService := application.NewMatchingService(store, gate, ledgerService, publisher, archive, collector, logger.Get())

	// 9. 装配 HTTP 服务器
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	engine := gin.New()
	engine.Use(middleware.GinRecoveryMiddleware())
	if cfg.Tracing.Enabled {
		engine.Use(otelgin.Middleware(cfg.ServiceName))
	}
	engine.Use(middleware.GinLoggingMiddleware())
	engine.Use(middleware.GinCORSMiddleware())
	if cfg.Metrics.Enabled {
		engine.Use(middleware.GinMetricsMiddleware(collector))
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		engine.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}

	handler := httpserver.NewMarketHandler(matchingService, ledgerService)
	handler.RegisterRoutes(engine)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName, "version": cfg.Version})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 10. 启动与优雅退出
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(ctx, "shutting down server...")
		case <-gctx.Done():
			logger.Info(ctx, "context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
	}
	logger.Info(ctx, "bond market service stopped")
}
