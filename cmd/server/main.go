package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitfantasy/jobwork/internal/config"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/handler"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/bitfantasy/jobwork/internal/jobwork/service"
	"github.com/bitfantasy/jobwork/internal/jobwork/sse"
	"github.com/bitfantasy/jobwork/internal/middleware"
	"github.com/bitfantasy/jobwork/internal/shared/feishu"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting jobwork service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	// Redis为可选依赖，连不上只是关闭读侧缓存
	rdb := initRedis(cfg.Redis)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, projection cache disabled", zap.Error(err))
		rdb = nil
	}
	pingCancel()

	repos := repository.NewRepositories(db)
	hub := sse.NewHub()

	// 飞书告警推送为可选能力
	var larkClient *feishu.Client
	if cfg.Feishu.AppID != "" && cfg.Feishu.AlertChatID != "" {
		larkClient = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
		zapLogger.Info("Feishu alert push enabled", zap.String("chat_id", cfg.Feishu.AlertChatID))
	}

	services := service.NewServices(repos, rdb, hub, zapLogger, service.Options{
		CapacityCeiling:    cfg.Planning.CapacityCeiling,
		ProjectionCacheTTL: cfg.Planning.ProjectionCacheTTL,
		Feishu:             larkClient,
		FeishuChatID:       cfg.Feishu.AlertChatID,
	})
	handlers := handler.NewHandlers(services, hub, Version)
	handlers.System.SetReadyCheck(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	})

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", h.System.HealthLive)
	r.GET("/health/ready", h.System.HealthReady)

	// 版本信息
	r.GET("/version", h.System.Version)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// SSE 实时推送（需要认证，支持 query param token）
		sseGroup := v1.Group("/sse")
		sseGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			sseGroup.GET("/events", h.SSE.Stream)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前会话
			authorized.GET("/me", h.System.Me)
			authorized.GET("/tenant/current", h.System.CurrentTenant)

			// 工作单
			jobs := authorized.Group("/jobs")
			{
				jobs.POST("", middleware.RequireRole(middleware.RoleSupervisor), h.Job.Create)
				jobs.GET("", h.Job.List)
				jobs.GET("/:id", h.Job.Get)
			}

			// 工序执行
			operations := authorized.Group("/operations")
			{
				operations.PATCH("/:id/status", h.Operation.UpdateStatus)
				operations.PATCH("/:id/plan", middleware.RequireRole(middleware.RoleSupervisor), h.Operation.Plan)
				operations.POST("/:id/production", h.Operation.RecordProduction)
				operations.GET("/:id/production", h.Operation.ListProduction)
			}

			// 排产日历
			planning := authorized.Group("/planning")
			{
				planning.GET("/calendar", h.Planning.Calendar)
				planning.GET("/calendar/export", h.Planning.Export)
			}

			// 看板与指标
			authorized.GET("/kanban", h.Metrics.Kanban)
			metrics := authorized.Group("/metrics")
			{
				metrics.GET("/wip", h.Metrics.WIP)
				metrics.GET("/bottlenecks", h.Metrics.Bottlenecks)
				metrics.GET("/late-jobs", h.Metrics.LateJobs)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.PATCH("/:id/read", h.Notification.MarkRead)
			}

			// 审计轨迹
			authorized.GET("/audit/:entity_type/:entity_id", h.Audit.Trail)
		}
	}
}
