package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/bitfantasy/jobwork/internal/jobwork/sse"
	"github.com/bitfantasy/jobwork/internal/shared/feishu"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options 服务层配置
type Options struct {
	// CapacityCeiling 同一机台+班次允许的最大并行工序数，0取默认值3
	CapacityCeiling int
	// ProjectionCacheTTL 读侧聚合的redis缓存时长，0取默认值30秒
	ProjectionCacheTTL time.Duration
	// Feishu 飞书客户端，nil表示不推送飞书告警
	Feishu *feishu.Client
	// FeishuChatID 接收车间告警的飞书群ID
	FeishuChatID string
}

// Services 服务集合
type Services struct {
	Job          *JobService
	Route        *RouteService
	Operation    *OperationService
	Planning     *PlanningService
	Production   *ProductionService
	Kanban       *KanbanService
	Metrics      *MetricsService
	Export       *ExportService
	Audit        *AuditService
	Notification *NotificationService
}

// NewServices 创建服务集合。
// rdb可为nil（不启用读侧缓存），hub可为nil（不启用SSE推送）。
func NewServices(repos *repository.Repositories, rdb *redis.Client, hub *sse.Hub, logger *zap.Logger, opts Options) *Services {
	if opts.CapacityCeiling <= 0 {
		opts.CapacityCeiling = 3
	}
	if opts.ProjectionCacheTTL <= 0 {
		opts.ProjectionCacheTTL = 30 * time.Second
	}

	locks := newLockRegistry()
	cache := &projectionCache{rdb: rdb, ttl: opts.ProjectionCacheTTL}

	auditSvc := NewAuditService(repos.Audit, logger)
	notifySvc := NewNotificationService(repos.Notification, hub, opts.Feishu, opts.FeishuChatID, logger)
	routeSvc := NewRouteService(repos.Operation, repos.Master, auditSvc, locks, logger)

	return &Services{
		Job:          NewJobService(repos.Job, repos.Operation, repos.Master, routeSvc, auditSvc, logger),
		Route:        routeSvc,
		Operation:    NewOperationService(repos.Job, repos.Operation, auditSvc, notifySvc, locks, logger),
		Planning:     NewPlanningService(repos.Job, repos.Operation, repos.Master, auditSvc, notifySvc, locks, logger, opts.CapacityCeiling),
		Production:   NewProductionService(repos.Job, repos.Operation, repos.Production, locks, logger),
		Kanban:       NewKanbanService(repos.Job, repos.Operation, repos.Master, cache, logger),
		Metrics:      NewMetricsService(repos.Job, repos.Operation, repos.Master, cache, logger),
		Export:       NewExportService(repos.Job, repos.Operation, repos.Master),
		Audit:        auditSvc,
		Notification: notifySvc,
	}
}

// projectionCache 读侧聚合的短TTL缓存。
// 读聚合允许最终一致，缓存命中返回的旧快照在允许范围内。
type projectionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// Get 命中时反序列化到dest并返回true
func (c *projectionCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

// Set 写入缓存，失败静默（缓存不可用不影响读路径）
func (c *projectionCache) Set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, key, raw, c.ttl)
}

// isoDate 统一的日期格式
const isoDate = "2006-01-02"

func todayUTC() string {
	return time.Now().UTC().Format(isoDate)
}
