package service

import (
	"context"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService 审计服务。仅追加，记录写入失败只告警不阻断业务。
type AuditService struct {
	repo   repository.AuditStore
	logger *zap.Logger
}

// NewAuditService 创建审计服务
func NewAuditService(repo repository.AuditStore, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Record 写入一条不可变审计记录
func (s *AuditService) Record(ctx context.Context, tenantID, entityType, entityID, action, userID string, before, after entity.JSONB) {
	rec := &entity.AuditRecord{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
	}

	if err := s.repo.Append(ctx, rec); err != nil {
		s.logger.Error("审计记录写入失败",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("AUDIT",
		zap.String("tenant_id", tenantID),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("action", action),
		zap.String("user_id", userID),
	)
}

// Trail 按实体查询审计轨迹，时间倒序
func (s *AuditService) Trail(ctx context.Context, tenantID, entityType, entityID string) ([]entity.AuditRecord, error) {
	return s.repo.ListByEntity(ctx, tenantID, entityType, entityID)
}
