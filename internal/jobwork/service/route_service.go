package service

import (
	"context"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"go.uber.org/zap"
)

// RouteService 工艺路线生成服务。
// 按零件默认工艺路线为工作单展开工序，全部成功或全部回滚。
type RouteService struct {
	opRepo     repository.OperationStore
	masterRepo repository.MasterStore
	audit      *AuditService
	locks      *lockRegistry
	logger     *zap.Logger
}

// NewRouteService 创建工艺路线服务
func NewRouteService(opRepo repository.OperationStore, masterRepo repository.MasterStore, audit *AuditService, locks *lockRegistry, logger *zap.Logger) *RouteService {
	return &RouteService{
		opRepo:     opRepo,
		masterRepo: masterRepo,
		audit:      audit,
		locks:      locks,
		logger:     logger,
	}
}

// validateRoute 校验零件工艺路线：
// 零件存在、属于本租户、路线非空、每个操作类型在目录中可解析。
func (s *RouteService) validateRoute(ctx context.Context, partID, tenantID string) ([]string, error) {
	part, err := s.masterRepo.FindPart(ctx, partID)
	if err != nil {
		return nil, apperr.NotFound("零件不存在")
	}
	if part.TenantID != tenantID {
		return nil, apperr.New(apperr.KindNotFound, apperr.CodeTenantMismatch, "零件不属于当前租户")
	}
	if len(part.DefaultOperationRoute) == 0 {
		return nil, apperr.Validation(apperr.CodeEmptyRoute, "零件未定义工艺路线")
	}
	for _, opTypeID := range part.DefaultOperationRoute {
		if _, err := s.masterRepo.FindOperationType(ctx, opTypeID); err != nil {
			return nil, apperr.Newf(apperr.KindValidation, apperr.CodeInvalidOperationReference,
				"工艺路线包含无效操作类型: %s", opTypeID)
		}
	}
	return part.DefaultOperationRoute, nil
}

// CreateJobOperations 按工艺路线创建工序，序号1..N，首道READY其余NOT_STARTED。
// 任何一步失败即删除本次已创建的工序后返回错误，不留下残缺路线。
func (s *RouteService) CreateJobOperations(ctx context.Context, jobID, partID, tenantID string) ([]string, error) {
	unlock := s.locks.LockJob(jobID)
	defer unlock()

	route, err := s.validateRoute(ctx, partID, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	createdIDs := make([]string, 0, len(route))

	for i, opTypeID := range route {
		status := entity.OpStatusNotStarted
		if i == 0 {
			status = entity.OpStatusReady
		}

		op := &entity.JobOperation{
			ID:              jobID + "-" + opTypeID,
			JobID:           jobID,
			TenantID:        tenantID,
			OperationTypeID: opTypeID,
			SequenceNumber:  i + 1,
			Status:          status,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := s.opRepo.Create(ctx, op); err != nil {
			s.rollback(ctx, createdIDs)
			return nil, err
		}
		createdIDs = append(createdIDs, op.ID)
	}

	s.logger.Info("JOB_ROUTE_CREATED",
		zap.String("job_id", jobID),
		zap.String("tenant_id", tenantID),
		zap.Int("operation_count", len(createdIDs)),
	)
	s.audit.Record(ctx, tenantID, entity.AuditEntityJob, jobID, entity.AuditJobRouteCreated, "system",
		nil, entity.JSONB{"operation_ids": createdIDs})

	return createdIDs, nil
}

// rollback 补偿删除本次调用已创建的工序
func (s *RouteService) rollback(ctx context.Context, createdIDs []string) {
	for _, id := range createdIDs {
		if err := s.opRepo.Delete(ctx, id); err != nil {
			s.logger.Error("工艺路线回滚失败", zap.String("job_operation_id", id), zap.Error(err))
		}
	}
}
