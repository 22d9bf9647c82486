package service

import (
	"context"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductionService 产量台账。
// 台账只追加不修改，工序上维护累计汇总，累计不得超过工作单计划数量。
type ProductionService struct {
	jobRepo  repository.JobStore
	opRepo   repository.OperationStore
	prodRepo repository.ProductionStore
	locks    *lockRegistry
	logger   *zap.Logger
}

// NewProductionService 创建产量服务
func NewProductionService(jobRepo repository.JobStore, opRepo repository.OperationStore, prodRepo repository.ProductionStore, locks *lockRegistry, logger *zap.Logger) *ProductionService {
	return &ProductionService{
		jobRepo:  jobRepo,
		opRepo:   opRepo,
		prodRepo: prodRepo,
		locks:    locks,
		logger:   logger,
	}
}

// RecordRequest 产量上报请求
type RecordRequest struct {
	JobOperationID string `json:"-"`
	TenantID       string `json:"-"`
	OperatorID     string `json:"-"`
	ProducedQty    int    `json:"produced_qty"`
	ScrapQty       int    `json:"scrap_qty"`
	ReworkQty      int    `json:"rework_qty"`
	Notes          string `json:"notes"`
}

// ProductionTotals 工序累计产量
type ProductionTotals struct {
	Produced int `json:"produced"`
	Scrap    int `json:"scrap"`
	Rework   int `json:"rework"`
}

// RecordResult 上报结果
type RecordResult struct {
	OperationID  string           `json:"operation_id"`
	Totals       ProductionTotals `json:"totals"`
	EntriesCount int64            `json:"entries_count"`
}

// RecordProduction 追加一条产量记录并更新工序累计。
// 校验失败不做任何落库。
func (s *ProductionService) RecordProduction(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	op, err := s.opRepo.FindByID(ctx, req.TenantID, req.JobOperationID)
	if err != nil {
		return nil, apperr.NotFound("工序不存在")
	}

	unlock := s.locks.LockJob(op.JobID)
	defer unlock()

	op, err = s.opRepo.FindByID(ctx, req.TenantID, req.JobOperationID)
	if err != nil {
		return nil, apperr.NotFound("工序不存在")
	}

	if op.Status == entity.OpStatusCompleted || op.Status == entity.OpStatusCancelled {
		return nil, apperr.StateConflict(apperr.CodeOperationClosed, "已关闭的工序不能上报产量")
	}
	if req.ProducedQty < 0 || req.ScrapQty < 0 || req.ReworkQty < 0 {
		return nil, apperr.Validation(apperr.CodeValidation, "产量不能为负")
	}
	sum := req.ProducedQty + req.ScrapQty + req.ReworkQty
	if sum == 0 {
		return nil, apperr.Validation(apperr.CodeEmptyEntry, "产量记录不能全为零")
	}

	job, err := s.jobRepo.FindByID(ctx, req.TenantID, op.JobID)
	if err != nil {
		return nil, apperr.NotFound("工作单不存在")
	}

	// 数量约束按整个工作单跨工序累计
	ops, err := s.opRepo.ListByJob(ctx, op.JobID)
	if err != nil {
		return nil, err
	}
	cumulative := 0
	for _, o := range ops {
		cumulative += o.TotalProduced + o.TotalScrap + o.TotalRework
	}
	if cumulative+sum > job.Quantity {
		return nil, apperr.Newf(apperr.KindValidation, apperr.CodeExceedsJobQuantity,
			"累计产量%d将超过工作单计划数量%d", cumulative+sum, job.Quantity)
	}

	now := time.Now().UTC()
	ent := &entity.ProductionEntry{
		ID:             uuid.New().String(),
		JobOperationID: op.ID,
		TenantID:       req.TenantID,
		OperatorID:     req.OperatorID,
		ProducedQty:    req.ProducedQty,
		ScrapQty:       req.ScrapQty,
		ReworkQty:      req.ReworkQty,
		Notes:          req.Notes,
		RecordedAt:     now,
	}
	if err := s.prodRepo.Append(ctx, ent); err != nil {
		return nil, err
	}

	op.TotalProduced += req.ProducedQty
	op.TotalScrap += req.ScrapQty
	op.TotalRework += req.ReworkQty
	op.UpdatedAt = now
	if err := s.opRepo.Update(ctx, op); err != nil {
		return nil, err
	}

	count, err := s.prodRepo.CountByOperation(ctx, op.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("PRODUCTION_RECORDED",
		zap.String("job_operation_id", op.ID),
		zap.String("tenant_id", req.TenantID),
		zap.String("operator_id", req.OperatorID),
		zap.Int("produced", req.ProducedQty),
		zap.Int("scrap", req.ScrapQty),
		zap.Int("rework", req.ReworkQty),
	)

	return &RecordResult{
		OperationID: op.ID,
		Totals: ProductionTotals{
			Produced: op.TotalProduced,
			Scrap:    op.TotalScrap,
			Rework:   op.TotalRework,
		},
		EntriesCount: count,
	}, nil
}

// ListEntries 返回工序的产量明细
func (s *ProductionService) ListEntries(ctx context.Context, tenantID, jobOperationID string) ([]entity.ProductionEntry, error) {
	if _, err := s.opRepo.FindByID(ctx, tenantID, jobOperationID); err != nil {
		return nil, apperr.NotFound("工序不存在")
	}
	return s.prodRepo.ListByOperation(ctx, jobOperationID)
}
