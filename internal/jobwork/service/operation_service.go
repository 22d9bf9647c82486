package service

import (
	"context"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"go.uber.org/zap"
)

// OperationService 工序执行状态机。
// 所有状态转移集中在这里校验和落库，并负责后道工序自动推进
// 与工作单状态汇总。
type OperationService struct {
	jobRepo repository.JobStore
	opRepo  repository.OperationStore
	audit   *AuditService
	notify  *NotificationService
	locks   *lockRegistry
	logger  *zap.Logger
}

// NewOperationService 创建工序状态机服务
func NewOperationService(jobRepo repository.JobStore, opRepo repository.OperationStore, audit *AuditService, notify *NotificationService, locks *lockRegistry, logger *zap.Logger) *OperationService {
	return &OperationService{
		jobRepo: jobRepo,
		opRepo:  opRepo,
		audit:   audit,
		notify:  notify,
		locks:   locks,
		logger:  logger,
	}
}

// UpdateStatusRequest 状态更新请求
type UpdateStatusRequest struct {
	JobOperationID    string `json:"-"`
	TenantID          string `json:"-"`
	UserID            string `json:"-"`
	Status            string `json:"status" binding:"required"`
	QuantityCompleted *int   `json:"quantity_completed"`
	QuantityRejected  *int   `json:"quantity_rejected"`
	ReworkFlag        bool   `json:"rework_flag"`
	ReworkNote        string `json:"rework_note"`
	OverrideSequence  bool   `json:"override_sequence"`
}

// UpdateStatus 执行一次状态转移。
// 校验顺序：存在性/租户 → 转移表 → 排产前置 → 工序顺序 → 完工数量。
func (s *OperationService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*entity.JobOperation, error) {
	// 先做租户隔离查找拿到job_id，再锁住工作单重读，避免并发写竞态
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

	prevStatus := op.Status
	newStatus := req.Status

	// 1. 状态转移表
	if !entity.CanTransition(prevStatus, newStatus) {
		return nil, apperr.Newf(apperr.KindStateConflict, apperr.CodeInvalidTransition,
			"不允许从 %s 转移到 %s", prevStatus, newStatus)
	}

	// 2. 开工必须已排产（从PAUSED恢复不检查）
	startingFresh := newStatus == entity.OpStatusInProgress && prevStatus != entity.OpStatusPaused
	if startingFresh && op.MachineID == "" {
		return nil, apperr.StateConflict(apperr.CodePlanningRequired, "工序尚未排产，不能开工")
	}

	// 3. 工序顺序：前道必须已完工，override_sequence只豁免本项
	if startingFresh && !req.OverrideSequence && op.SequenceNumber > 1 {
		prev, err := s.opRepo.FindByJobSequence(ctx, op.JobID, op.SequenceNumber-1)
		if err != nil || prev.Status != entity.OpStatusCompleted {
			return nil, apperr.Newf(apperr.KindStateConflict, apperr.CodeSequenceViolation,
				"前道工序（序号%d）尚未完工", op.SequenceNumber-1)
		}
	}

	// 4. 完工校验：数量必填且不得超过工作单计划数量
	if newStatus == entity.OpStatusCompleted {
		if req.QuantityCompleted == nil || *req.QuantityCompleted < 0 {
			return nil, apperr.Validation(apperr.CodeValidation, "完工必须提供quantity_completed且不能为负")
		}
		rejected := 0
		if req.QuantityRejected != nil {
			rejected = *req.QuantityRejected
		}
		if rejected < 0 {
			return nil, apperr.Validation(apperr.CodeValidation, "quantity_rejected不能为负")
		}

		job, err := s.jobRepo.FindByID(ctx, req.TenantID, op.JobID)
		if err != nil {
			return nil, apperr.NotFound("工作单不存在")
		}
		if *req.QuantityCompleted > job.Quantity {
			return nil, apperr.Newf(apperr.KindStateConflict, apperr.CodeQuantityExceedsJob,
				"完工数量%d超过工作单计划数量%d", *req.QuantityCompleted, job.Quantity)
		}
		if *req.QuantityCompleted+rejected > job.Quantity {
			return nil, apperr.Newf(apperr.KindStateConflict, apperr.CodeQuantityExceedsJob,
				"完工+不良数量%d超过工作单计划数量%d", *req.QuantityCompleted+rejected, job.Quantity)
		}
		if req.ReworkFlag && req.ReworkNote == "" {
			return nil, apperr.Validation(apperr.CodeReworkNoteRequired, "返工必须填写返工说明")
		}
	}

	before := entity.JSONB{
		"status":             prevStatus,
		"quantity_completed": op.QuantityCompleted,
		"quantity_rejected":  op.QuantityRejected,
	}

	// 按转移场景记录时间戳与操作人
	now := time.Now().UTC()
	switch {
	case startingFresh:
		if op.ActualStartTime == nil {
			op.ActualStartTime = &now
		}
		op.StartedBy = req.UserID
	case newStatus == entity.OpStatusPaused:
		op.PausedAt = &now
		op.PausedBy = req.UserID
	case prevStatus == entity.OpStatusPaused && newStatus == entity.OpStatusInProgress:
		op.ResumedAt = &now
		op.ResumedBy = req.UserID
	case newStatus == entity.OpStatusCompleted:
		op.ActualEndTime = &now
		op.CompletedBy = req.UserID
		op.QuantityCompleted = *req.QuantityCompleted
		if req.QuantityRejected != nil {
			op.QuantityRejected = *req.QuantityRejected
		}
		op.ReworkFlag = req.ReworkFlag
		op.ReworkNote = req.ReworkNote
	}

	op.Status = newStatus
	op.UpdatedAt = now
	if err := s.opRepo.Update(ctx, op); err != nil {
		return nil, err
	}

	// 完工后自动推进后道工序
	if newStatus == entity.OpStatusCompleted {
		s.advanceNext(ctx, op)
	}

	// 汇总父工作单状态
	if err := s.rollupJobStatus(ctx, req.TenantID, op.JobID); err != nil {
		return nil, err
	}

	s.logger.Info("STATUS_CHANGED",
		zap.String("job_operation_id", op.ID),
		zap.String("job_id", op.JobID),
		zap.String("tenant_id", req.TenantID),
		zap.String("from", prevStatus),
		zap.String("to", newStatus),
		zap.String("user_id", req.UserID),
	)
	s.audit.Record(ctx, req.TenantID, entity.AuditEntityJobOperation, op.ID, entity.AuditStatusChanged, req.UserID,
		before, entity.JSONB{
			"status":             op.Status,
			"quantity_completed": op.QuantityCompleted,
			"quantity_rejected":  op.QuantityRejected,
		})

	return op, nil
}

// advanceNext 完工后推进后道工序：
// 已有完整排产信息则置READY并广播通知，否则置NOT_STARTED待排产。
func (s *OperationService) advanceNext(ctx context.Context, completed *entity.JobOperation) {
	next, err := s.opRepo.FindByJobSequence(ctx, completed.JobID, completed.SequenceNumber+1)
	if err != nil {
		return // 已是最后一道工序
	}
	if entity.TerminalOpStatus(next.Status) {
		return
	}

	now := time.Now().UTC()
	if next.Planned() {
		next.Status = entity.OpStatusReady
		next.NeedsPlanning = false
		next.UpdatedAt = now
		if err := s.opRepo.Update(ctx, next); err != nil {
			s.logger.Error("后道工序推进失败", zap.String("job_operation_id", next.ID), zap.Error(err))
			return
		}
		if _, err := s.notify.Notify(ctx, next.TenantID, nil, entity.NotifyReady,
			"工序已就绪可开工: "+next.ID, next.ID); err != nil {
			s.logger.Error("READY通知发送失败", zap.String("job_operation_id", next.ID), zap.Error(err))
		}
		return
	}

	next.Status = entity.OpStatusNotStarted
	next.NeedsPlanning = true
	next.UpdatedAt = now
	if err := s.opRepo.Update(ctx, next); err != nil {
		s.logger.Error("后道工序推进失败", zap.String("job_operation_id", next.ID), zap.Error(err))
	}
}

// rollupJobStatus 由全部工序状态推导工作单状态：
// 全部COMPLETED为COMPLETED，否则任一IN_PROGRESS为IN_PROGRESS，
// 否则回到NOT_STARTED。updated_at每次都刷新。
func (s *OperationService) rollupJobStatus(ctx context.Context, tenantID, jobID string) error {
	job, err := s.jobRepo.FindByID(ctx, tenantID, jobID)
	if err != nil {
		return err
	}
	ops, err := s.opRepo.ListByJob(ctx, jobID)
	if err != nil {
		return err
	}

	allCompleted := len(ops) > 0
	anyInProgress := false
	for _, op := range ops {
		if op.Status != entity.OpStatusCompleted {
			allCompleted = false
		}
		if op.Status == entity.OpStatusInProgress {
			anyInProgress = true
		}
	}

	switch {
	case allCompleted:
		job.Status = entity.JobStatusCompleted
	case anyInProgress:
		job.Status = entity.JobStatusInProgress
	default:
		job.Status = entity.JobStatusNotStarted
	}
	job.UpdatedAt = time.Now().UTC()

	return s.jobRepo.Update(ctx, job)
}
