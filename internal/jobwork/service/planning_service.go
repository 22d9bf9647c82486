package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"go.uber.org/zap"
)

// PlanningService 排产与改期。
// 同一机台+班次槽位的冲突扫描与容量上限在这里集中执行。
type PlanningService struct {
	jobRepo    repository.JobStore
	opRepo     repository.OperationStore
	masterRepo repository.MasterStore
	audit      *AuditService
	notify     *NotificationService
	locks      *lockRegistry
	logger     *zap.Logger
	capacity   int
}

// NewPlanningService 创建排产服务
func NewPlanningService(jobRepo repository.JobStore, opRepo repository.OperationStore, masterRepo repository.MasterStore, audit *AuditService, notify *NotificationService, locks *lockRegistry, logger *zap.Logger, capacity int) *PlanningService {
	return &PlanningService{
		jobRepo:    jobRepo,
		opRepo:     opRepo,
		masterRepo: masterRepo,
		audit:      audit,
		notify:     notify,
		locks:      locks,
		logger:     logger,
		capacity:   capacity,
	}
}

// PlanRequest 排产/改期请求
type PlanRequest struct {
	JobOperationID   string `json:"-"`
	TenantID         string `json:"-"`
	UserID           string `json:"-"`
	MachineID        string `json:"machine_id" binding:"required"`
	ShiftID          string `json:"shift_id" binding:"required"`
	PlannedStartDate string `json:"planned_start_date" binding:"required"`
	PlannedEndDate   string `json:"planned_end_date" binding:"required"`
	Force            bool   `json:"force"`
	IgnoreConflicts  bool   `json:"ignore_conflicts"`
	Reason           string `json:"reason"`
}

// PlanOrReschedule 为一道工序分配或调整机台、班次与日期窗口。
// 返回的warning在容量超限但被显式忽略时非空。
func (s *PlanningService) PlanOrReschedule(ctx context.Context, req PlanRequest) (*entity.JobOperation, string, error) {
	op, err := s.opRepo.FindByID(ctx, req.TenantID, req.JobOperationID)
	if err != nil {
		return nil, "", apperr.NotFound("工序不存在")
	}

	if entity.TerminalOpStatus(op.Status) {
		return nil, "", apperr.StateConflict(apperr.CodeInvalidState, "已完工或已取消的工序不能排产")
	}
	// 进行中/暂停的工序改期必须显式force并说明原因；READY属首次排产，不需要
	if (op.Status == entity.OpStatusInProgress || op.Status == entity.OpStatusPaused) && (!req.Force || req.Reason == "") {
		return nil, "", apperr.StateConflict(apperr.CodeForceRequired, "进行中的工序改期必须指定force并填写原因")
	}

	if _, err := s.masterRepo.FindMachine(ctx, req.TenantID, req.MachineID); err != nil {
		return nil, "", apperr.NotFound("机台不存在")
	}
	if _, err := s.masterRepo.FindShift(ctx, req.TenantID, req.ShiftID); err != nil {
		return nil, "", apperr.NotFound("班次不存在")
	}

	start, errS := time.Parse(isoDate, req.PlannedStartDate)
	end, errE := time.Parse(isoDate, req.PlannedEndDate)
	if errS != nil || errE != nil || start.After(end) {
		return nil, "", apperr.Validation(apperr.CodeInvalidDateRange, "日期格式必须为YYYY-MM-DD且开始不晚于结束")
	}

	// 锁顺序固定：先工作单后槽位，避免死锁
	unlockJob := s.locks.LockJob(op.JobID)
	defer unlockJob()
	unlockSlot := s.locks.LockSlot(req.MachineID, req.ShiftID)
	defer unlockSlot()

	op, err = s.opRepo.FindByID(ctx, req.TenantID, req.JobOperationID)
	if err != nil {
		return nil, "", apperr.NotFound("工序不存在")
	}

	clashes, err := s.scanOverlaps(ctx, req, op.ID)
	if err != nil {
		return nil, "", err
	}

	warning := ""
	if len(clashes) >= s.capacity {
		if !req.IgnoreConflicts || req.Reason == "" {
			return nil, "", apperr.Capacity(
				fmt.Sprintf("机台%s班次%s在该时段已有%d道重叠工序，达到容量上限%d",
					req.MachineID, req.ShiftID, len(clashes), s.capacity),
				clashes)
		}
		warning = fmt.Sprintf("容量超限已被忽略：该时段重叠工序%d道（上限%d）", len(clashes), s.capacity)
		if _, err := s.notify.Notify(ctx, req.TenantID, nil, entity.NotifyConflict,
			fmt.Sprintf("机台%s班次%s容量超限排产: %s", req.MachineID, req.ShiftID, op.ID), op.ID); err != nil {
			s.logger.Error("冲突通知发送失败", zap.String("job_operation_id", op.ID), zap.Error(err))
		}
	}

	// 首次排产与改期区分记录
	action := entity.AuditOpRescheduled
	if op.MachineID == "" {
		action = entity.AuditOpPlanned
	}

	before := entity.JSONB{
		"machine_id":         op.MachineID,
		"shift_id":           op.ShiftID,
		"planned_start_date": op.PlannedStartDate,
		"planned_end_date":   op.PlannedEndDate,
	}

	op.MachineID = req.MachineID
	op.ShiftID = req.ShiftID
	op.PlannedStartDate = req.PlannedStartDate
	op.PlannedEndDate = req.PlannedEndDate
	op.NeedsPlanning = false
	op.UpdatedAt = time.Now().UTC()
	if err := s.opRepo.Update(ctx, op); err != nil {
		return nil, "", err
	}

	s.logger.Info("OPERATION_PLANNED",
		zap.String("job_operation_id", op.ID),
		zap.String("tenant_id", req.TenantID),
		zap.String("machine_id", req.MachineID),
		zap.String("shift_id", req.ShiftID),
		zap.String("start", req.PlannedStartDate),
		zap.String("end", req.PlannedEndDate),
		zap.Int("overlaps", len(clashes)),
		zap.String("user_id", req.UserID),
	)
	s.audit.Record(ctx, req.TenantID, entity.AuditEntityJobOperation, op.ID, action, req.UserID,
		before, entity.JSONB{
			"machine_id":         op.MachineID,
			"shift_id":           op.ShiftID,
			"planned_start_date": op.PlannedStartDate,
			"planned_end_date":   op.PlannedEndDate,
			"reason":             req.Reason,
		})

	return op, warning, nil
}

// scanOverlaps 统计目标槽位上与请求窗口重叠的其它工序。
// 日期为ISO格式字符串，字典序比较与日期序一致。
func (s *PlanningService) scanOverlaps(ctx context.Context, req PlanRequest, selfID string) ([]string, error) {
	others, err := s.opRepo.ListByMachineShift(ctx, req.TenantID, req.MachineID, req.ShiftID)
	if err != nil {
		return nil, err
	}

	var clashes []string
	for _, other := range others {
		if other.ID == selfID || entity.TerminalOpStatus(other.Status) {
			continue
		}
		if other.PlannedStartDate == "" || other.PlannedEndDate == "" {
			continue
		}
		if req.PlannedStartDate <= other.PlannedEndDate && req.PlannedEndDate >= other.PlannedStartDate {
			clashes = append(clashes, other.ID)
		}
	}
	sort.Strings(clashes)
	return clashes, nil
}

// CalendarParams 排产日历查询参数
type CalendarParams struct {
	TenantID  string
	MachineID string
	ShiftID   string
	Status    string
	FromDate  string
	ToDate    string
	Page      int
	PageSize  int
}

// CalendarEntry 日历条目，带工作单上下文
type CalendarEntry struct {
	JobOperationID string `json:"job_operation_id"`
	JobID          string `json:"job_id"`
	JobNumber      string `json:"job_number"`
	OperationName  string `json:"operation_name"`
	Status         string `json:"status"`
	PlannedQty     int    `json:"planned_qty"`
	DueDate        string `json:"due_date"`
	Priority       string `json:"priority"`
	SequenceNumber int    `json:"sequence_number"`
	StartDate      string `json:"planned_start_date"`
	EndDate        string `json:"planned_end_date"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// CalendarResult 排产日历：机台 → 班次 → 日期 三级分组
type CalendarResult struct {
	Calendar   map[string]map[string]map[string][]CalendarEntry `json:"calendar"`
	Pagination Pagination                                       `json:"pagination"`
}

// PlanningCalendar 排产日历视图。
// 只包含已分配机台且有计划开始日期的工序，按计划开始日期与工序序号排序后分页。
func (s *PlanningService) PlanningCalendar(ctx context.Context, params CalendarParams) (*CalendarResult, error) {
	if params.FromDate != "" {
		if _, err := time.Parse(isoDate, params.FromDate); err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidDateRange, "from_date格式必须为YYYY-MM-DD")
		}
	}
	if params.ToDate != "" {
		if _, err := time.Parse(isoDate, params.ToDate); err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidDateRange, "to_date格式必须为YYYY-MM-DD")
		}
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 || params.PageSize > 200 {
		params.PageSize = 50
	}

	ops, err := s.opRepo.ListByTenant(ctx, params.TenantID, repository.OperationFilter{
		MachineID: params.MachineID,
		ShiftID:   params.ShiftID,
		Status:    params.Status,
	})
	if err != nil {
		return nil, err
	}

	var planned []entity.JobOperation
	for _, op := range ops {
		if op.MachineID == "" || op.PlannedStartDate == "" {
			continue
		}
		if params.FromDate != "" && op.PlannedEndDate != "" && op.PlannedEndDate < params.FromDate {
			continue
		}
		if params.ToDate != "" && op.PlannedStartDate > params.ToDate {
			continue
		}
		planned = append(planned, op)
	}

	sort.Slice(planned, func(i, j int) bool {
		if planned[i].PlannedStartDate != planned[j].PlannedStartDate {
			return planned[i].PlannedStartDate < planned[j].PlannedStartDate
		}
		return planned[i].SequenceNumber < planned[j].SequenceNumber
	})

	total := len(planned)
	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize
	if offset > total {
		offset = total
	}
	end := offset + params.PageSize
	if end > total {
		end = total
	}
	page := planned[offset:end]

	// 工作单与工序目录按需加载，避免N+1
	jobCache := map[string]*entity.Job{}
	opNames := map[string]string{}
	if types, err := s.masterRepo.ListOperationTypes(ctx); err == nil {
		for _, t := range types {
			opNames[t.ID] = t.Name
		}
	}

	calendar := map[string]map[string]map[string][]CalendarEntry{}
	for _, op := range page {
		job, ok := jobCache[op.JobID]
		if !ok {
			job, err = s.jobRepo.FindByID(ctx, params.TenantID, op.JobID)
			if err != nil {
				continue
			}
			jobCache[op.JobID] = job
		}

		name := opNames[op.OperationTypeID]
		if name == "" {
			name = op.OperationTypeID
		}
		entry := CalendarEntry{
			JobOperationID: op.ID,
			JobID:          op.JobID,
			JobNumber:      job.JobNumber,
			OperationName:  name,
			Status:         op.Status,
			PlannedQty:     job.Quantity,
			DueDate:        job.DueDate,
			Priority:       job.Priority,
			SequenceNumber: op.SequenceNumber,
			StartDate:      op.PlannedStartDate,
			EndDate:        op.PlannedEndDate,
		}

		if calendar[op.MachineID] == nil {
			calendar[op.MachineID] = map[string]map[string][]CalendarEntry{}
		}
		if calendar[op.MachineID][op.ShiftID] == nil {
			calendar[op.MachineID][op.ShiftID] = map[string][]CalendarEntry{}
		}
		calendar[op.MachineID][op.ShiftID][op.PlannedStartDate] = append(
			calendar[op.MachineID][op.ShiftID][op.PlannedStartDate], entry)
	}

	return &CalendarResult{
		Calendar: calendar,
		Pagination: Pagination{
			Page:       params.Page,
			PageSize:   params.PageSize,
			TotalCount: int64(total),
			TotalPages: totalPages,
		},
	}, nil
}
