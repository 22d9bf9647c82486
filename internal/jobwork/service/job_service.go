package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobService 工作单创建与查询。
// 创建时联动生成工艺路线，路线生成失败则回滚工作单头。
type JobService struct {
	jobRepo    repository.JobStore
	opRepo     repository.OperationStore
	masterRepo repository.MasterStore
	route      *RouteService
	audit      *AuditService
	logger     *zap.Logger
}

// NewJobService 创建工作单服务
func NewJobService(jobRepo repository.JobStore, opRepo repository.OperationStore, masterRepo repository.MasterStore, route *RouteService, audit *AuditService, logger *zap.Logger) *JobService {
	return &JobService{
		jobRepo:    jobRepo,
		opRepo:     opRepo,
		masterRepo: masterRepo,
		route:      route,
		audit:      audit,
		logger:     logger,
	}
}

// CreateJobRequest 创建工作单请求
type CreateJobRequest struct {
	TenantID     string `json:"-"`
	UserID       string `json:"-"`
	CustomerID   string `json:"customer_id" binding:"required"`
	PartID       string `json:"part_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
	ReceivedDate string `json:"received_date" binding:"required"`
	DueDate      string `json:"due_date" binding:"required"`
	Priority     string `json:"priority"`
}

// CreateJob 创建工作单并按零件默认工艺路线生成工序
func (s *JobService) CreateJob(ctx context.Context, req CreateJobRequest) (*entity.Job, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Validation(apperr.CodeValidation, "数量必须大于0")
	}
	if req.Priority == "" {
		req.Priority = entity.JobPriorityMedium
	}
	if !entity.ValidPriority(req.Priority) {
		return nil, apperr.Validation(apperr.CodeValidation, "优先级必须是LOW/MEDIUM/HIGH")
	}
	received, errR := time.Parse(isoDate, req.ReceivedDate)
	due, errD := time.Parse(isoDate, req.DueDate)
	if errR != nil || errD != nil {
		return nil, apperr.Validation(apperr.CodeInvalidDateRange, "日期格式必须为YYYY-MM-DD")
	}
	if due.Before(received) {
		return nil, apperr.Validation(apperr.CodeInvalidDateRange, "交期不能早于接单日期")
	}

	if _, err := s.masterRepo.FindCustomer(ctx, req.TenantID, req.CustomerID); err != nil {
		return nil, apperr.Validation(apperr.CodeValidation, "客户不存在或不属于当前租户")
	}
	part, err := s.masterRepo.FindPart(ctx, req.PartID)
	if err != nil || part.TenantID != req.TenantID {
		return nil, apperr.Validation(apperr.CodeValidation, "零件不存在或不属于当前租户")
	}

	count, err := s.jobRepo.CountByTenant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	jobNumber := fmt.Sprintf("JOB-%s-%04d", strings.ToUpper(req.TenantID), count+1)

	now := time.Now().UTC()
	job := &entity.Job{
		ID:           uuid.New().String(),
		JobNumber:    jobNumber,
		TenantID:     req.TenantID,
		CustomerID:   req.CustomerID,
		PartID:       req.PartID,
		Quantity:     req.Quantity,
		ReceivedDate: req.ReceivedDate,
		DueDate:      req.DueDate,
		Priority:     req.Priority,
		Status:       entity.JobStatusNotStarted,
		CreatedBy:    req.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	// 路线生成失败回滚工作单头，保证不留下无工序的工作单
	if _, err := s.route.CreateJobOperations(ctx, job.ID, req.PartID, req.TenantID); err != nil {
		if delErr := s.jobRepo.Delete(ctx, job.ID); delErr != nil {
			s.logger.Error("工作单头回滚失败", zap.String("job_id", job.ID), zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("JOB_CREATED",
		zap.String("job_id", job.ID),
		zap.String("job_number", job.JobNumber),
		zap.String("tenant_id", req.TenantID),
		zap.String("user_id", req.UserID),
	)
	s.audit.Record(ctx, req.TenantID, entity.AuditEntityJob, job.ID, entity.AuditJobCreated, req.UserID,
		nil, entity.JSONB{
			"job_number": job.JobNumber,
			"part_id":    job.PartID,
			"quantity":   job.Quantity,
			"due_date":   job.DueDate,
			"priority":   job.Priority,
		})

	return job, nil
}

// JobListItem 列表条目，带当前阶段与延期标记
type JobListItem struct {
	entity.Job
	CurrentStage string `json:"current_stage"`
	Delayed      bool   `json:"delayed"`
}

// JobListResult 工作单列表
type JobListResult struct {
	Jobs       []JobListItem `json:"jobs"`
	Pagination Pagination    `json:"pagination"`
}

// ListJobs 按过滤条件分页列出工作单，交期升序同交期优先级降序
func (s *JobService) ListJobs(ctx context.Context, tenantID string, params repository.JobListParams) (*JobListResult, error) {
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
		params.PageSize = 20
	}

	jobs, total, err := s.jobRepo.List(ctx, tenantID, params)
	if err != nil {
		return nil, err
	}

	today := todayUTC()
	items := make([]JobListItem, 0, len(jobs))
	for _, job := range jobs {
		stage := StageNotPlanned
		if ops, err := s.opRepo.ListByJob(ctx, job.ID); err == nil {
			stage = currentStage(ops)
		}
		items = append(items, JobListItem{
			Job:          job,
			CurrentStage: stage,
			Delayed:      job.Delayed(today),
		})
	}

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return &JobListResult{
		Jobs: items,
		Pagination: Pagination{
			Page:       params.Page,
			PageSize:   params.PageSize,
			TotalCount: total,
			TotalPages: totalPages,
		},
	}, nil
}

// JobDetail 工作单详情
type JobDetail struct {
	Job          *entity.Job           `json:"job"`
	Operations   []entity.JobOperation `json:"operations"`
	CurrentStage string                `json:"current_stage"`
	Delayed      bool                  `json:"delayed"`
}

// GetJobDetail 工作单详情，工序按序号升序
func (s *JobService) GetJobDetail(ctx context.Context, tenantID, jobID string) (*JobDetail, error) {
	job, err := s.jobRepo.FindByID(ctx, tenantID, jobID)
	if err != nil {
		return nil, apperr.NotFound("工作单不存在")
	}
	ops, err := s.opRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobDetail{
		Job:          job,
		Operations:   ops,
		CurrentStage: currentStage(ops),
		Delayed:      job.Delayed(todayUTC()),
	}, nil
}
