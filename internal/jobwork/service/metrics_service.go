package service

import (
	"context"
	"sort"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"go.uber.org/zap"
)

// MetricsService 车间运营指标：在制、瓶颈、延期。
// 与看板同为只读投影。
type MetricsService struct {
	jobRepo    repository.JobStore
	opRepo     repository.OperationStore
	masterRepo repository.MasterStore
	cache      *projectionCache
	logger     *zap.Logger
}

// NewMetricsService 创建指标服务
func NewMetricsService(jobRepo repository.JobStore, opRepo repository.OperationStore, masterRepo repository.MasterStore, cache *projectionCache, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		jobRepo:    jobRepo,
		opRepo:     opRepo,
		masterRepo: masterRepo,
		cache:      cache,
		logger:     logger,
	}
}

// WIPBucket 某工序类型的在制数量
type WIPBucket struct {
	OperationTypeID string `json:"operation_type_id"`
	OperationName   string `json:"operation_name"`
	Count           int    `json:"count"`
}

// WIPResult 在制工序分布
type WIPResult struct {
	FromDate string      `json:"from_date,omitempty"`
	ToDate   string      `json:"to_date,omitempty"`
	Buckets  []WIPBucket `json:"buckets"`
	Total    int         `json:"total"`
}

// WIPMetrics 在制分布：READY/IN_PROGRESS/PAUSED的工序按工序类型计数。
// from/to按计划开始日期过滤。
func (s *MetricsService) WIPMetrics(ctx context.Context, tenantID, fromDate, toDate string) (*WIPResult, error) {
	if fromDate != "" {
		if _, err := time.Parse(isoDate, fromDate); err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidDateRange, "from_date格式必须为YYYY-MM-DD")
		}
	}
	if toDate != "" {
		if _, err := time.Parse(isoDate, toDate); err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidDateRange, "to_date格式必须为YYYY-MM-DD")
		}
	}

	ops, err := s.opRepo.ListByTenant(ctx, tenantID, repository.OperationFilter{})
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	if types, err := s.masterRepo.ListOperationTypes(ctx); err == nil {
		for _, t := range types {
			names[t.ID] = t.Name
		}
	}

	counts := map[string]int{}
	total := 0
	for _, op := range ops {
		if !entity.ActiveOpStatus(op.Status) {
			continue
		}
		if fromDate != "" && (op.PlannedStartDate == "" || op.PlannedStartDate < fromDate) {
			continue
		}
		if toDate != "" && (op.PlannedStartDate == "" || op.PlannedStartDate > toDate) {
			continue
		}
		counts[op.OperationTypeID]++
		total++
	}

	buckets := make([]WIPBucket, 0, len(counts))
	for typeID, n := range counts {
		name := names[typeID]
		if name == "" {
			name = typeID
		}
		buckets = append(buckets, WIPBucket{OperationTypeID: typeID, OperationName: name, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].OperationTypeID < buckets[j].OperationTypeID
	})

	return &WIPResult{FromDate: fromDate, ToDate: toDate, Buckets: buckets, Total: total}, nil
}

// MachineLoad 某机台的未完工工序负载
type MachineLoad struct {
	MachineID   string `json:"machine_id"`
	MachineName string `json:"machine_name"`
	OpenOps     int    `json:"open_operations"`
}

// BottleneckMetrics 机台瓶颈视图：按已排产且未到终态的工序
// 数量降序列出机台负载。
func (s *MetricsService) BottleneckMetrics(ctx context.Context, tenantID string) ([]MachineLoad, error) {
	ops, err := s.opRepo.ListByTenant(ctx, tenantID, repository.OperationFilter{})
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, op := range ops {
		if op.MachineID == "" || entity.TerminalOpStatus(op.Status) {
			continue
		}
		counts[op.MachineID]++
	}

	loads := make([]MachineLoad, 0, len(counts))
	for machineID, n := range counts {
		name := machineID
		if m, err := s.masterRepo.FindMachine(ctx, tenantID, machineID); err == nil {
			name = m.Name
		}
		loads = append(loads, MachineLoad{MachineID: machineID, MachineName: name, OpenOps: n})
	}
	sort.Slice(loads, func(i, j int) bool {
		if loads[i].OpenOps != loads[j].OpenOps {
			return loads[i].OpenOps > loads[j].OpenOps
		}
		return loads[i].MachineID < loads[j].MachineID
	})

	return loads, nil
}

// LateJob 延期工作单条目
type LateJob struct {
	JobID        string `json:"job_id"`
	JobNumber    string `json:"job_number"`
	CustomerID   string `json:"customer_id"`
	DueDate      string `json:"due_date"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	DaysOverdue  int    `json:"days_overdue"`
	CurrentStage string `json:"current_stage"`
}

// LateJobsResult 延期工作单汇总
type LateJobsResult struct {
	TotalLate int       `json:"total_late"`
	Jobs      []LateJob `json:"jobs"`
}

// LateJobs 交期已过且未完工的工作单，按交期升序
func (s *MetricsService) LateJobs(ctx context.Context, tenantID string) (*LateJobsResult, error) {
	jobs, err := s.jobRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	today := todayUTC()
	todayT, _ := time.Parse(isoDate, today)

	var late []LateJob
	for _, job := range jobs {
		if !job.Delayed(today) {
			continue
		}
		overdue := 0
		if due, err := time.Parse(isoDate, job.DueDate); err == nil {
			overdue = int(todayT.Sub(due).Hours() / 24)
		}
		stage := StageNotPlanned
		if ops, err := s.opRepo.ListByJob(ctx, job.ID); err == nil {
			stage = currentStage(ops)
		}
		late = append(late, LateJob{
			JobID:        job.ID,
			JobNumber:    job.JobNumber,
			CustomerID:   job.CustomerID,
			DueDate:      job.DueDate,
			Priority:     job.Priority,
			Status:       job.Status,
			DaysOverdue:  overdue,
			CurrentStage: stage,
		})
	}
	sort.Slice(late, func(i, j int) bool { return late[i].DueDate < late[j].DueDate })

	return &LateJobsResult{TotalLate: len(late), Jobs: late}, nil
}
