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

// 看板虚拟阶段：全部完工 / 尚无工艺路线
const (
	StageCompleted  = "COMPLETED"
	StageNotPlanned = "NOT_PLANNED"
)

// KanbanService 车间看板投影。
// 只读聚合，不持锁，允许返回略旧的快照。
type KanbanService struct {
	jobRepo    repository.JobStore
	opRepo     repository.OperationStore
	masterRepo repository.MasterStore
	cache      *projectionCache
	logger     *zap.Logger
}

// NewKanbanService 创建看板服务
func NewKanbanService(jobRepo repository.JobStore, opRepo repository.OperationStore, masterRepo repository.MasterStore, cache *projectionCache, logger *zap.Logger) *KanbanService {
	return &KanbanService{
		jobRepo:    jobRepo,
		opRepo:     opRepo,
		masterRepo: masterRepo,
		cache:      cache,
		logger:     logger,
	}
}

// KanbanJob 看板上的一张工作单卡片
type KanbanJob struct {
	JobID        string `json:"job_id"`
	JobNumber    string `json:"job_number"`
	CustomerID   string `json:"customer_id"`
	PartID       string `json:"part_id"`
	Quantity     int    `json:"quantity"`
	Priority     string `json:"priority"`
	DueDate      string `json:"due_date"`
	Status       string `json:"status"`
	CurrentStage string `json:"current_stage"`
	Delayed      bool   `json:"delayed"`
}

// KanbanStage 看板的一列，带列内合计
type KanbanStage struct {
	StageID   string      `json:"stage_id"`
	StageName string      `json:"stage_name"`
	Jobs      []KanbanJob `json:"jobs"`
	Counts    struct {
		Total   int `json:"total"`
		Delayed int `json:"delayed"`
	} `json:"counts"`
}

// KanbanResult 按阶段分组的看板
type KanbanResult struct {
	Date   string        `json:"date"`
	Stages []KanbanStage `json:"stages"`
	Counts struct {
		Total   int `json:"total"`
		Delayed int `json:"delayed"`
	} `json:"counts"`
}

// JobsByStage 按当前阶段分组的看板视图。
// 阶段取第一道未完工工序的工序类型；date过滤只保留该日在计划
// 窗口内有工序的工作单。
func (s *KanbanService) JobsByStage(ctx context.Context, tenantID, date string) (*KanbanResult, error) {
	if date != "" {
		if _, err := time.Parse(isoDate, date); err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidDateRange, "date格式必须为YYYY-MM-DD")
		}
	}

	cacheKey := "kanban:" + tenantID + ":" + date
	var cached KanbanResult
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	jobs, err := s.jobRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stageNames := map[string]string{}
	if types, err := s.masterRepo.ListOperationTypes(ctx); err == nil {
		for _, t := range types {
			stageNames[t.ID] = t.Name
		}
	}

	today := todayUTC()
	grouped := map[string][]KanbanJob{}
	totalCount := 0
	delayedCount := 0

	for _, job := range jobs {
		ops, err := s.opRepo.ListByJob(ctx, job.ID)
		if err != nil {
			return nil, err
		}

		if date != "" && !anyOpCovers(ops, date) {
			continue
		}

		stage := currentStage(ops)
		delayed := job.Delayed(today)

		grouped[stage] = append(grouped[stage], KanbanJob{
			JobID:        job.ID,
			JobNumber:    job.JobNumber,
			CustomerID:   job.CustomerID,
			PartID:       job.PartID,
			Quantity:     job.Quantity,
			Priority:     job.Priority,
			DueDate:      job.DueDate,
			Status:       job.Status,
			CurrentStage: stage,
			Delayed:      delayed,
		})
		totalCount++
		if delayed {
			delayedCount++
		}
	}

	// 列内排序：优先级高在前，同优先级交期早在前
	var stages []KanbanStage
	for stageID, list := range grouped {
		sort.Slice(list, func(i, j int) bool {
			ri, rj := entity.PriorityRank(list[i].Priority), entity.PriorityRank(list[j].Priority)
			if ri != rj {
				return ri > rj
			}
			return list[i].DueDate < list[j].DueDate
		})
		name := stageNames[stageID]
		if name == "" {
			name = stageID
		}
		stage := KanbanStage{StageID: stageID, StageName: name, Jobs: list}
		stage.Counts.Total = len(list)
		for _, j := range list {
			if j.Delayed {
				stage.Counts.Delayed++
			}
		}
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].StageID < stages[j].StageID })

	result := &KanbanResult{Date: date, Stages: stages}
	result.Counts.Total = totalCount
	result.Counts.Delayed = delayedCount

	s.cache.Set(ctx, cacheKey, result)
	return result, nil
}

// currentStage 第一道非COMPLETED工序的工序类型（含CANCELLED，取消的
// 工序仍占住它的阶段），全部完工为COMPLETED，无工艺路线为NOT_PLANNED
func currentStage(ops []entity.JobOperation) string {
	if len(ops) == 0 {
		return StageNotPlanned
	}
	for _, op := range ops {
		if op.Status != entity.OpStatusCompleted {
			return op.OperationTypeID
		}
	}
	return StageCompleted
}

func anyOpCovers(ops []entity.JobOperation, date string) bool {
	for _, op := range ops {
		if op.PlannedStartDate == "" || op.PlannedEndDate == "" {
			continue
		}
		if op.PlannedStartDate <= date && date <= op.PlannedEndDate {
			return true
		}
	}
	return false
}
