package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
)

// createLateJob creates a job whose due date is already in the past
func (e *testEnv) createLateJob(t *testing.T) *entity.Job {
	t.Helper()
	received := time.Now().UTC().AddDate(0, 0, -30).Format(isoDate)
	due := time.Now().UTC().AddDate(0, 0, -10).Format(isoDate)
	job, err := e.services.Job.CreateJob(context.Background(), CreateJobRequest{
		TenantID:     testTenant,
		UserID:       "supervisor-1",
		CustomerID:   "cust-1",
		PartID:       "part-1",
		Quantity:     10,
		ReceivedDate: received,
		DueDate:      due,
		Priority:     entity.JobPriorityHigh,
	})
	if err != nil {
		t.Fatalf("create late job: %v", err)
	}
	return job
}

func TestJobsByStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	jobA := env.createJob(t, 100)
	jobB := env.createJob(t, 50)

	// Move jobA past CUT so it sits in the WELD column
	env.planOp(t, jobA.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.startOp(t, jobA.ID+"-CUT")
	env.completeOp(t, jobA.ID+"-CUT", 100)

	result, err := env.services.Kanban.JobsByStage(ctx, testTenant, "")
	if err != nil {
		t.Fatalf("kanban: %v", err)
	}
	if result.Counts.Total != 2 {
		t.Fatalf("total = %d, want 2", result.Counts.Total)
	}

	stageOf := func(jobID string) string {
		for _, stage := range result.Stages {
			for _, j := range stage.Jobs {
				if j.JobID == jobID {
					return stage.StageID
				}
			}
		}
		return ""
	}
	if got := stageOf(jobA.ID); got != "WELD" {
		t.Errorf("jobA stage = %s, want WELD", got)
	}
	if got := stageOf(jobB.ID); got != "CUT" {
		t.Errorf("jobB stage = %s, want CUT", got)
	}

	// Stage names resolve through the operation type catalog, and each
	// column carries its own counts
	for _, stage := range result.Stages {
		if stage.StageID == "WELD" && stage.StageName != "WELD工序" {
			t.Errorf("stage name = %s", stage.StageName)
		}
		if stage.Counts.Total != len(stage.Jobs) {
			t.Errorf("stage %s counts.total = %d with %d jobs", stage.StageID, stage.Counts.Total, len(stage.Jobs))
		}
		if stage.Counts.Delayed != 0 {
			t.Errorf("stage %s counts.delayed = %d, want 0", stage.StageID, stage.Counts.Delayed)
		}
	}
}

func TestJobsByStageCancelledOperationHoldsStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.startOp(t, job.ID+"-CUT")
	env.completeOp(t, job.ID+"-CUT", 100)

	// 取消WELD，工作单停在WELD列而不是跳到PAINT
	if _, err := env.services.Operation.UpdateStatus(ctx, UpdateStatusRequest{
		JobOperationID: job.ID + "-WELD",
		TenantID:       testTenant,
		UserID:         "supervisor-1",
		Status:         entity.OpStatusCancelled,
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	result, err := env.services.Kanban.JobsByStage(ctx, testTenant, "")
	if err != nil {
		t.Fatalf("kanban: %v", err)
	}
	for _, stage := range result.Stages {
		for _, j := range stage.Jobs {
			if j.JobID == job.ID && stage.StageID != "WELD" {
				t.Fatalf("job with cancelled WELD sits in %s, want WELD", stage.StageID)
			}
		}
	}
}

func TestJobsByStageDateFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	jobA := env.createJob(t, 100)
	env.createJob(t, 50) // never planned, excluded by a date filter
	env.planOp(t, jobA.ID+"-CUT", "2026-09-01", "2026-09-05")

	result, err := env.services.Kanban.JobsByStage(ctx, testTenant, "2026-09-03")
	if err != nil {
		t.Fatalf("kanban with date: %v", err)
	}
	if result.Counts.Total != 1 {
		t.Fatalf("filtered total = %d, want 1", result.Counts.Total)
	}

	result, err = env.services.Kanban.JobsByStage(ctx, testTenant, "2026-10-01")
	if err != nil {
		t.Fatalf("kanban with off-window date: %v", err)
	}
	if result.Counts.Total != 0 {
		t.Fatalf("off-window total = %d, want 0", result.Counts.Total)
	}

	if _, err := env.services.Kanban.JobsByStage(ctx, testTenant, "not-a-date"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for bad date, got %v", err)
	}
}

func TestJobsByStageOrderingAndDelayed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	normal := env.createJob(t, 100)
	late := env.createLateJob(t)

	result, err := env.services.Kanban.JobsByStage(ctx, testTenant, "")
	if err != nil {
		t.Fatalf("kanban: %v", err)
	}
	if result.Counts.Delayed != 1 {
		t.Fatalf("delayed = %d, want 1", result.Counts.Delayed)
	}

	// Both jobs sit in the CUT column; the high-priority late one leads
	for _, stage := range result.Stages {
		if stage.StageID != "CUT" {
			continue
		}
		if len(stage.Jobs) != 2 {
			t.Fatalf("CUT column has %d jobs, want 2", len(stage.Jobs))
		}
		if stage.Jobs[0].JobID != late.ID || stage.Jobs[1].JobID != normal.ID {
			t.Fatal("high priority job must sort first in its column")
		}
		if !stage.Jobs[0].Delayed {
			t.Fatal("late job not flagged delayed")
		}
		if stage.Counts.Total != 2 || stage.Counts.Delayed != 1 {
			t.Fatalf("CUT counts = %+v, want total 2 delayed 1", stage.Counts)
		}
	}
}

func TestJobsByStageTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	env.createJob(t, 100)

	result, err := env.services.Kanban.JobsByStage(context.Background(), "other-tenant", "")
	if err != nil {
		t.Fatalf("kanban: %v", err)
	}
	if result.Counts.Total != 0 {
		t.Fatalf("foreign tenant sees %d jobs", result.Counts.Total)
	}
}
