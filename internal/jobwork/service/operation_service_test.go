package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
)

func TestUpdateStatusRequiresPlanning(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)

	// First operation is READY but has no machine assigned
	_, err := env.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT",
		TenantID:       testTenant,
		UserID:         "operator-1",
		Status:         entity.OpStatusInProgress,
	})
	if apperr.CodeOf(err) != apperr.CodePlanningRequired {
		t.Fatalf("expected PlanningRequired, got %v", err)
	}
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")

	// READY -> COMPLETED skips IN_PROGRESS
	qty := 10
	_, err := env.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID:    job.ID + "-CUT",
		TenantID:          testTenant,
		UserID:            "operator-1",
		Status:            entity.OpStatusCompleted,
		QuantityCompleted: &qty,
	})
	if apperr.CodeOf(err) != apperr.CodeInvalidTransition {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
}

func TestUpdateStatusSequenceViolation(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-WELD", "2026-09-01", "2026-09-05")

	// CUT is not completed yet, WELD cannot start
	_, err := env.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID: job.ID + "-WELD",
		TenantID:       testTenant,
		UserID:         "operator-1",
		Status:         entity.OpStatusInProgress,
	})
	if apperr.CodeOf(err) != apperr.CodeSequenceViolation {
		t.Fatalf("expected SequenceViolation, got %v", err)
	}

	// Supervisor override bypasses the sequence check only
	op, err := env.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID:   job.ID + "-WELD",
		TenantID:         testTenant,
		UserID:           "supervisor-1",
		Status:           entity.OpStatusInProgress,
		OverrideSequence: true,
	})
	if err != nil {
		t.Fatalf("override start failed: %v", err)
	}
	if op.Status != entity.OpStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", op.Status)
	}
	if op.ActualStartTime == nil || op.StartedBy != "supervisor-1" {
		t.Fatal("start timestamp and actor not recorded")
	}
}

func TestUpdateStatusPauseResume(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	started := env.startOp(t, job.ID+"-CUT")
	firstStart := started.ActualStartTime

	paused, err := env.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT",
		TenantID:       testTenant,
		UserID:         "operator-1",
		Status:         entity.OpStatusPaused,
	})
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.PausedAt == nil || paused.PausedBy != "operator-1" {
		t.Fatal("pause timestamp and actor not recorded")
	}

	// Resume does not re-check planning and keeps the original start time
	resumed, err := env.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT",
		TenantID:       testTenant,
		UserID:         "operator-2",
		Status:         entity.OpStatusInProgress,
	})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.ResumedAt == nil || resumed.ResumedBy != "operator-2" {
		t.Fatal("resume timestamp and actor not recorded")
	}
	if resumed.ActualStartTime == nil || !resumed.ActualStartTime.Equal(*firstStart) {
		t.Fatal("actual start time must not change on resume")
	}
}

func TestUpdateStatusCompleteValidation(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 50)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.startOp(t, job.ID+"-CUT")

	ctx := context.Background()

	// Missing quantity
	_, err := env.services.Operation.UpdateStatus(ctx, UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, UserID: "operator-1",
		Status: entity.OpStatusCompleted,
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for missing quantity, got %v", err)
	}

	// Quantity above the job plan
	tooMany := 60
	_, err = env.services.Operation.UpdateStatus(ctx, UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, UserID: "operator-1",
		Status: entity.OpStatusCompleted, QuantityCompleted: &tooMany,
	})
	if apperr.CodeOf(err) != apperr.CodeQuantityExceedsJob {
		t.Fatalf("expected QuantityExceedsJob, got %v", err)
	}

	// Completed + rejected above the job plan
	qty, rejected := 45, 10
	_, err = env.services.Operation.UpdateStatus(ctx, UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, UserID: "operator-1",
		Status: entity.OpStatusCompleted, QuantityCompleted: &qty, QuantityRejected: &rejected,
	})
	if apperr.CodeOf(err) != apperr.CodeQuantityExceedsJob {
		t.Fatalf("expected QuantityExceedsJob for qty+rejected, got %v", err)
	}

	// Rework flag without a note
	ok := 40
	_, err = env.services.Operation.UpdateStatus(ctx, UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, UserID: "operator-1",
		Status: entity.OpStatusCompleted, QuantityCompleted: &ok, ReworkFlag: true,
	})
	if apperr.CodeOf(err) != apperr.CodeReworkNoteRequired {
		t.Fatalf("expected ReworkNoteRequired, got %v", err)
	}

	// Valid completion records quantities and actor
	op, err := env.services.Operation.UpdateStatus(ctx, UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, UserID: "operator-1",
		Status: entity.OpStatusCompleted, QuantityCompleted: &ok,
		ReworkFlag: true, ReworkNote: "边缘毛刺返修",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if op.QuantityCompleted != 40 || op.ActualEndTime == nil || op.CompletedBy != "operator-1" {
		t.Fatal("completion fields not recorded")
	}
}

func TestAutoAdvancePlannedNextBecomesReady(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.planOp(t, job.ID+"-WELD", "2026-09-06", "2026-09-10")

	env.startOp(t, job.ID+"-CUT")
	env.completeOp(t, job.ID+"-CUT", 100)

	next, err := env.repos.Operation.FindByID(context.Background(), testTenant, job.ID+"-WELD")
	if err != nil {
		t.Fatalf("find next: %v", err)
	}
	if next.Status != entity.OpStatusReady {
		t.Fatalf("planned successor status = %s, want READY", next.Status)
	}

	// A ready notification was broadcast to the tenant
	notifs, _, err := env.services.Notification.ListForUser(context.Background(), testTenant, "any-user", false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	found := false
	for _, n := range notifs {
		if n.Type == entity.NotifyReady && n.EntityReference == next.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a READY notification for the successor")
	}
}

func TestAutoAdvanceUnplannedNextNeedsPlanning(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")

	env.startOp(t, job.ID+"-CUT")
	env.completeOp(t, job.ID+"-CUT", 100)

	next, err := env.repos.Operation.FindByID(context.Background(), testTenant, job.ID+"-WELD")
	if err != nil {
		t.Fatalf("find next: %v", err)
	}
	if next.Status != entity.OpStatusNotStarted {
		t.Fatalf("unplanned successor status = %s, want NOT_STARTED", next.Status)
	}
	if !next.NeedsPlanning {
		t.Fatal("unplanned successor must be flagged needs_planning")
	}
}

func TestJobStatusRollup(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	ctx := context.Background()

	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.planOp(t, job.ID+"-WELD", "2026-09-06", "2026-09-10")
	env.planOp(t, job.ID+"-PAINT", "2026-09-11", "2026-09-15")

	env.startOp(t, job.ID+"-CUT")
	got, _ := env.repos.Job.FindByID(ctx, testTenant, job.ID)
	if got.Status != entity.JobStatusInProgress {
		t.Fatalf("job status = %s, want IN_PROGRESS", got.Status)
	}

	env.completeOp(t, job.ID+"-CUT", 100)
	env.startOp(t, job.ID+"-WELD")
	env.completeOp(t, job.ID+"-WELD", 100)
	env.startOp(t, job.ID+"-PAINT")
	env.completeOp(t, job.ID+"-PAINT", 100)

	got, _ = env.repos.Job.FindByID(ctx, testTenant, job.ID)
	if got.Status != entity.JobStatusCompleted {
		t.Fatalf("job status = %s, want COMPLETED", got.Status)
	}
}

func TestUpdateStatusCrossTenantIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)

	_, err := env.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT",
		TenantID:       "intruder",
		UserID:         "operator-1",
		Status:         entity.OpStatusInProgress,
	})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("cross-tenant access must look like not-found, got %v", err)
	}
}
