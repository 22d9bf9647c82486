package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
)

func TestRecordProduction(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.startOp(t, job.ID+"-CUT")

	ctx := context.Background()
	result, err := env.services.Production.RecordProduction(ctx, RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-1",
		ProducedQty: 30, ScrapQty: 2, ReworkQty: 1, Notes: "首班产出",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if result.Totals.Produced != 30 || result.Totals.Scrap != 2 || result.Totals.Rework != 1 {
		t.Fatalf("totals = %+v", result.Totals)
	}
	if result.EntriesCount != 1 {
		t.Fatalf("entries = %d, want 1", result.EntriesCount)
	}

	// Second entry accumulates
	result, err = env.services.Production.RecordProduction(ctx, RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-2",
		ProducedQty: 20,
	})
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if result.Totals.Produced != 50 || result.EntriesCount != 2 {
		t.Fatalf("accumulated totals = %+v entries = %d", result.Totals, result.EntriesCount)
	}

	entries, err := env.services.Production.ListEntries(ctx, testTenant, job.ID+"-CUT")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
}

func TestRecordProductionValidation(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.startOp(t, job.ID+"-CUT")
	ctx := context.Background()

	// All zero
	_, err := env.services.Production.RecordProduction(ctx, RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-1",
	})
	if apperr.CodeOf(err) != apperr.CodeEmptyEntry {
		t.Fatalf("expected EmptyEntry, got %v", err)
	}

	// Negative quantity
	_, err = env.services.Production.RecordProduction(ctx, RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-1",
		ProducedQty: -5,
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for negative qty, got %v", err)
	}
}

func TestRecordProductionClosedOperation(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.startOp(t, job.ID+"-CUT")
	env.completeOp(t, job.ID+"-CUT", 100)

	_, err := env.services.Production.RecordProduction(context.Background(), RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-1",
		ProducedQty: 10,
	})
	if apperr.CodeOf(err) != apperr.CodeOperationClosed {
		t.Fatalf("expected OperationClosed, got %v", err)
	}
}

func TestRecordProductionJobQuantityCeiling(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 50)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.startOp(t, job.ID+"-CUT")
	ctx := context.Background()

	if _, err := env.services.Production.RecordProduction(ctx, RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-1",
		ProducedQty: 40,
	}); err != nil {
		t.Fatalf("first record: %v", err)
	}

	// The ceiling is cumulative across all operations of the job
	_, err := env.services.Production.RecordProduction(ctx, RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-1",
		ProducedQty: 8, ScrapQty: 3,
	})
	if apperr.CodeOf(err) != apperr.CodeExceedsJobQuantity {
		t.Fatalf("expected ExceedsJobQuantity, got %v", err)
	}

	// Rejected entry must not have touched the totals
	op, _ := env.repos.Operation.FindByID(ctx, testTenant, job.ID+"-CUT")
	if op.TotalProduced != 40 || op.TotalScrap != 0 {
		t.Fatalf("totals mutated by rejected entry: produced=%d scrap=%d", op.TotalProduced, op.TotalScrap)
	}
	count, _ := env.repos.Production.CountByOperation(ctx, job.ID+"-CUT")
	if count != 1 {
		t.Fatalf("ledger grew on rejected entry: %d", count)
	}

	// Filling up to exactly the job quantity is allowed
	if _, err := env.services.Production.RecordProduction(ctx, RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-1",
		ProducedQty: 8, ScrapQty: 2,
	}); err != nil {
		t.Fatalf("exact fill rejected: %v", err)
	}
}

func TestRecordProductionPausedAllowed(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)
	env.planOp(t, job.ID+"-CUT", "2026-09-01", "2026-09-05")
	env.startOp(t, job.ID+"-CUT")

	ctx := context.Background()
	if _, err := env.services.Operation.UpdateStatus(ctx, UpdateStatusRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, UserID: "operator-1",
		Status: entity.OpStatusPaused,
	}); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if _, err := env.services.Production.RecordProduction(ctx, RecordRequest{
		JobOperationID: job.ID + "-CUT", TenantID: testTenant, OperatorID: "operator-1",
		ProducedQty: 10,
	}); err != nil {
		t.Fatalf("recording against a paused operation should be allowed: %v", err)
	}
}
