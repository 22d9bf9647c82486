package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository/memory"
	"github.com/bitfantasy/jobwork/internal/jobwork/sse"
	"go.uber.org/zap"
)

func TestCreateJobOperations(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, 100)

	ops, err := env.repos.Operation.ListByJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("list operations: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(ops))
	}

	for i, op := range ops {
		wantID := job.ID + "-" + testRoute[i]
		if op.ID != wantID {
			t.Errorf("operation %d: id = %s, want %s", i, op.ID, wantID)
		}
		if op.SequenceNumber != i+1 {
			t.Errorf("operation %d: sequence = %d, want %d", i, op.SequenceNumber, i+1)
		}
		if op.TenantID != testTenant {
			t.Errorf("operation %d: tenant = %s", i, op.TenantID)
		}
	}

	// First operation ready, the rest waiting
	if ops[0].Status != entity.OpStatusReady {
		t.Errorf("first operation status = %s, want READY", ops[0].Status)
	}
	for _, op := range ops[1:] {
		if op.Status != entity.OpStatusNotStarted {
			t.Errorf("operation %s status = %s, want NOT_STARTED", op.ID, op.Status)
		}
	}
}

func TestCreateJobOperationsEmptyRoute(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	env.repos.Master.CreatePart(context.Background(), &entity.Part{
		ID: "part-empty", TenantID: testTenant, Name: "无路线零件",
		CreatedAt: now, UpdatedAt: now,
	})

	_, err := env.services.Route.CreateJobOperations(context.Background(), "job-x", "part-empty", testTenant)
	if apperr.CodeOf(err) != apperr.CodeEmptyRoute {
		t.Fatalf("expected EmptyRoute, got %v", err)
	}
}

func TestCreateJobOperationsInvalidOperationType(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	env.repos.Master.CreatePart(context.Background(), &entity.Part{
		ID: "part-bad", TenantID: testTenant, Name: "坏路线零件",
		DefaultOperationRoute: []string{"CUT", "NO_SUCH_OP"},
		CreatedAt:             now, UpdatedAt: now,
	})

	_, err := env.services.Route.CreateJobOperations(context.Background(), "job-x", "part-bad", testTenant)
	if apperr.CodeOf(err) != apperr.CodeInvalidOperationReference {
		t.Fatalf("expected InvalidOperationReference, got %v", err)
	}
}

func TestCreateJobOperationsTenantMismatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.Route.CreateJobOperations(context.Background(), "job-x", "part-1", "other-tenant")
	if apperr.CodeOf(err) != apperr.CodeTenantMismatch {
		t.Fatalf("expected TenantMismatch, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("tenant mismatch should present as not-found, got kind %s", apperr.KindOf(err))
	}
}

// failingOpStore fails Create after a fixed number of successes
type failingOpStore struct {
	repository.OperationStore
	remaining int
}

func (f *failingOpStore) Create(ctx context.Context, op *entity.JobOperation) error {
	if f.remaining <= 0 {
		return errors.New("storage unavailable")
	}
	f.remaining--
	return f.OperationStore.Create(ctx, op)
}

func TestCreateJobOperationsRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)

	// Second create fails, the first created operation must be removed
	failing := &failingOpStore{OperationStore: env.repos.Operation, remaining: 1}
	audit := NewAuditService(env.repos.Audit, zap.NewNop())
	route := NewRouteService(failing, env.repos.Master, audit, newLockRegistry(), zap.NewNop())

	_, err := route.CreateJobOperations(context.Background(), "job-atomic", "part-1", testTenant)
	if err == nil {
		t.Fatal("expected error from failing store")
	}

	ops, _ := env.repos.Operation.ListByJob(context.Background(), "job-atomic")
	if len(ops) != 0 {
		t.Fatalf("expected no operations after rollback, got %d", len(ops))
	}
}

func TestCreateJobRollsBackHeaderOnRouteFailure(t *testing.T) {
	repos := memory.NewRepositories()
	services := NewServices(repos, nil, sse.NewHub(), zap.NewNop(), Options{})
	ctx := context.Background()
	now := time.Now().UTC()

	repos.Master.CreateCustomer(ctx, &entity.Customer{ID: "cust-1", TenantID: testTenant, Name: "客户", CreatedAt: now, UpdatedAt: now})
	// Part exists but its route references an unknown operation type
	repos.Master.CreatePart(ctx, &entity.Part{
		ID: "part-1", TenantID: testTenant, Name: "零件",
		DefaultOperationRoute: []string{"GHOST"},
		CreatedAt:             now, UpdatedAt: now,
	})

	_, err := services.Job.CreateJob(ctx, CreateJobRequest{
		TenantID: testTenant, UserID: "u1",
		CustomerID: "cust-1", PartID: "part-1", Quantity: 10,
		ReceivedDate: "2026-08-01", DueDate: "2026-09-01",
	})
	if apperr.CodeOf(err) != apperr.CodeInvalidOperationReference {
		t.Fatalf("expected InvalidOperationReference, got %v", err)
	}

	// Header must not survive the failed route generation
	count, _ := repos.Job.CountByTenant(ctx, testTenant)
	if count != 0 {
		t.Fatalf("expected no jobs after rollback, got %d", count)
	}
}
