package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository/memory"
	"github.com/bitfantasy/jobwork/internal/jobwork/sse"
	"go.uber.org/zap"
)

const testTenant = "acme"

var testRoute = []string{"CUT", "WELD", "PAINT"}

type testEnv struct {
	repos    *repository.Repositories
	services *Services
}

// newTestEnv builds services on the in-memory store and seeds the
// master data every scenario needs: one customer, one part with the
// CUT->WELD->PAINT route, the three operation types, one machine and
// one shift.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := memory.NewRepositories()
	services := NewServices(repos, nil, sse.NewHub(), zap.NewNop(), Options{})

	ctx := context.Background()
	now := time.Now().UTC()
	if err := repos.Master.CreateCustomer(ctx, &entity.Customer{
		ID: "cust-1", TenantID: testTenant, Name: "测试客户", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	if err := repos.Master.CreatePart(ctx, &entity.Part{
		ID: "part-1", TenantID: testTenant, Name: "测试零件",
		DefaultOperationRoute: testRoute, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed part: %v", err)
	}
	for _, opType := range testRoute {
		if err := repos.Master.CreateOperationType(ctx, &entity.OperationType{
			ID: opType, Name: opType + "工序", CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("seed operation type: %v", err)
		}
	}
	if err := repos.Master.CreateMachine(ctx, &entity.Machine{
		ID: "machine-1", TenantID: testTenant, Name: "一号机", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed machine: %v", err)
	}
	if err := repos.Master.CreateShift(ctx, &entity.Shift{
		ID: "shift-day", TenantID: testTenant, Name: "白班", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed shift: %v", err)
	}

	return &testEnv{repos: repos, services: services}
}

// createJob creates a job through the service so the route is generated
func (e *testEnv) createJob(t *testing.T, quantity int) *entity.Job {
	t.Helper()
	job, err := e.services.Job.CreateJob(context.Background(), CreateJobRequest{
		TenantID:     testTenant,
		UserID:       "supervisor-1",
		CustomerID:   "cust-1",
		PartID:       "part-1",
		Quantity:     quantity,
		ReceivedDate: "2026-08-01",
		DueDate:      "2026-12-31",
		Priority:     entity.JobPriorityMedium,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

// planOp assigns machine-1/shift-day and the given window to an operation
func (e *testEnv) planOp(t *testing.T, opID, start, end string) *entity.JobOperation {
	t.Helper()
	op, _, err := e.services.Planning.PlanOrReschedule(context.Background(), PlanRequest{
		JobOperationID:   opID,
		TenantID:         testTenant,
		UserID:           "supervisor-1",
		MachineID:        "machine-1",
		ShiftID:          "shift-day",
		PlannedStartDate: start,
		PlannedEndDate:   end,
	})
	if err != nil {
		t.Fatalf("plan operation %s: %v", opID, err)
	}
	return op
}

// startOp moves an operation to IN_PROGRESS
func (e *testEnv) startOp(t *testing.T, opID string) *entity.JobOperation {
	t.Helper()
	op, err := e.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID: opID,
		TenantID:       testTenant,
		UserID:         "operator-1",
		Status:         entity.OpStatusInProgress,
	})
	if err != nil {
		t.Fatalf("start operation %s: %v", opID, err)
	}
	return op
}

// completeOp moves an operation to COMPLETED with the given quantity
func (e *testEnv) completeOp(t *testing.T, opID string, qty int) *entity.JobOperation {
	t.Helper()
	op, err := e.services.Operation.UpdateStatus(context.Background(), UpdateStatusRequest{
		JobOperationID:    opID,
		TenantID:          testTenant,
		UserID:            "operator-1",
		Status:            entity.OpStatusCompleted,
		QuantityCompleted: &qty,
	})
	if err != nil {
		t.Fatalf("complete operation %s: %v", opID, err)
	}
	return op
}
