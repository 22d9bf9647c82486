// Package memory 提供仓库接口的纯内存实现。
// 并发安全，用于单元测试和本地开发，与gorm实现行为一致。
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
)

// Store 全内存存储，各实体共用一把读写锁
type Store struct {
	mu sync.RWMutex

	jobs          map[string]*entity.Job
	operations    map[string]*entity.JobOperation
	entries       map[string][]entity.ProductionEntry // job_operation_id -> entries
	customers     map[string]*entity.Customer
	parts         map[string]*entity.Part
	opTypes       map[string]*entity.OperationType
	machines      map[string]*entity.Machine
	shifts        map[string]*entity.Shift
	audits        []entity.AuditRecord
	notifications map[string]*entity.Notification
}

// New 创建空的内存存储
func New() *Store {
	return &Store{
		jobs:          make(map[string]*entity.Job),
		operations:    make(map[string]*entity.JobOperation),
		entries:       make(map[string][]entity.ProductionEntry),
		customers:     make(map[string]*entity.Customer),
		parts:         make(map[string]*entity.Part),
		opTypes:       make(map[string]*entity.OperationType),
		machines:      make(map[string]*entity.Machine),
		shifts:        make(map[string]*entity.Shift),
		notifications: make(map[string]*entity.Notification),
	}
}

// NewRepositories 创建全部由同一内存存储支撑的仓库集合
func NewRepositories() *repository.Repositories {
	s := New()
	return &repository.Repositories{
		Job:          &jobStore{s},
		Operation:    &operationStore{s},
		Production:   &productionStore{s},
		Master:       &masterStore{s},
		Audit:        &auditStore{s},
		Notification: &notificationStore{s},
	}
}

// 编译期接口检查
var (
	_ repository.JobStore          = (*jobStore)(nil)
	_ repository.OperationStore    = (*operationStore)(nil)
	_ repository.ProductionStore   = (*productionStore)(nil)
	_ repository.MasterStore       = (*masterStore)(nil)
	_ repository.AuditStore        = (*auditStore)(nil)
	_ repository.NotificationStore = (*notificationStore)(nil)
)

// ──────────────────────────────────────────────
// JobStore
// ──────────────────────────────────────────────

type jobStore struct{ s *Store }

func (r *jobStore) Create(_ context.Context, job *entity.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *job
	r.s.jobs[job.ID] = &cp
	return nil
}

func (r *jobStore) FindByID(_ context.Context, tenantID, id string) (*entity.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	job, ok := r.s.jobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *jobStore) Update(_ context.Context, job *entity.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.jobs[job.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *job
	r.s.jobs[job.ID] = &cp
	return nil
}

func (r *jobStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.jobs, id)
	return nil
}

func (r *jobStore) List(_ context.Context, tenantID string, params repository.JobListParams) ([]entity.Job, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var jobs []entity.Job
	for _, job := range r.s.jobs {
		if job.TenantID != tenantID {
			continue
		}
		if params.Status != "" && job.Status != params.Status {
			continue
		}
		if params.CustomerID != "" && job.CustomerID != params.CustomerID {
			continue
		}
		if params.Priority != "" && job.Priority != params.Priority {
			continue
		}
		if params.FromDate != "" && job.ReceivedDate < params.FromDate {
			continue
		}
		if params.ToDate != "" && job.ReceivedDate > params.ToDate {
			continue
		}
		jobs = append(jobs, *job)
	}

	// 交期升序，同交期优先级降序
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].DueDate != jobs[j].DueDate {
			return jobs[i].DueDate < jobs[j].DueDate
		}
		return entity.PriorityRank(jobs[i].Priority) > entity.PriorityRank(jobs[j].Priority)
	})

	total := int64(len(jobs))
	start := (params.Page - 1) * params.PageSize
	if start >= len(jobs) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(jobs) {
		end = len(jobs)
	}
	return jobs[start:end], total, nil
}

func (r *jobStore) ListByTenant(_ context.Context, tenantID string) ([]entity.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var jobs []entity.Job
	for _, job := range r.s.jobs {
		if job.TenantID == tenantID {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

func (r *jobStore) CountByTenant(_ context.Context, tenantID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var count int64
	for _, job := range r.s.jobs {
		if job.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────
// OperationStore
// ──────────────────────────────────────────────

type operationStore struct{ s *Store }

func (r *operationStore) Create(_ context.Context, op *entity.JobOperation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *op
	r.s.operations[op.ID] = &cp
	return nil
}

func (r *operationStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.operations, id)
	return nil
}

func (r *operationStore) FindByID(_ context.Context, tenantID, id string) (*entity.JobOperation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	op, ok := r.s.operations[id]
	if !ok || op.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

func (r *operationStore) Update(_ context.Context, op *entity.JobOperation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.operations[op.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *op
	r.s.operations[op.ID] = &cp
	return nil
}

func (r *operationStore) ListByJob(_ context.Context, jobID string) ([]entity.JobOperation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ops []entity.JobOperation
	for _, op := range r.s.operations {
		if op.JobID == jobID {
			ops = append(ops, *op)
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].SequenceNumber < ops[j].SequenceNumber
	})
	return ops, nil
}

func (r *operationStore) FindByJobSequence(_ context.Context, jobID string, sequence int) (*entity.JobOperation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, op := range r.s.operations {
		if op.JobID == jobID && op.SequenceNumber == sequence {
			cp := *op
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *operationStore) ListByMachineShift(_ context.Context, tenantID, machineID, shiftID string) ([]entity.JobOperation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ops []entity.JobOperation
	for _, op := range r.s.operations {
		if op.TenantID == tenantID && op.MachineID == machineID && op.ShiftID == shiftID {
			ops = append(ops, *op)
		}
	}
	return ops, nil
}

func (r *operationStore) ListByTenant(_ context.Context, tenantID string, f repository.OperationFilter) ([]entity.JobOperation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ops []entity.JobOperation
	for _, op := range r.s.operations {
		if op.TenantID != tenantID {
			continue
		}
		if f.MachineID != "" && op.MachineID != f.MachineID {
			continue
		}
		if f.ShiftID != "" && op.ShiftID != f.ShiftID {
			continue
		}
		if f.Status != "" && op.Status != f.Status {
			continue
		}
		ops = append(ops, *op)
	}
	return ops, nil
}

// ──────────────────────────────────────────────
// ProductionStore
// ──────────────────────────────────────────────

type productionStore struct{ s *Store }

func (r *productionStore) Append(_ context.Context, e *entity.ProductionEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.entries[e.JobOperationID] = append(r.s.entries[e.JobOperationID], *e)
	return nil
}

func (r *productionStore) ListByOperation(_ context.Context, operationID string) ([]entity.ProductionEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	entries := r.s.entries[operationID]
	out := make([]entity.ProductionEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *productionStore) CountByOperation(_ context.Context, operationID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.entries[operationID])), nil
}

// ──────────────────────────────────────────────
// MasterStore
// ──────────────────────────────────────────────

type masterStore struct{ s *Store }

func (r *masterStore) CreateCustomer(_ context.Context, c *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.customers[c.ID] = &cp
	return nil
}

func (r *masterStore) CreatePart(_ context.Context, p *entity.Part) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.parts[p.ID] = &cp
	return nil
}

func (r *masterStore) CreateOperationType(_ context.Context, ot *entity.OperationType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *ot
	r.s.opTypes[ot.ID] = &cp
	return nil
}

func (r *masterStore) CreateMachine(_ context.Context, m *entity.Machine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *m
	r.s.machines[m.ID] = &cp
	return nil
}

func (r *masterStore) CreateShift(_ context.Context, sh *entity.Shift) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sh
	r.s.shifts[sh.ID] = &cp
	return nil
}

func (r *masterStore) FindCustomer(_ context.Context, tenantID, id string) (*entity.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *masterStore) FindPart(_ context.Context, id string) (*entity.Part, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.parts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *masterStore) FindOperationType(_ context.Context, id string) (*entity.OperationType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ot, ok := r.s.opTypes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ot
	return &cp, nil
}

func (r *masterStore) FindMachine(_ context.Context, tenantID, id string) (*entity.Machine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.machines[id]
	if !ok || m.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *masterStore) FindShift(_ context.Context, tenantID, id string) (*entity.Shift, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sh, ok := r.s.shifts[id]
	if !ok || sh.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *sh
	return &cp, nil
}

func (r *masterStore) ListOperationTypes(_ context.Context) ([]entity.OperationType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ots []entity.OperationType
	for _, ot := range r.s.opTypes {
		ots = append(ots, *ot)
	}
	sort.Slice(ots, func(i, j int) bool { return ots[i].Name < ots[j].Name })
	return ots, nil
}

// ──────────────────────────────────────────────
// AuditStore
// ──────────────────────────────────────────────

type auditStore struct{ s *Store }

func (r *auditStore) Append(_ context.Context, rec *entity.AuditRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *rec)
	return nil
}

func (r *auditStore) ListByEntity(_ context.Context, tenantID, entityType, entityID string) ([]entity.AuditRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var records []entity.AuditRecord
	for _, rec := range r.s.audits {
		if rec.TenantID == tenantID && rec.EntityType == entityType && rec.EntityID == entityID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// ──────────────────────────────────────────────
// NotificationStore
// ──────────────────────────────────────────────

type notificationStore struct{ s *Store }

func (r *notificationStore) Create(_ context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *n
	r.s.notifications[n.ID] = &cp
	return nil
}

func (r *notificationStore) FindByID(_ context.Context, tenantID, id string) (*entity.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.notifications[id]
	if !ok || n.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *notificationStore) Update(_ context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notifications[n.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *n
	r.s.notifications[n.ID] = &cp
	return nil
}

func (r *notificationStore) ListForUser(_ context.Context, tenantID, userID string, unreadOnly bool) ([]entity.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var notifs []entity.Notification
	for _, n := range r.s.notifications {
		if n.TenantID != tenantID {
			continue
		}
		if n.UserID != nil && *n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		notifs = append(notifs, *n)
	}
	sort.Slice(notifs, func(i, j int) bool {
		return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
	})
	return notifs, nil
}
