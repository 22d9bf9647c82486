package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// JobListParams 工作单列表查询参数
type JobListParams struct {
	Status     string
	CustomerID string
	Priority   string
	FromDate   string // received_date >=
	ToDate     string // received_date <=
	Page       int
	PageSize   int
}

// OperationFilter 工序查询过滤条件（排产日历用），零值不过滤
type OperationFilter struct {
	MachineID string
	ShiftID   string
	Status    string
}

// JobStore 工作单存储
type JobStore interface {
	Create(ctx context.Context, job *entity.Job) error
	// FindByID 租户隔离查询：跨租户等同不存在
	FindByID(ctx context.Context, tenantID, id string) (*entity.Job, error)
	Update(ctx context.Context, job *entity.Job) error
	// Delete 仅用于工艺路线生成失败后的补偿回滚
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, tenantID string, params JobListParams) ([]entity.Job, int64, error)
	ListByTenant(ctx context.Context, tenantID string) ([]entity.Job, error)
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
}

// OperationStore 工序存储
type OperationStore interface {
	Create(ctx context.Context, op *entity.JobOperation) error
	// Delete 仅用于工艺路线生成失败后的补偿回滚
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, tenantID, id string) (*entity.JobOperation, error)
	Update(ctx context.Context, op *entity.JobOperation) error
	// ListByJob 按sequence_number升序返回
	ListByJob(ctx context.Context, jobID string) ([]entity.JobOperation, error)
	FindByJobSequence(ctx context.Context, jobID string, sequence int) (*entity.JobOperation, error)
	ListByMachineShift(ctx context.Context, tenantID, machineID, shiftID string) ([]entity.JobOperation, error)
	ListByTenant(ctx context.Context, tenantID string, f OperationFilter) ([]entity.JobOperation, error)
}

// ProductionStore 报产记录存储，仅追加
type ProductionStore interface {
	Append(ctx context.Context, e *entity.ProductionEntry) error
	ListByOperation(ctx context.Context, operationID string) ([]entity.ProductionEntry, error)
	CountByOperation(ctx context.Context, operationID string) (int64, error)
}

// MasterStore 主数据存储
type MasterStore interface {
	CreateCustomer(ctx context.Context, c *entity.Customer) error
	CreatePart(ctx context.Context, p *entity.Part) error
	CreateOperationType(ctx context.Context, ot *entity.OperationType) error
	CreateMachine(ctx context.Context, m *entity.Machine) error
	CreateShift(ctx context.Context, s *entity.Shift) error

	FindCustomer(ctx context.Context, tenantID, id string) (*entity.Customer, error)
	// FindPart 不做租户过滤，调用方需要区分"不存在"与"租户不符"
	FindPart(ctx context.Context, id string) (*entity.Part, error)
	FindOperationType(ctx context.Context, id string) (*entity.OperationType, error)
	FindMachine(ctx context.Context, tenantID, id string) (*entity.Machine, error)
	FindShift(ctx context.Context, tenantID, id string) (*entity.Shift, error)
	ListOperationTypes(ctx context.Context) ([]entity.OperationType, error)
}

// AuditStore 审计日志存储，仅追加
type AuditStore interface {
	Append(ctx context.Context, rec *entity.AuditRecord) error
	// ListByEntity 按时间倒序返回
	ListByEntity(ctx context.Context, tenantID, entityType, entityID string) ([]entity.AuditRecord, error)
}

// NotificationStore 通知存储
type NotificationStore interface {
	Create(ctx context.Context, n *entity.Notification) error
	FindByID(ctx context.Context, tenantID, id string) (*entity.Notification, error)
	Update(ctx context.Context, n *entity.Notification) error
	// ListForUser 返回用户自身的通知及租户广播，按创建时间倒序
	ListForUser(ctx context.Context, tenantID, userID string, unreadOnly bool) ([]entity.Notification, error)
}

// Repositories 仓库集合
type Repositories struct {
	Job          JobStore
	Operation    OperationStore
	Production   ProductionStore
	Master       MasterStore
	Audit        AuditStore
	Notification NotificationStore
}

// NewRepositories 创建基于gorm的仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Job:          NewJobRepository(db),
		Operation:    NewOperationRepository(db),
		Production:   NewProductionRepository(db),
		Master:       NewMasterRepository(db),
		Audit:        NewAuditRepository(db),
		Notification: NewNotificationRepository(db),
	}
}

func translateGormError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
