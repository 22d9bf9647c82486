package repository

import (
	"context"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"gorm.io/gorm"
)

// MasterRepository 主数据仓库（gorm实现）
type MasterRepository struct {
	db *gorm.DB
}

func NewMasterRepository(db *gorm.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

func (r *MasterRepository) CreateCustomer(ctx context.Context, c *entity.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *MasterRepository) CreatePart(ctx context.Context, p *entity.Part) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *MasterRepository) CreateOperationType(ctx context.Context, ot *entity.OperationType) error {
	return r.db.WithContext(ctx).Create(ot).Error
}

func (r *MasterRepository) CreateMachine(ctx context.Context, m *entity.Machine) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MasterRepository) CreateShift(ctx context.Context, s *entity.Shift) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// FindCustomer 租户隔离查询客户
func (r *MasterRepository) FindCustomer(ctx context.Context, tenantID, id string) (*entity.Customer, error) {
	var c entity.Customer
	err := r.db.WithContext(ctx).First(&c, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &c, nil
}

// FindPart 查询零件，不做租户过滤（调用方区分租户不符）
func (r *MasterRepository) FindPart(ctx context.Context, id string) (*entity.Part, error) {
	var p entity.Part
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &p, nil
}

// FindOperationType 查询操作类型
func (r *MasterRepository) FindOperationType(ctx context.Context, id string) (*entity.OperationType, error) {
	var ot entity.OperationType
	err := r.db.WithContext(ctx).First(&ot, "id = ?", id).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &ot, nil
}

// FindMachine 租户隔离查询机台
func (r *MasterRepository) FindMachine(ctx context.Context, tenantID, id string) (*entity.Machine, error) {
	var m entity.Machine
	err := r.db.WithContext(ctx).First(&m, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &m, nil
}

// FindShift 租户隔离查询班次
func (r *MasterRepository) FindShift(ctx context.Context, tenantID, id string) (*entity.Shift, error) {
	var s entity.Shift
	err := r.db.WithContext(ctx).First(&s, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &s, nil
}

// ListOperationTypes 返回操作类型目录
func (r *MasterRepository) ListOperationTypes(ctx context.Context) ([]entity.OperationType, error) {
	var ots []entity.OperationType
	err := r.db.WithContext(ctx).Order("name ASC").Find(&ots).Error
	return ots, err
}
