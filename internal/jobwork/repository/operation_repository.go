package repository

import (
	"context"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"gorm.io/gorm"
)

// OperationRepository 工序仓库（gorm实现）
type OperationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// Create 创建工序
func (r *OperationRepository) Create(ctx context.Context, op *entity.JobOperation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

// Delete 删除工序（仅限补偿回滚）
func (r *OperationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.JobOperation{}, "id = ?", id).Error
}

// FindByID 租户隔离查询工序
func (r *OperationRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.JobOperation, error) {
	var op entity.JobOperation
	err := r.db.WithContext(ctx).
		First(&op, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &op, nil
}

// Update 更新工序
func (r *OperationRepository) Update(ctx context.Context, op *entity.JobOperation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

// ListByJob 返回工作单全部工序，按sequence_number升序
func (r *OperationRepository) ListByJob(ctx context.Context, jobID string) ([]entity.JobOperation, error) {
	var ops []entity.JobOperation
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("sequence_number ASC").
		Find(&ops).Error
	return ops, err
}

// FindByJobSequence 按工作单+序号查询工序
func (r *OperationRepository) FindByJobSequence(ctx context.Context, jobID string, sequence int) (*entity.JobOperation, error) {
	var op entity.JobOperation
	err := r.db.WithContext(ctx).
		First(&op, "job_id = ? AND sequence_number = ?", jobID, sequence).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &op, nil
}

// ListByMachineShift 返回同机台同班次的全部工序（容量冲突扫描用）
func (r *OperationRepository) ListByMachineShift(ctx context.Context, tenantID, machineID, shiftID string) ([]entity.JobOperation, error) {
	var ops []entity.JobOperation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND machine_id = ? AND shift_id = ?", tenantID, machineID, shiftID).
		Find(&ops).Error
	return ops, err
}

// ListByTenant 返回租户工序，可按机台/班次/状态过滤（读侧聚合用）
func (r *OperationRepository) ListByTenant(ctx context.Context, tenantID string, f OperationFilter) ([]entity.JobOperation, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if f.MachineID != "" {
		query = query.Where("machine_id = ?", f.MachineID)
	}
	if f.ShiftID != "" {
		query = query.Where("shift_id = ?", f.ShiftID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var ops []entity.JobOperation
	err := query.Find(&ops).Error
	return ops, err
}
