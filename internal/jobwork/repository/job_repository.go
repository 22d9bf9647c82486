package repository

import (
	"context"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"gorm.io/gorm"
)

// JobRepository 工作单仓库（gorm实现）
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create 创建工作单
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// FindByID 租户隔离查询工作单
func (r *JobRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).
		First(&job, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &job, nil
}

// Update 更新工作单
func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// Delete 删除工作单（仅限补偿回滚）
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Job{}, "id = ?", id).Error
}

// List 按过滤条件分页查询，交期升序+优先级降序
func (r *JobRepository) List(ctx context.Context, tenantID string, params JobListParams) ([]entity.Job, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Job{}).Where("tenant_id = ?", tenantID)

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.CustomerID != "" {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.Priority != "" {
		query = query.Where("priority = ?", params.Priority)
	}
	if params.FromDate != "" {
		query = query.Where("received_date >= ?", params.FromDate)
	}
	if params.ToDate != "" {
		query = query.Where("received_date <= ?", params.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []entity.Job
	err := query.
		Order("due_date ASC").
		Order("CASE priority WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END DESC").
		Offset((params.Page - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&jobs).Error
	return jobs, total, err
}

// ListByTenant 返回租户全部工作单（读侧聚合用）
func (r *JobRepository) ListByTenant(ctx context.Context, tenantID string) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&jobs).Error
	return jobs, err
}

// CountByTenant 租户工作单总数（生成流水号用）
func (r *JobRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}
