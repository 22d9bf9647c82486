package repository

import (
	"context"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"gorm.io/gorm"
)

// ProductionRepository 报产记录仓库（gorm实现），仅追加
type ProductionRepository struct {
	db *gorm.DB
}

func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// Append 追加报产记录
func (r *ProductionRepository) Append(ctx context.Context, e *entity.ProductionEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// ListByOperation 返回工序的全部报产记录，按记录时间升序
func (r *ProductionRepository) ListByOperation(ctx context.Context, operationID string) ([]entity.ProductionEntry, error) {
	var entries []entity.ProductionEntry
	err := r.db.WithContext(ctx).
		Where("job_operation_id = ?", operationID).
		Order("recorded_at ASC").
		Find(&entries).Error
	return entries, err
}

// CountByOperation 工序报产记录条数
func (r *ProductionRepository) CountByOperation(ctx context.Context, operationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ProductionEntry{}).
		Where("job_operation_id = ?", operationID).Count(&count).Error
	return count, err
}
