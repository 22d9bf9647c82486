package repository

import (
	"context"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"gorm.io/gorm"
)

// AuditRepository 审计日志仓库（gorm实现）。
// 只有Append和查询，不提供更新删除，保证不可变。
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append 追加审计记录
func (r *AuditRepository) Append(ctx context.Context, rec *entity.AuditRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListByEntity 按实体查询审计轨迹，时间倒序
func (r *AuditRepository) ListByEntity(ctx context.Context, tenantID, entityType, entityID string) ([]entity.AuditRecord, error) {
	var records []entity.AuditRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("timestamp DESC").
		Find(&records).Error
	return records, err
}
