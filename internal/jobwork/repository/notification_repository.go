package repository

import (
	"context"

	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓库（gorm实现）
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建通知
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// FindByID 租户隔离查询通知
func (r *NotificationRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.WithContext(ctx).First(&n, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &n, nil
}

// Update 更新通知（已读标记）
func (r *NotificationRepository) Update(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Save(n).Error
}

// ListForUser 用户自身通知+租户广播，创建时间倒序
func (r *NotificationRepository) ListForUser(ctx context.Context, tenantID, userID string, unreadOnly bool) ([]entity.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ? OR user_id IS NULL", userID)

	if unreadOnly {
		query = query.Where("is_read = false")
	}

	var notifs []entity.Notification
	err := query.Order("created_at DESC").Find(&notifs).Error
	return notifs, err
}
