package entity

import (
	"time"
)

// NotificationType 通知类型
const (
	NotifyReady    = "READY"
	NotifyConflict = "CONFLICT"
	NotifyDelay    = "DELAY"
)

// Notification 站内通知，UserID为空表示广播给租户内所有主管角色
type Notification struct {
	ID              string     `json:"notification_id" gorm:"primaryKey;size:36"`
	TenantID        string     `json:"tenant_id" gorm:"size:64;not null;index"`
	UserID          *string    `json:"user_id" gorm:"size:64;index"`
	Type            string     `json:"type" gorm:"size:20;not null"`
	Message         string     `json:"message" gorm:"type:text;not null"`
	EntityReference string     `json:"entity_reference" gorm:"size:80"`
	IsRead          bool       `json:"is_read" gorm:"default:false"`
	ReadAt          *time.Time `json:"read_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
