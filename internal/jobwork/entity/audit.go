package entity

import (
	"time"
)

// AuditAction 审计动作
const (
	AuditJobCreated      = "JOB_CREATED"
	AuditJobRouteCreated = "JOB_ROUTE_CREATED"
	AuditStatusChanged   = "STATUS_CHANGED"
	AuditOpPlanned       = "OP_PLANNED"
	AuditOpRescheduled   = "OP_RESCHEDULED"
)

// AuditEntityType 审计实体类型
const (
	AuditEntityJob          = "JOB"
	AuditEntityJobOperation = "JOB_OPERATION"
)

// AuditRecord 审计记录，仅追加，不可修改删除
type AuditRecord struct {
	ID         string    `json:"audit_id" gorm:"primaryKey;size:36"`
	TenantID   string    `json:"tenant_id" gorm:"size:64;not null;index:idx_audit_entity"`
	EntityType string    `json:"entity_type" gorm:"size:32;not null;index:idx_audit_entity"`
	EntityID   string    `json:"entity_id" gorm:"size:80;not null;index:idx_audit_entity"`
	Action     string    `json:"action" gorm:"size:32;not null"`
	Before     JSONB     `json:"before" gorm:"type:jsonb"`
	After      JSONB     `json:"after" gorm:"type:jsonb"`
	UserID     string    `json:"user_id" gorm:"size:64;not null"`
	Timestamp  time.Time `json:"timestamp" gorm:"not null;index"`
}

func (AuditRecord) TableName() string {
	return "audit_records"
}
