package entity

import (
	"time"
)

// JobStatus 工作单状态（由工序状态汇总推导，不可直接设置）
const (
	JobStatusNotStarted = "NOT_STARTED"
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusCompleted  = "COMPLETED"
)

// JobPriority 工作单优先级
const (
	JobPriorityLow    = "LOW"
	JobPriorityMedium = "MEDIUM"
	JobPriorityHigh   = "HIGH"
)

// PriorityRank 优先级排序权重，HIGH在前
func PriorityRank(priority string) int {
	switch priority {
	case JobPriorityHigh:
		return 3
	case JobPriorityMedium:
		return 2
	case JobPriorityLow:
		return 1
	}
	return 0
}

// ValidPriority 校验优先级取值
func ValidPriority(priority string) bool {
	return PriorityRank(priority) > 0
}

// Job 客户工作单
type Job struct {
	ID           string    `json:"job_id" gorm:"primaryKey;size:36"`
	JobNumber    string    `json:"job_number" gorm:"size:64;not null;uniqueIndex"`
	TenantID     string    `json:"tenant_id" gorm:"size:64;not null;index"`
	CustomerID   string    `json:"customer_id" gorm:"size:36;not null;index"`
	PartID       string    `json:"part_id" gorm:"size:36;not null"`
	Quantity     int       `json:"quantity" gorm:"not null"`
	ReceivedDate string    `json:"received_date" gorm:"size:10;not null"` // YYYY-MM-DD
	DueDate      string    `json:"due_date" gorm:"size:10;not null;index"`
	Priority     string    `json:"priority" gorm:"size:10;not null;default:MEDIUM"`
	Status       string    `json:"status" gorm:"size:20;not null;default:NOT_STARTED"`
	CreatedBy    string    `json:"created_by" gorm:"size:64;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Operations []JobOperation `json:"operations,omitempty" gorm:"foreignKey:JobID"`
}

func (Job) TableName() string {
	return "jobs"
}

// Delayed 是否已延期（今天超过交期且未完工）
func (j *Job) Delayed(today string) bool {
	return today > j.DueDate && j.Status != JobStatusCompleted
}
