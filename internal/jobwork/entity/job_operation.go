package entity

import (
	"time"
)

// OperationStatus 工序执行状态
const (
	OpStatusNotStarted = "NOT_STARTED"
	OpStatusReady      = "READY"
	OpStatusInProgress = "IN_PROGRESS"
	OpStatusPaused     = "PAUSED"
	OpStatusCompleted  = "COMPLETED"
	OpStatusCancelled  = "CANCELLED"
)

// opTransitions 状态机转移表，此处集中定义，调用方不得另行判断
var opTransitions = map[string][]string{
	OpStatusNotStarted: {OpStatusInProgress, OpStatusCancelled},
	OpStatusReady:      {OpStatusInProgress},
	OpStatusInProgress: {OpStatusCompleted, OpStatusPaused},
	OpStatusPaused:     {OpStatusInProgress},
	OpStatusCompleted:  {},
	OpStatusCancelled:  {},
}

// CanTransition 校验状态转移是否合法
func CanTransition(from, to string) bool {
	for _, next := range opTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TerminalOpStatus 是否终态
func TerminalOpStatus(status string) bool {
	return status == OpStatusCompleted || status == OpStatusCancelled
}

// ActiveOpStatus 是否在制（WIP）状态
func ActiveOpStatus(status string) bool {
	return status == OpStatusReady || status == OpStatusInProgress || status == OpStatusPaused
}

// JobOperation 工作单工序
type JobOperation struct {
	ID              string `json:"job_operation_id" gorm:"primaryKey;size:80"`
	JobID           string `json:"job_id" gorm:"size:36;not null;index"`
	TenantID        string `json:"tenant_id" gorm:"size:64;not null;index"`
	OperationTypeID string `json:"operation_id" gorm:"size:36;not null"`
	SequenceNumber  int    `json:"sequence_number" gorm:"not null"`
	Status          string `json:"status" gorm:"size:20;not null;default:NOT_STARTED"`

	// 计划
	MachineID        string `json:"machine_id" gorm:"size:36;index:idx_job_ops_machine_shift"`
	ShiftID          string `json:"shift_id" gorm:"size:36;index:idx_job_ops_machine_shift"`
	PlannedStartDate string `json:"planned_start_date" gorm:"size:10"` // YYYY-MM-DD
	PlannedEndDate   string `json:"planned_end_date" gorm:"size:10"`
	NeedsPlanning    bool   `json:"needs_planning" gorm:"default:false"`

	// 执行
	ActualStartTime *time.Time `json:"actual_start_time"`
	ActualEndTime   *time.Time `json:"actual_end_time"`
	StartedBy       string     `json:"started_by" gorm:"size:64"`
	PausedAt        *time.Time `json:"paused_at"`
	PausedBy        string     `json:"paused_by" gorm:"size:64"`
	ResumedAt       *time.Time `json:"resumed_at"`
	ResumedBy       string     `json:"resumed_by" gorm:"size:64"`
	CompletedBy     string     `json:"completed_by" gorm:"size:64"`

	// 完工数量与返工
	QuantityCompleted int    `json:"quantity_completed" gorm:"default:0"`
	QuantityRejected  int    `json:"quantity_rejected" gorm:"default:0"`
	ReworkFlag        bool   `json:"rework_flag" gorm:"default:false"`
	ReworkNote        string `json:"rework_note" gorm:"type:text"`

	// 报产累计
	TotalProduced int `json:"total_produced" gorm:"default:0"`
	TotalScrap    int `json:"total_scrap" gorm:"default:0"`
	TotalRework   int `json:"total_rework" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Entries []ProductionEntry `json:"entries,omitempty" gorm:"foreignKey:JobOperationID"`
}

func (JobOperation) TableName() string {
	return "job_operations"
}

// Planned 是否已有完整排产信息（机台+班次+起止日期）
func (op *JobOperation) Planned() bool {
	return op.MachineID != "" && op.ShiftID != "" &&
		op.PlannedStartDate != "" && op.PlannedEndDate != ""
}

// ProductionEntry 报产记录，仅追加
type ProductionEntry struct {
	ID             string    `json:"entry_id" gorm:"primaryKey;size:36"`
	JobOperationID string    `json:"job_operation_id" gorm:"size:80;not null;index"`
	TenantID       string    `json:"tenant_id" gorm:"size:64;not null;index"`
	OperatorID     string    `json:"operator_id" gorm:"size:64;not null"`
	ProducedQty    int       `json:"produced_qty" gorm:"not null;default:0"`
	ScrapQty       int       `json:"scrap_qty" gorm:"not null;default:0"`
	ReworkQty      int       `json:"rework_qty" gorm:"not null;default:0"`
	Notes          string    `json:"notes" gorm:"type:text"`
	RecordedAt     time.Time `json:"recorded_at"`
}

func (ProductionEntry) TableName() string {
	return "production_entries"
}
