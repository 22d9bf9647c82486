package entity

import (
	"time"
)

// Customer 客户主数据
type Customer struct {
	ID        string    `json:"customer_id" gorm:"primaryKey;size:36"`
	TenantID  string    `json:"tenant_id" gorm:"size:64;not null;index"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

// Part 零件主数据，default_operation_route为工艺路线（操作类型ID有序列表）
type Part struct {
	ID                    string      `json:"part_id" gorm:"primaryKey;size:36"`
	TenantID              string      `json:"tenant_id" gorm:"size:64;not null;index"`
	Name                  string      `json:"name" gorm:"size:128;not null"`
	DefaultOperationRoute StringArray `json:"default_operations_route" gorm:"type:jsonb"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

func (Part) TableName() string {
	return "parts"
}

// OperationType 操作类型主数据目录
type OperationType struct {
	ID        string    `json:"operation_id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OperationType) TableName() string {
	return "operation_types"
}

// Machine 机台主数据
type Machine struct {
	ID        string    `json:"machine_id" gorm:"primaryKey;size:36"`
	TenantID  string    `json:"tenant_id" gorm:"size:64;not null;index"`
	Name      string    `json:"name" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Machine) TableName() string {
	return "machines"
}

// Shift 班次主数据
type Shift struct {
	ID        string    `json:"shift_id" gorm:"primaryKey;size:36"`
	TenantID  string    `json:"tenant_id" gorm:"size:64;not null;index"`
	Name      string    `json:"name" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Shift) TableName() string {
	return "shifts"
}
