package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 排产日历xlsx导出
type ExportService struct {
	jobRepo    repository.JobStore
	opRepo     repository.OperationStore
	masterRepo repository.MasterStore
}

// NewExportService 创建导出服务
func NewExportService(jobRepo repository.JobStore, opRepo repository.OperationStore, masterRepo repository.MasterStore) *ExportService {
	return &ExportService{
		jobRepo:    jobRepo,
		opRepo:     opRepo,
		masterRepo: masterRepo,
	}
}

var calendarExportHeaders = []string{
	"机台", "班次", "计划开始", "计划结束", "工作单号", "工序",
	"序号", "状态", "计划数量", "交期", "优先级",
}

// ExportCalendar 导出排产日历为xlsx
func (s *ExportService) ExportCalendar(ctx context.Context, tenantID, fromDate, toDate string) (*excelize.File, string, error) {
	if fromDate != "" {
		if _, err := time.Parse(isoDate, fromDate); err != nil {
			return nil, "", apperr.Validation(apperr.CodeInvalidDateRange, "from_date格式必须为YYYY-MM-DD")
		}
	}
	if toDate != "" {
		if _, err := time.Parse(isoDate, toDate); err != nil {
			return nil, "", apperr.Validation(apperr.CodeInvalidDateRange, "to_date格式必须为YYYY-MM-DD")
		}
	}

	ops, err := s.opRepo.ListByTenant(ctx, tenantID, repository.OperationFilter{})
	if err != nil {
		return nil, "", err
	}

	var planned []entity.JobOperation
	for _, op := range ops {
		if op.MachineID == "" || op.PlannedStartDate == "" {
			continue
		}
		if fromDate != "" && op.PlannedEndDate != "" && op.PlannedEndDate < fromDate {
			continue
		}
		if toDate != "" && op.PlannedStartDate > toDate {
			continue
		}
		planned = append(planned, op)
	}
	sort.Slice(planned, func(i, j int) bool {
		if planned[i].MachineID != planned[j].MachineID {
			return planned[i].MachineID < planned[j].MachineID
		}
		if planned[i].PlannedStartDate != planned[j].PlannedStartDate {
			return planned[i].PlannedStartDate < planned[j].PlannedStartDate
		}
		return planned[i].SequenceNumber < planned[j].SequenceNumber
	})

	machineNames := map[string]string{}
	shiftNames := map[string]string{}
	opNames := map[string]string{}
	if types, err := s.masterRepo.ListOperationTypes(ctx); err == nil {
		for _, t := range types {
			opNames[t.ID] = t.Name
		}
	}

	f := excelize.NewFile()
	sheet := "排产日历"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range calendarExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, op := range planned {
		row := rowIdx + 2

		machine := machineNames[op.MachineID]
		if machine == "" {
			machine = op.MachineID
			if m, err := s.masterRepo.FindMachine(ctx, tenantID, op.MachineID); err == nil {
				machine = m.Name
			}
			machineNames[op.MachineID] = machine
		}
		shift := shiftNames[op.ShiftID]
		if shift == "" {
			shift = op.ShiftID
			if sh, err := s.masterRepo.FindShift(ctx, tenantID, op.ShiftID); err == nil {
				shift = sh.Name
			}
			shiftNames[op.ShiftID] = shift
		}

		jobNumber, dueDate, priority := op.JobID, "", ""
		qty := 0
		if job, err := s.jobRepo.FindByID(ctx, tenantID, op.JobID); err == nil {
			jobNumber, dueDate, priority, qty = job.JobNumber, job.DueDate, job.Priority, job.Quantity
		}
		opName := opNames[op.OperationTypeID]
		if opName == "" {
			opName = op.OperationTypeID
		}

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), machine)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), shift)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), op.PlannedStartDate)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), op.PlannedEndDate)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), jobNumber)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), opName)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), op.SequenceNumber)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), op.Status)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), qty)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), dueDate)
		f.SetCellValue(sheet, fmt.Sprintf("K%d", row), priority)
	}

	colWidths := []float64{14, 10, 12, 12, 20, 14, 6, 14, 10, 12, 10}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("排产日历_%s.xlsx", time.Now().UTC().Format("20060102"))
	return f, filename, nil
}
