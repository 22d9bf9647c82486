package handler

import (
	"net/url"

	"github.com/bitfantasy/jobwork/internal/jobwork/service"
	"github.com/gin-gonic/gin"
)

// PlanningHandler 排产日历接口
type PlanningHandler struct {
	planSvc   *service.PlanningService
	exportSvc *service.ExportService
}

func NewPlanningHandler(planSvc *service.PlanningService, exportSvc *service.ExportService) *PlanningHandler {
	return &PlanningHandler{planSvc: planSvc, exportSvc: exportSvc}
}

// Calendar 排产日历（机台→班次→日期分组）
// GET /api/v1/planning/calendar?machine_id=&shift_id=&status=&from_date=&to_date=&page=&page_size=
func (h *PlanningHandler) Calendar(c *gin.Context) {
	page, pageSize := GetPagination(c)
	result, err := h.planSvc.PlanningCalendar(c.Request.Context(), service.CalendarParams{
		TenantID:  GetTenantID(c),
		MachineID: c.Query("machine_id"),
		ShiftID:   c.Query("shift_id"),
		Status:    c.Query("status"),
		FromDate:  c.Query("from_date"),
		ToDate:    c.Query("to_date"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// Export 排产日历导出xlsx
// GET /api/v1/planning/calendar/export?from_date=&to_date=
func (h *PlanningHandler) Export(c *gin.Context) {
	f, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), GetTenantID(c),
		c.Query("from_date"), c.Query("to_date"))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename*=UTF-8''`+url.PathEscape(filename))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "导出失败: "+err.Error())
	}
}
