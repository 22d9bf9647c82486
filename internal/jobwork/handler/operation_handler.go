package handler

import (
	"github.com/bitfantasy/jobwork/internal/jobwork/service"
	"github.com/gin-gonic/gin"
)

// OperationHandler 工序执行接口：状态转移、排产、报产
type OperationHandler struct {
	opSvc   *service.OperationService
	planSvc *service.PlanningService
	prodSvc *service.ProductionService
}

func NewOperationHandler(opSvc *service.OperationService, planSvc *service.PlanningService, prodSvc *service.ProductionService) *OperationHandler {
	return &OperationHandler{opSvc: opSvc, planSvc: planSvc, prodSvc: prodSvc}
}

// UpdateStatus 工序状态转移
// PATCH /api/v1/operations/:id/status
func (h *OperationHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.JobOperationID = c.Param("id")
	req.TenantID = GetTenantID(c)
	req.UserID = GetUserID(c)

	op, err := h.opSvc.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, op)
}

// Plan 工序排产/改期
// PATCH /api/v1/operations/:id/plan
func (h *OperationHandler) Plan(c *gin.Context) {
	var req service.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.JobOperationID = c.Param("id")
	req.TenantID = GetTenantID(c)
	req.UserID = GetUserID(c)

	op, warning, err := h.planSvc.PlanOrReschedule(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	if warning != "" {
		Success(c, gin.H{"operation": op, "warning": warning})
		return
	}
	Success(c, op)
}

// RecordProduction 报产
// POST /api/v1/operations/:id/production
func (h *OperationHandler) RecordProduction(c *gin.Context) {
	var req service.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.JobOperationID = c.Param("id")
	req.TenantID = GetTenantID(c)
	req.OperatorID = GetUserID(c)

	result, err := h.prodSvc.RecordProduction(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, result)
}

// ListProduction 报产明细
// GET /api/v1/operations/:id/production
func (h *OperationHandler) ListProduction(c *gin.Context) {
	entries, err := h.prodSvc.ListEntries(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": entries})
}
