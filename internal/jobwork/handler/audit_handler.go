package handler

import (
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/service"
	"github.com/gin-gonic/gin"
)

// AuditHandler 审计轨迹接口
type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// Trail 实体的审计轨迹，时间倒序
// GET /api/v1/audit/:entity_type/:entity_id
func (h *AuditHandler) Trail(c *gin.Context) {
	entityType := c.Param("entity_type")
	if entityType != entity.AuditEntityJob && entityType != entity.AuditEntityJobOperation {
		BadRequest(c, "entity_type必须是JOB或JOB_OPERATION")
		return
	}

	records, err := h.svc.Trail(c.Request.Context(), GetTenantID(c), entityType, c.Param("entity_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": records})
}
