package handler

import (
	"github.com/bitfantasy/jobwork/internal/jobwork/service"
	"github.com/gin-gonic/gin"
)

// MetricsHandler 看板与运营指标接口
type MetricsHandler struct {
	kanbanSvc  *service.KanbanService
	metricsSvc *service.MetricsService
}

func NewMetricsHandler(kanbanSvc *service.KanbanService, metricsSvc *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{kanbanSvc: kanbanSvc, metricsSvc: metricsSvc}
}

// Kanban 按当前阶段分组的车间看板
// GET /api/v1/kanban?date=
func (h *MetricsHandler) Kanban(c *gin.Context) {
	result, err := h.kanbanSvc.JobsByStage(c.Request.Context(), GetTenantID(c), c.Query("date"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// WIP 在制工序分布
// GET /api/v1/metrics/wip?from_date=&to_date=
func (h *MetricsHandler) WIP(c *gin.Context) {
	result, err := h.metricsSvc.WIPMetrics(c.Request.Context(), GetTenantID(c),
		c.Query("from_date"), c.Query("to_date"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// Bottlenecks 机台瓶颈负载
// GET /api/v1/metrics/bottlenecks
func (h *MetricsHandler) Bottlenecks(c *gin.Context) {
	loads, err := h.metricsSvc.BottleneckMetrics(c.Request.Context(), GetTenantID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"machines": loads})
}

// LateJobs 延期工作单
// GET /api/v1/metrics/late-jobs
func (h *MetricsHandler) LateJobs(c *gin.Context) {
	result, err := h.metricsSvc.LateJobs(c.Request.Context(), GetTenantID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}
