package handler

import (
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/bitfantasy/jobwork/internal/jobwork/service"
	"github.com/gin-gonic/gin"
)

// JobHandler 工作单接口
type JobHandler struct {
	svc *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

// Create 创建工作单并生成工艺路线
// POST /api/v1/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var req service.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.TenantID = GetTenantID(c)
	req.UserID = GetUserID(c)

	job, err := h.svc.CreateJob(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, job)
}

// List 工作单列表
// GET /api/v1/jobs?status=&customer_id=&priority=&from_date=&to_date=&page=&page_size=
func (h *JobHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.JobListParams{
		Status:     c.Query("status"),
		CustomerID: c.Query("customer_id"),
		Priority:   c.Query("priority"),
		FromDate:   c.Query("from_date"),
		ToDate:     c.Query("to_date"),
		Page:       page,
		PageSize:   pageSize,
	}

	result, err := h.svc.ListJobs(c.Request.Context(), GetTenantID(c), params)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// Get 工作单详情（含全部工序）
// GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	detail, err := h.svc.GetJobDetail(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, detail)
}
