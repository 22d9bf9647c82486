package handler

import (
	"github.com/gin-gonic/gin"
)

// SystemHandler 健康检查与会话信息接口
type SystemHandler struct {
	version string
	// ready 就绪探针回调，nil视为就绪
	ready func() error
}

func NewSystemHandler(version string) *SystemHandler {
	return &SystemHandler{version: version}
}

// SetReadyCheck 注册就绪探针（数据库连通性等）
func (h *SystemHandler) SetReadyCheck(check func() error) {
	h.ready = check
}

// HealthLive 存活探针
// GET /health/live
func (h *SystemHandler) HealthLive(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

// HealthReady 就绪探针
// GET /health/ready
func (h *SystemHandler) HealthReady(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			c.JSON(503, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(200, gin.H{"status": "ok"})
}

// Version 服务版本
// GET /version
func (h *SystemHandler) Version(c *gin.Context) {
	c.JSON(200, gin.H{"version": h.version})
}

// Me 当前用户会话信息
// GET /api/v1/me
func (h *SystemHandler) Me(c *gin.Context) {
	Success(c, gin.H{
		"user_id":   GetUserID(c),
		"tenant_id": GetTenantID(c),
		"role":      GetRole(c),
	})
}

// CurrentTenant 当前租户
// GET /api/v1/tenant/current
func (h *SystemHandler) CurrentTenant(c *gin.Context) {
	Success(c, gin.H{"tenant_id": GetTenantID(c)})
}
