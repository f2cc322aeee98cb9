package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/eval-hub/internal/healthcheck"
	"github.com/azhengyongqin/eval-hub/internal/server/dto"
)

// HealthHandler 健康检查 Handler
type HealthHandler struct {
	checker *healthcheck.HealthChecker
}

// NewHealthHandler 创建 HealthHandler
func NewHealthHandler(checker *healthcheck.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Liveness godoc
// @Summary 存活检查
// @Description 快速返回，不检查外部依赖
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	result := h.checker.LivenessCheck()
	c.JSON(http.StatusOK, dto.HealthResponse{Status: result.Status, Checks: result.Checks})
}

// Readiness godoc
// @Summary 就绪检查
// @Description 检查 PostgreSQL 与任务队列，任一不可用返回 503
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.checker.ReadinessCheck(c.Request.Context())
	status := http.StatusOK
	if result.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.HealthResponse{Status: result.Status, Checks: result.Checks})
}
