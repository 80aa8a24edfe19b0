package handler

import (
	"net/http"

	"paf-backend/internal/middleware"
	"paf-backend/internal/model"
	"paf-backend/internal/service"
	"paf-backend/pkg/pagination"
	"paf-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleHRDirector)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
		group.GET("/submissions/:id", h.GetSubmissionTrail)
	}
}

// GetAuditLogs retrieves paginated workflow audit records
// @Summary      Get audit logs
// @Description  Retrieves the append-only log of workflow transition attempts
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetSubmissionTrail returns the full transition history for one submission
func (h *AuditHandler) GetSubmissionTrail(c *gin.Context) {
	trail, err := h.auditService.GetSubmissionTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, trail))
}
