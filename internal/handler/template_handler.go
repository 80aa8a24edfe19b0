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

type TemplateHandler struct {
	templateService service.TemplateService
}

func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

func (h *TemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	templates := router.Group("/api/workflow-templates")
	{
		templates.GET("", middleware.Authenticate(), h.ListTemplates)
		templates.GET("/:id", middleware.Authenticate(), h.GetTemplate)

		admin := middleware.RequireRole(model.RoleAdmin, model.RoleHRDirector)
		templates.POST("", admin, h.CreateTemplate)
		templates.PUT("/:id", admin, h.UpdateTemplate)
		templates.DELETE("/:id", admin, h.DeleteTemplate)
	}
}

// CreateTemplate registers a new approval chain template
// @Summary      Create workflow template
// @Description  Registers a named, ordered chain of approver roles
// @Tags         templates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        template  body      service.CreateTemplateDTO  true  "Template definition"
// @Success      201       {object}  response.Response{data=service.TemplateResponse}
// @Failure      422       {object}  response.Response
// @Router       /api/workflow-templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req service.CreateTemplateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.templateService.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetTemplate returns one template with its steps
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	result, err := h.templateService.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListTemplates returns templates, paginated
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	params := pagination.Parse(c)

	templates, total, err := h.templateService.ListTemplates(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   templates,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// UpdateTemplate replaces a template's definition. Refused while any
// non-draft submission references it.
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req service.CreateTemplateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.templateService.UpdateTemplate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DeleteTemplate removes an unused template
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
