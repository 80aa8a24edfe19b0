package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"paf-backend/internal/middleware"
	"paf-backend/internal/model"
	"paf-backend/internal/repository"
	"paf-backend/internal/service"
	"paf-backend/pkg/pagination"
	"paf-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PafHandler struct {
	workflowService service.WorkflowService
}

func NewPafHandler(workflowService service.WorkflowService) *PafHandler {
	return &PafHandler{workflowService: workflowService}
}

func (h *PafHandler) RegisterRoutes(router *gin.RouterGroup) {
	pafs := router.Group("/api/pafs")
	pafs.Use(middleware.Authenticate())
	{
		pafs.POST("", h.CreateSubmission)
		pafs.GET("", h.ListSubmissions)
		pafs.GET("/:id", h.GetSubmission)
		pafs.GET("/:id/steps", h.GetSteps)
		pafs.POST("/:id/submit", h.Submit)
		pafs.PUT("/:id/steps/:step/approve", h.actOn(service.ActionApprove))
		pafs.PUT("/:id/steps/:step/reject", h.actOn(service.ActionReject))
		pafs.PUT("/:id/steps/:step/request-correction", h.actOn(service.ActionRequestCorrection))

		admin := middleware.RequireRole(model.RoleAdmin)
		pafs.POST("/:id/rebuild-status", admin, h.RebuildStatus)
	}
}

// CreateSubmission creates a draft PAF and materializes its approval steps
// @Summary      Create PAF submission
// @Description  Creates a draft submission against a workflow template and materializes one pending approval step per template step
// @Tags         pafs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        submission  body      service.CreateSubmissionDTO  true  "Submission payload"
// @Success      201         {object}  response.Response{data=service.SubmissionResponse}
// @Failure      404         {object}  response.Response
// @Router       /api/pafs [post]
func (h *PafHandler) CreateSubmission(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.CreateSubmissionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.workflowService.CreateSubmission(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// Submit moves a draft submission into the approval chain
// @Summary      Submit a draft PAF
// @Tags         pafs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=service.SubmissionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/pafs/{id}/submit [post]
func (h *PafHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	result, err := h.workflowService.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// actOn builds the handler for one step action route. The step number comes
// from the path; authorization against the step's approver role happens in
// the engine's role gate.
func (h *PafHandler) actOn(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		step, err := strconv.Atoi(c.Param("step"))
		if err != nil || step < 1 {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid step number"))
			return
		}

		// An absent body is fine (comments are optional), but a body that is
		// present and malformed must not be silently dropped.
		var req service.ActOnStepDTO
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
			return
		}

		result, err := h.workflowService.ActOnStep(c.Request.Context(), actor, c.Param("id"), step, action, req)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}

// GetSubmission returns one submission
func (h *PafHandler) GetSubmission(c *gin.Context) {
	result, err := h.workflowService.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetSteps returns the ordered approval step ledger for a submission
// @Summary      Get approval steps
// @Tags         pafs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=[]service.StepResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/pafs/{id}/steps [get]
func (h *PafHandler) GetSteps(c *gin.Context) {
	result, err := h.workflowService.GetSteps(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListSubmissions returns submissions, optionally filtered by status/tenant
func (h *PafHandler) ListSubmissions(c *gin.Context) {
	params := pagination.Parse(c)

	filter := repository.SubmissionFilter{
		TenantID: c.Query("tenant_id"),
		Status:   c.Query("status"),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	submissions, total, err := h.workflowService.ListSubmissions(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   submissions,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// RebuildStatus recomputes a submission's cached status from its ledger
func (h *PafHandler) RebuildStatus(c *gin.Context) {
	result, err := h.workflowService.RebuildStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
