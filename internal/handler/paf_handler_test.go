package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paf-backend/internal/model"
	"paf-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWorkflowService records the one call the step-action routes make.
// The embedded interface panics on anything else, which is the point.
type stubWorkflowService struct {
	service.WorkflowService
	acted bool
	dto   service.ActOnStepDTO
}

func (s *stubWorkflowService) ActOnStep(ctx context.Context, actor service.Actor, submissionID string, step int, action string, req service.ActOnStepDTO) (service.DecisionResponse, error) {
	s.acted = true
	s.dto = req
	return service.DecisionResponse{}, nil
}

func newActRouter(svc service.WorkflowService, action string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", uuid.NewString())
		c.Set("userRole", model.RoleSupervisor.String())
	})
	h := NewPafHandler(svc)
	r.PUT("/api/pafs/:id/steps/:step/act", h.actOn(action))
	return r
}

func doAct(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPut, "/api/pafs/"+uuid.NewString()+"/steps/1/act", nil)
	} else {
		req = httptest.NewRequest(http.MethodPut, "/api/pafs/"+uuid.NewString()+"/steps/1/act", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestActOnStepBodyHandling(t *testing.T) {
	t.Run("EmptyBodyIsOptional", func(t *testing.T) {
		stub := &stubWorkflowService{}
		rec := doAct(t, newActRouter(stub, service.ActionApprove), "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, stub.acted)
		assert.Equal(t, service.ActOnStepDTO{}, stub.dto)
	})

	t.Run("MalformedBodyIsRejected", func(t *testing.T) {
		stub := &stubWorkflowService{}
		rec := doAct(t, newActRouter(stub, service.ActionRequestCorrection), `{"correction_reason": }`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, stub.acted, "a malformed body must not reach the engine")
	})

	t.Run("BodyPassedThrough", func(t *testing.T) {
		stub := &stubWorkflowService{}
		rec := doAct(t, newActRouter(stub, service.ActionRequestCorrection), `{"correction_reason":"effective date missing"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "effective date missing", stub.dto.CorrectionReason)
	})
}
