package handler

import (
	"net/http"

	"paf-backend/internal/model"
	"paf-backend/internal/service"
	"paf-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// writeError maps a workflow error kind to an HTTP status. Conflict-family
// kinds (invalid transition, out-of-order step, lost race) all map to 409 so
// clients know to re-fetch submission state before retrying.
func writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindInvalidTemplate:
		status = http.StatusUnprocessableEntity
	case service.KindInvalidTransition, service.KindStepOutOfOrder, service.KindConflict:
		status = http.StatusConflict
	case service.KindForbidden:
		status = http.StatusForbidden
	case service.KindUnavailable:
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, response.KindError(status, string(kind), err.Error()))
}

// actorFromContext rebuilds the authenticated caller from the values the
// auth middleware stored. Engine calls always receive the actor explicitly.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	idVal, _ := c.Get("userID")
	idStr, _ := idVal.(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing or invalid user identity"))
		return service.Actor{}, false
	}

	role := model.Role(c.GetString("userRole"))
	if !role.IsValid() {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Unknown role"))
		return service.Actor{}, false
	}

	return service.Actor{ID: id, Role: role}, true
}
