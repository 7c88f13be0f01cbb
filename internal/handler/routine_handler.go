package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/internal/service"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/response"
)

// RoutineHandler exposes routine templates and the manual sweep trigger.
type RoutineHandler struct {
	routines *service.RoutineService
}

// NewRoutineHandler constructs RoutineHandler.
func NewRoutineHandler(routines *service.RoutineService) *RoutineHandler {
	return &RoutineHandler{routines: routines}
}

// List godoc
// @Summary List routines
// @Tags Routines
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /routine-tasks [get]
func (h *RoutineHandler) List(c *gin.Context) {
	routines, err := h.routines.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routines, nil)
}

// Create godoc
// @Summary Create routine
// @Tags Routines
// @Accept json
// @Produce json
// @Param payload body service.RoutineRequest true "Routine payload"
// @Success 201 {object} response.Envelope
// @Router /routine-tasks [post]
func (h *RoutineHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	routine, err := h.routines.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, routine)
}

// Update godoc
// @Summary Replace routine
// @Tags Routines
// @Accept json
// @Produce json
// @Param id path string true "Routine ID"
// @Param payload body service.RoutineRequest true "Routine payload"
// @Success 200 {object} response.Envelope
// @Router /routine-tasks/{id} [put]
func (h *RoutineHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	routine, err := h.routines.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routine, nil)
}

// Delete godoc
// @Summary Delete routine
// @Tags Routines
// @Param id path string true "Routine ID"
// @Success 204
// @Router /routine-tasks/{id} [delete]
func (h *RoutineHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.routines.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Sweep godoc
// @Summary Materialise today's routine tasks
// @Description Teachers sweep their own routines, admins sweep every routine. Safe to repeat on the same day.
// @Tags Routines
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auto-assign-tasks [post]
func (h *RoutineHandler) Sweep(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	teacherID := ""
	if claims.Role == models.RoleTeacher {
		teacherID = claims.UserID
	}
	result, err := h.routines.Sweep(c.Request.Context(), claims.UserID, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
