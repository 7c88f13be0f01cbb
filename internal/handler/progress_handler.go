package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/internal/service"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/response"
)

// ProgressHandler exposes subject assignment and topic progress per student.
type ProgressHandler struct {
	progress *service.ProgressService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(progress *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// AssignSubject godoc
// @Summary Assign subject to student
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.AssignSubjectRequest true "Subject"
// @Success 204
// @Router /students/{id}/subjects [post]
func (h *ProgressHandler) AssignSubject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AssignSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.progress.AssignSubject(c.Request.Context(), claims.UserID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnassignSubject godoc
// @Summary Remove subject from student
// @Tags Progress
// @Param id path string true "Student ID"
// @Param subjectId path string true "Subject ID"
// @Success 204
// @Router /students/{id}/subjects/{subjectId} [delete]
func (h *ProgressHandler) UnassignSubject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.progress.UnassignSubject(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List student subjects
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/subjects [get]
func (h *ProgressHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.progress.ListSubjects(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// SetProgress godoc
// @Summary Record topic progress
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.SetProgressRequest true "Progress"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/progress [put]
func (h *ProgressHandler) SetProgress(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SetProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	progress, err := h.progress.SetProgress(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// Report godoc
// @Summary Student progress report
// @Description Completion percentage per subject and overall
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *ProgressHandler) Report(c *gin.Context) {
	report, err := h.progress.Report(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
