package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/internal/service"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/response"
)

type curriculumService interface {
	ListClasses(ctx context.Context) ([]models.Class, error)
	CreateClass(ctx context.Context, req service.CreateClassRequest) (*models.Class, error)
	ListSubjects(ctx context.Context, classID string) ([]models.Subject, error)
	CreateSubject(ctx context.Context, classID string, req service.CreateSubjectRequest) (*models.Subject, error)
	ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error)
	CreateTopic(ctx context.Context, subjectID string, req service.CreateTopicRequest) (*models.Topic, error)
}

// CurriculumHandler exposes the class, subject and topic tree. Writes are admin only.
type CurriculumHandler struct {
	curriculum curriculumService
}

// NewCurriculumHandler constructs CurriculumHandler.
func NewCurriculumHandler(curriculum curriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculum: curriculum}
}

// ListClasses godoc
// @Summary List classes
// @Tags Curriculum
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *CurriculumHandler) ListClasses(c *gin.Context) {
	classes, err := h.curriculum.ListClasses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// CreateClass godoc
// @Summary Create class
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *CurriculumHandler) CreateClass(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.curriculum.CreateClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// ListSubjects godoc
// @Summary List subjects of a class
// @Tags Curriculum
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/subjects [get]
func (h *CurriculumHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.curriculum.ListSubjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// CreateSubject godoc
// @Summary Create subject in a class
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/subjects [post]
func (h *CurriculumHandler) CreateSubject(c *gin.Context) {
	var req service.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subject, err := h.curriculum.CreateSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// ListTopics godoc
// @Summary List topics of a subject
// @Tags Curriculum
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/topics [get]
func (h *CurriculumHandler) ListTopics(c *gin.Context) {
	topics, err := h.curriculum.ListTopics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, nil)
}

// CreateTopic godoc
// @Summary Create topic in a subject
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.CreateTopicRequest true "Topic payload"
// @Success 201 {object} response.Envelope
// @Router /subjects/{id}/topics [post]
func (h *CurriculumHandler) CreateTopic(c *gin.Context) {
	var req service.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	topic, err := h.curriculum.CreateTopic(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, topic)
}
