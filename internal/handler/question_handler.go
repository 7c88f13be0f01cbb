package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/internal/service"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/response"
)

// QuestionHandler exposes the student question threads.
type QuestionHandler struct {
	questions *service.QuestionService
}

// NewQuestionHandler constructs QuestionHandler.
func NewQuestionHandler(questions *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// List godoc
// @Summary List questions
// @Tags Questions
// @Produce json
// @Param status query string false "open or answered"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	filter := models.QuestionFilter{Status: models.QuestionStatus(strings.TrimSpace(c.Query("status")))}
	if filter.Status != "" && filter.Status != models.QuestionOpen && filter.Status != models.QuestionAnswered {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be open or answered"))
		return
	}
	filter.Page, filter.PageSize = pageParams(c)

	questions, pagination, err := h.questions.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, pagination)
}

// Create godoc
// @Summary Ask question
// @Tags Questions
// @Accept json
// @Produce json
// @Param payload body service.AskQuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Router /questions [post]
func (h *QuestionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AskQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	question, err := h.questions.Ask(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}

// Get godoc
// @Summary Get question thread
// @Tags Questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Router /questions/{id} [get]
func (h *QuestionHandler) Get(c *gin.Context) {
	thread, err := h.questions.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thread, nil)
}

// Respond godoc
// @Summary Reply to question
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body service.RespondQuestionRequest true "Reply"
// @Success 201 {object} response.Envelope
// @Router /questions/{id}/responses [post]
func (h *QuestionHandler) Respond(c *gin.Context) {
	var req service.RespondQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reply, err := h.questions.Respond(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reply)
}
