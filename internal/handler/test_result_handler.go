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

// TestResultHandler exposes test result history and exports.
type TestResultHandler struct {
	results *service.TestResultService
}

// NewTestResultHandler constructs TestResultHandler.
func NewTestResultHandler(results *service.TestResultService) *TestResultHandler {
	return &TestResultHandler{results: results}
}

// List godoc
// @Summary List test results
// @Tags TestResults
// @Produce json
// @Param student_id query string false "Student"
// @Param subject_id query string false "Subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /test-results [get]
func (h *TestResultHandler) List(c *gin.Context) {
	filter := resultFilter(c)
	filter.Page, filter.PageSize = pageParams(c)

	results, pagination, err := h.results.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, pagination)
}

// Create godoc
// @Summary Record test result
// @Description Records a standalone test for one of the teacher's students
// @Tags TestResults
// @Accept json
// @Produce json
// @Param payload body service.RecordTestResultRequest true "Result"
// @Success 201 {object} response.Envelope
// @Router /test-results [post]
func (h *TestResultHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RecordTestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.results.Record(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Export godoc
// @Summary Export test results
// @Tags TestResults
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv, xlsx or pdf"
// @Param student_id query string false "Student"
// @Param subject_id query string false "Subject"
// @Success 200 {file} file
// @Router /test-results/export [get]
func (h *TestResultHandler) Export(c *gin.Context) {
	file, err := h.results.Export(c.Request.Context(), claimsFromContext(c), resultFilter(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

func resultFilter(c *gin.Context) models.TestResultFilter {
	return models.TestResultFilter{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		SubjectID: strings.TrimSpace(c.Query("subject_id")),
	}
}
