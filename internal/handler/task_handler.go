package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/internal/service"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/response"
)

type taskService interface {
	Create(ctx context.Context, teacherID string, req service.CreateTaskRequest) (*models.TaskView, error)
	Update(ctx context.Context, teacherID, id string, req service.UpdateTaskRequest) (*models.TaskView, error)
	Delete(ctx context.Context, teacherID, id string) error
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.TaskView, error)
	List(ctx context.Context, claims *models.JWTClaims, filter models.TaskFilter) ([]models.TaskView, *models.Pagination, error)
	Complete(ctx context.Context, studentID, taskID string, req service.CompleteTaskRequest) (*models.CompletionResult, error)
}

type extensionRequester interface {
	Request(ctx context.Context, studentID, taskID string, req service.RequestExtensionRequest) (*models.ExtensionRequest, error)
}

// TaskHandler exposes task lifecycle endpoints.
type TaskHandler struct {
	tasks      taskService
	extensions extensionRequester
	loc        *time.Location
}

// NewTaskHandler constructs TaskHandler. Date filters are read in loc.
func NewTaskHandler(tasks taskService, extensions extensionRequester, loc *time.Location) *TaskHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TaskHandler{tasks: tasks, extensions: extensions, loc: loc}
}

// List godoc
// @Summary List tasks
// @Description Teachers see tasks they assigned, students their own, parents their child's
// @Tags Tasks
// @Produce json
// @Param student_id query string false "Student"
// @Param subject_id query string false "Subject"
// @Param status query string false "pending, completed or overdue"
// @Param from query string false "Due on or after this day (YYYY-MM-DD)"
// @Param to query string false "Due on or before this day, inclusive (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	filter := models.TaskFilter{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		SubjectID: strings.TrimSpace(c.Query("subject_id")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		switch models.TaskStatus(status) {
		case models.TaskStatusPending, models.TaskStatusCompleted, models.TaskStatusOverdue:
			filter.Status = models.TaskStatus(status)
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be pending, completed or overdue"))
			return
		}
	}
	var err error
	if filter.From, err = h.parseDateQuery(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = h.parseDateQuery(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	tasks, pagination, err := h.tasks.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, pagination)
}

// Get godoc
// @Summary Get task detail
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Create godoc
// @Summary Assign task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body service.CreateTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// Update godoc
// @Summary Update pending task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body service.UpdateTaskRequest true "Task payload"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Delete godoc
// @Summary Delete task
// @Tags Tasks
// @Param id path string true "Task ID"
// @Success 204
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Complete task
// @Description Marks the task completed. Solving tasks need correct, wrong and blank counts.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body service.CompleteTaskRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CompleteTaskRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	result, err := h.tasks.Complete(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RequestExtension godoc
// @Summary Request extension
// @Description Students may ask for more days on an overdue task
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body service.RequestExtensionRequest true "Extension payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tasks/{id}/extension-requests [post]
func (h *TaskHandler) RequestExtension(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RequestExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.extensions.Request(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

func (h *TaskHandler) parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, h.loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must use YYYY-MM-DD")
	}
	return &parsed, nil
}
