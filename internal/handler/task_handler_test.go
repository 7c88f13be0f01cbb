package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/internal/service"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type fakeTaskSrv struct {
	completeErr  error
	lastComplete service.CompleteTaskRequest
	lastStudent  string
	lastFilter   models.TaskFilter
	lastExtReq   service.RequestExtensionRequest
}

func (f *fakeTaskSrv) Create(context.Context, string, service.CreateTaskRequest) (*models.TaskView, error) {
	return &models.TaskView{}, nil
}

func (f *fakeTaskSrv) Update(context.Context, string, string, service.UpdateTaskRequest) (*models.TaskView, error) {
	return &models.TaskView{}, nil
}

func (f *fakeTaskSrv) Delete(context.Context, string, string) error { return nil }

func (f *fakeTaskSrv) Get(context.Context, *models.JWTClaims, string) (*models.TaskView, error) {
	return &models.TaskView{}, nil
}

func (f *fakeTaskSrv) List(_ context.Context, _ *models.JWTClaims, filter models.TaskFilter) ([]models.TaskView, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.TaskView{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeTaskSrv) Complete(_ context.Context, studentID, taskID string, req service.CompleteTaskRequest) (*models.CompletionResult, error) {
	f.lastStudent = studentID
	f.lastComplete = req
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &models.CompletionResult{Task: models.Task{ID: taskID, Status: models.TaskStatusCompleted}, Message: "task completed"}, nil
}

func (f *fakeTaskSrv) Request(_ context.Context, studentID, taskID string, req service.RequestExtensionRequest) (*models.ExtensionRequest, error) {
	f.lastExtReq = req
	return &models.ExtensionRequest{TaskID: taskID, StudentID: studentID, RequestedDays: req.RequestedDays}, nil
}

var studentClaims = &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}

func TestTaskHandlerCompletePassesCountsAndClientInfo(t *testing.T) {
	srv := &fakeTaskSrv{}
	handler := NewTaskHandler(srv, srv, nil)
	c, rec := newTestContext(http.MethodPost, "/tasks/task-1/complete", `{"correct_answers":10,"wrong_answers":4,"blank_answers":0}`, studentClaims)
	c.Request.Header.Set("User-Agent", "tutor-app/1.0")
	c.Params = append(c.Params, ginParam("id", "task-1"))

	handler.Complete(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-1", srv.lastStudent)
	require.NotNil(t, srv.lastComplete.CorrectAnswers)
	assert.Equal(t, 10, *srv.lastComplete.CorrectAnswers)
	assert.Equal(t, 4, *srv.lastComplete.WrongAnswers)
	assert.Equal(t, "tutor-app/1.0", srv.lastComplete.UserAgent)
	assert.NotEmpty(t, srv.lastComplete.IP)
	assert.Equal(t, "task-1", decodeEnvelope(t, rec).Data["task"].(map[string]interface{})["id"])
}

func TestTaskHandlerCompleteWithoutBody(t *testing.T) {
	srv := &fakeTaskSrv{}
	handler := NewTaskHandler(srv, srv, nil)
	c, rec := newTestContext(http.MethodPost, "/tasks/task-1/complete", "", studentClaims)
	c.Params = append(c.Params, ginParam("id", "task-1"))

	handler.Complete(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, srv.lastComplete.CorrectAnswers)
}

func TestTaskHandlerCompleteConflict(t *testing.T) {
	srv := &fakeTaskSrv{completeErr: appErrors.Clone(appErrors.ErrAlreadyCompleted, "task already completed")}
	handler := NewTaskHandler(srv, srv, nil)
	c, rec := newTestContext(http.MethodPost, "/tasks/task-1/complete", "", studentClaims)

	handler.Complete(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ALREADY_COMPLETED", envelope.Error.Code)
}

func TestTaskHandlerCompleteRejectsMalformedJSON(t *testing.T) {
	srv := &fakeTaskSrv{}
	handler := NewTaskHandler(srv, srv, nil)
	c, rec := newTestContext(http.MethodPost, "/tasks/task-1/complete", `{"correct_answers":"ten"}`, studentClaims)

	handler.Complete(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.lastStudent)
}

func TestTaskHandlerListParsesFilters(t *testing.T) {
	srv := &fakeTaskSrv{}
	handler := NewTaskHandler(srv, srv, nil)
	c, rec := newTestContext(http.MethodGet, "/tasks?status=overdue&from=2024-05-01&to=2024-05-31&page=2&limit=5", "", studentClaims)

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TaskStatusOverdue, srv.lastFilter.Status)
	require.NotNil(t, srv.lastFilter.From)
	assert.Equal(t, "2024-05-01", srv.lastFilter.From.Format("2006-01-02"))
	assert.Equal(t, "2024-05-31", srv.lastFilter.To.Format("2006-01-02"))
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 5, srv.lastFilter.PageSize)
}

func TestTaskHandlerListRejectsBadFilters(t *testing.T) {
	for _, target := range []string{"/tasks?status=done", "/tasks?from=01-05-2024"} {
		srv := &fakeTaskSrv{}
		handler := NewTaskHandler(srv, srv, nil)
		c, rec := newTestContext(http.MethodGet, target, "", studentClaims)

		handler.List(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestTaskHandlerRequestExtension(t *testing.T) {
	srv := &fakeTaskSrv{}
	handler := NewTaskHandler(srv, srv, nil)
	c, rec := newTestContext(http.MethodPost, "/tasks/task-1/extension-requests", `{"reason":"sick","requested_days":3}`, studentClaims)
	c.Params = append(c.Params, ginParam("id", "task-1"))

	handler.RequestExtension(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, srv.lastExtReq.RequestedDays)
}
