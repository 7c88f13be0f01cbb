package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type taskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, teacherID, id string) error
	Complete(ctx context.Context, completion models.TaskCompletion, result *models.TestResult) (*models.Task, error)
}

type pendingExtensionChecker interface {
	HasPending(ctx context.Context, taskID, studentID string) (bool, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type dashboardInvalidator interface {
	InvalidateDashboards(ctx context.Context, teacherID, studentID string)
}

// CreateTaskRequest is the payload a teacher sends to assign a task.
type CreateTaskRequest struct {
	StudentID   string  `json:"student_id" validate:"required,uuid"`
	SubjectID   *string `json:"subject_id" validate:"omitempty,uuid"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"omitempty,max=5000"`
	Type        string  `json:"type" validate:"required,max=50"`
	TestCount   *int    `json:"test_count" validate:"omitempty,min=1"`
	StartDate   string  `json:"start_date" validate:"required"`
	EndDate     string  `json:"end_date" validate:"required"`
}

// UpdateTaskRequest replaces the editable fields of a pending task.
type UpdateTaskRequest struct {
	SubjectID   *string `json:"subject_id" validate:"omitempty,uuid"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"omitempty,max=5000"`
	Type        string  `json:"type" validate:"required,max=50"`
	TestCount   *int    `json:"test_count" validate:"omitempty,min=1"`
	StartDate   string  `json:"start_date" validate:"required"`
	EndDate     string  `json:"end_date" validate:"required"`
}

// CompleteTaskRequest carries the student's completion data. Counts are validated by the
// service so that the failure order stays presence, sum, sign.
type CompleteTaskRequest struct {
	CompletionNote *string `json:"completion_note" validate:"omitempty,max=2000"`
	CorrectAnswers *int    `json:"correct_answers"`
	WrongAnswers   *int    `json:"wrong_answers"`
	BlankAnswers   *int    `json:"blank_answers"`
	IP             string  `json:"-"`
	UserAgent      string  `json:"-"`
}

// TaskService implements the task lifecycle.
type TaskService struct {
	repo       taskRepository
	extensions pendingExtensionChecker
	access     *AccessPolicy
	audit      auditRecorder
	dashboards dashboardInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

// TaskServiceParams groups constructor dependencies.
type TaskServiceParams struct {
	Repo       taskRepository
	Extensions pendingExtensionChecker
	Access     *AccessPolicy
	Audit      auditRecorder
	Dashboards dashboardInvalidator
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Location   *time.Location
}

// NewTaskService constructs a TaskService.
func NewTaskService(params TaskServiceParams) *TaskService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{
		repo:       params.Repo,
		extensions: params.Extensions,
		access:     params.Access,
		audit:      params.Audit,
		dashboards: params.Dashboards,
		metrics:    params.Metrics,
		validator:  validate,
		logger:     logger,
		loc:        loc,
		now:        time.Now,
	}
}

// Create assigns a new pending task to a student owned by the teacher.
func (s *TaskService) Create(ctx context.Context, teacherID string, req CreateTaskRequest) (*models.TaskView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	start, end, err := s.taskWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.Type == models.TaskTypeTestSolving && req.TestCount == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "test_count is required for test-solving tasks")
	}
	if err := s.access.RequireOwnedStudent(ctx, teacherID, req.StudentID); err != nil {
		return nil, err
	}
	task := &models.Task{
		TeacherID:   teacherID,
		StudentID:   req.StudentID,
		SubjectID:   req.SubjectID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        strings.TrimSpace(req.Type),
		TestCount:   req.TestCount,
		StartDate:   start,
		EndDate:     end,
		Status:      models.TaskStatusPending,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create task")
	}
	s.invalidate(ctx, teacherID, task.StudentID)
	return s.view(*task), nil
}

// Update edits a pending task owned by the teacher.
func (s *TaskService) Update(ctx context.Context, teacherID, id string, req UpdateTaskRequest) (*models.TaskView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	start, end, err := s.taskWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.Type == models.TaskTypeTestSolving && req.TestCount == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "test_count is required for test-solving tasks")
	}
	task, err := s.findOwned(ctx, id, func(t *models.Task) bool { return t.TeacherID == teacherID })
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyCompleted, "completed tasks cannot be edited")
	}
	task.SubjectID = req.SubjectID
	task.Title = strings.TrimSpace(req.Title)
	task.Description = req.Description
	task.Type = strings.TrimSpace(req.Type)
	task.TestCount = req.TestCount
	task.StartDate = start
	task.EndDate = end
	if err := s.repo.Update(ctx, task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyCompleted, "completed tasks cannot be edited")
		}
		return nil, appErrors.FromDatabase(err, "failed to update task")
	}
	s.invalidate(ctx, teacherID, task.StudentID)
	return s.view(*task), nil
}

// Delete removes a task owned by the teacher.
func (s *TaskService) Delete(ctx context.Context, teacherID, id string) error {
	task, err := s.findOwned(ctx, id, func(t *models.Task) bool { return t.TeacherID == teacherID })
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, teacherID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	s.invalidate(ctx, teacherID, task.StudentID)
	return nil
}

// Get returns a task visible to the caller.
func (s *TaskService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.TaskView, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	var linked string
	if claims.Role == models.RoleParent {
		studentID, err := s.access.LinkedStudent(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		linked = studentID
	}
	task, err := s.findOwned(ctx, id, func(t *models.Task) bool {
		switch claims.Role {
		case models.RoleAdmin:
			return true
		case models.RoleTeacher:
			return t.TeacherID == claims.UserID
		case models.RoleStudent:
			return t.StudentID == claims.UserID
		case models.RoleParent:
			return t.StudentID == linked
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return s.view(*task), nil
}

// List returns tasks scoped to the caller's role.
func (s *TaskService) List(ctx context.Context, claims *models.JWTClaims, filter models.TaskFilter) ([]models.TaskView, *models.Pagination, error) {
	studentID, teacherID, err := s.access.ScopeStudent(ctx, claims, filter.StudentID)
	if err != nil {
		return nil, nil, err
	}
	filter.StudentID = studentID
	if teacherID != "" {
		filter.TeacherID = teacherID
	}
	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	views := make([]models.TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, *s.view(task))
	}
	return views, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Complete moves a pending task owned by the student to completed or overdue, scores
// test-solving tasks and stores their test result. Only one completion per task can succeed.
func (s *TaskService) Complete(ctx context.Context, studentID, taskID string, req CompleteTaskRequest) (*models.CompletionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}
	task, err := s.findOwned(ctx, taskID, func(t *models.Task) bool { return t.StudentID == studentID })
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyCompleted, "task already completed")
	}

	scored := task.IsTestSolving() && task.TestCount != nil
	if scored {
		if err := ValidateAnswerCounts(*task.TestCount, req.CorrectAnswers, req.WrongAnswers, req.BlankAnswers); err != nil {
			return nil, err
		}
	}

	now := s.now()
	late := IsLate(now, task.EndDate, s.loc)
	completion := models.TaskCompletion{
		TaskID:         task.ID,
		StudentID:      studentID,
		Status:         models.TaskStatusCompleted,
		CompletedAt:    now.UTC(),
		CompletionNote: req.CompletionNote,
		CorrectAnswers: req.CorrectAnswers,
		WrongAnswers:   req.WrongAnswers,
		BlankAnswers:   req.BlankAnswers,
	}
	if late {
		completion.Status = models.TaskStatusOverdue
	}
	if task.IsTestSolving() && req.CorrectAnswers != nil && req.WrongAnswers != nil {
		score := NetScore(*req.CorrectAnswers, *req.WrongAnswers)
		completion.TotalScore = &score
	}

	var result *models.TestResult
	if scored {
		result = &models.TestResult{
			StudentID:      studentID,
			TeacherID:      task.TeacherID,
			SubjectID:      task.SubjectID,
			Title:          task.Title,
			TestCount:      *task.TestCount,
			CorrectAnswers: *req.CorrectAnswers,
			WrongAnswers:   *req.WrongAnswers,
			BlankAnswers:   *req.BlankAnswers,
			NetScore:       *completion.TotalScore,
			Status:         models.TestResultStatusCompleted,
			CompletedAt:    now.UTC(),
		}
	}

	updated, err := s.repo.Complete(ctx, completion, result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyCompleted, "task already completed")
		}
		return nil, appErrors.FromDatabase(err, "failed to complete task")
	}

	out := &models.CompletionResult{Task: *updated, IsOverdue: late, Message: "task completed"}
	if late {
		out.Message = "task completed after the due date"
		pending, err := s.extensions.HasPending(ctx, updated.ID, studentID)
		if err != nil {
			s.logger.Warn("failed to check pending extension requests", zap.String("task_id", updated.ID), zap.Error(err))
		} else {
			out.CanRequestExtension = !pending
		}
	}

	s.metrics.RecordTaskCompletion(string(updated.Status))
	s.recordCompletionAudit(ctx, studentID, updated, req)
	s.invalidate(ctx, updated.TeacherID, studentID)
	return out, nil
}

// IsOverdue derives lateness for display; it never writes status.
func (s *TaskService) IsOverdue(task models.Task) bool {
	if task.Status == models.TaskStatusOverdue {
		return true
	}
	return task.Status == models.TaskStatusPending && IsLate(s.now(), task.EndDate, s.loc)
}

func (s *TaskService) view(task models.Task) *models.TaskView {
	return &models.TaskView{Task: task, IsOverdue: s.IsOverdue(task)}
}

// findOwned loads a task and hides it behind NOT_FOUND when the caller does not own it.
func (s *TaskService) findOwned(ctx context.Context, id string, owns func(*models.Task) bool) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if !owns(task) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
	}
	return task, nil
}

func (s *TaskService) taskWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := parseDate(startRaw, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_date")
	}
	end, err := parseDate(endRaw, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_date")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return start, end, nil
}

func (s *TaskService) recordCompletionAudit(ctx context.Context, studentID string, task *models.Task, req CompleteTaskRequest) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"status":      task.Status,
		"total_score": task.TotalScore,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionTaskComplete,
		Resource:   "task",
		ResourceID: &task.ID,
		OldValues:  []byte(`{"status":"pending"}`),
		NewValues:  payload,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record completion audit log", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func (s *TaskService) invalidate(ctx context.Context, teacherID, studentID string) {
	if s.dashboards != nil {
		s.dashboards.InvalidateDashboards(ctx, teacherID, studentID)
	}
}
