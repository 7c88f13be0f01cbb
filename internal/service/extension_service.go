package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type extensionRepository interface {
	Create(ctx context.Context, req *models.ExtensionRequest) error
	FindDetail(ctx context.Context, id string) (*models.ExtensionRequestDetail, error)
	HasPending(ctx context.Context, taskID, studentID string) (bool, error)
	List(ctx context.Context, filter models.ExtensionFilter) ([]models.ExtensionRequestDetail, int, error)
	Reject(ctx context.Context, id string, note *string, respondedAt time.Time) error
	Approve(ctx context.Context, approval models.ExtensionApproval) (time.Time, error)
}

type taskFinder interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
}

// Extension actions.
const (
	ExtensionActionApprove = "approve"
	ExtensionActionReject  = "reject"
)

// RequestExtensionRequest is a student's appeal for more time.
type RequestExtensionRequest struct {
	Reason        string `json:"reason" validate:"required,max=2000"`
	RequestedDays int    `json:"requested_days" validate:"required,min=1,max=365"`
}

// RespondExtensionRequest is the teacher's decision on a request.
type RespondExtensionRequest struct {
	Action       string  `json:"action" validate:"required,oneof=approve reject"`
	ApprovedDays *int    `json:"approved_days" validate:"omitempty,min=1,max=365"`
	ResponseNote *string `json:"response_note" validate:"omitempty,max=2000"`
	IP           string  `json:"-"`
	UserAgent    string  `json:"-"`
}

// ExtensionService handles extension requests on overdue tasks.
type ExtensionService struct {
	repo       extensionRepository
	tasks      taskFinder
	audit      auditRecorder
	dashboards dashboardInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

// NewExtensionService constructs an ExtensionService.
func NewExtensionService(repo extensionRepository, tasks taskFinder, audit auditRecorder, dashboards dashboardInvalidator, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *ExtensionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &ExtensionService{repo: repo, tasks: tasks, audit: audit, dashboards: dashboards, validator: validate, logger: logger, loc: loc, now: time.Now}
}

// Request files an extension request for an overdue task owned by the student.
func (s *ExtensionService) Request(ctx context.Context, studentID, taskID string, req RequestExtensionRequest) (*models.ExtensionRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid extension payload")
	}
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if task.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
	}
	overdue := task.Status == models.TaskStatusOverdue ||
		(task.Status == models.TaskStatusPending && IsLate(s.now(), task.EndDate, s.loc))
	if !overdue {
		return nil, appErrors.Clone(appErrors.ErrValidation, "extensions can only be requested for overdue tasks")
	}
	pending, err := s.repo.HasPending(ctx, taskID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending extension request already exists")
	}
	request := &models.ExtensionRequest{TaskID: taskID, StudentID: studentID, Reason: req.Reason, RequestedDays: req.RequestedDays}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create extension request")
	}
	s.invalidate(ctx, task.TeacherID, studentID)
	return request, nil
}

// Respond approves or rejects a pending request on one of the teacher's tasks. Approval moves
// the task's end date forward atomically with the request update.
func (s *ExtensionService) Respond(ctx context.Context, teacherID, requestID string, req RespondExtensionRequest) (*models.ExtensionRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}
	if req.Action == ExtensionActionApprove && req.ApprovedDays == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approved_days is required to approve")
	}
	detail, err := s.repo.FindDetail(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "extension request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load extension request")
	}
	if detail.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "extension request not found")
	}
	if detail.Status != models.ExtensionPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "extension request already processed")
	}

	respondedAt := s.now().UTC()
	switch req.Action {
	case ExtensionActionReject:
		err = s.repo.Reject(ctx, requestID, req.ResponseNote, respondedAt)
		detail.Status = models.ExtensionRejected
	case ExtensionActionApprove:
		var newDue time.Time
		newDue, err = s.repo.Approve(ctx, models.ExtensionApproval{
			RequestID:       requestID,
			TaskID:          detail.TaskID,
			ApprovedDays:    *req.ApprovedDays,
			PreviousDueDate: detail.TaskEndDate,
			NewDueDate:      ExtendDue(detail.TaskEndDate, *req.ApprovedDays, s.loc),
			ResponseNote:    req.ResponseNote,
			RespondedAt:     respondedAt,
		})
		if err == nil {
			detail.Status = models.ExtensionApproved
			detail.ApprovedDays = req.ApprovedDays
			detail.NewDueDate = &newDue
			detail.TaskEndDate = newDue
		}
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "extension request already processed")
		}
		return nil, appErrors.FromDatabase(err, "failed to respond to extension request")
	}
	detail.ResponseNote = req.ResponseNote
	detail.RespondedAt = &respondedAt

	s.recordAudit(ctx, teacherID, detail, req)
	s.invalidate(ctx, teacherID, detail.StudentID)
	return detail, nil
}

// List returns requests visible to the caller: teachers see requests on their tasks and
// students see their own.
func (s *ExtensionService) List(ctx context.Context, claims *models.JWTClaims, filter models.ExtensionFilter) ([]models.ExtensionRequestDetail, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleTeacher:
		filter.TeacherID = claims.UserID
	case models.RoleStudent:
		filter.StudentID = claims.UserID
	case models.RoleAdmin:
	default:
		return nil, nil, appErrors.ErrForbidden
	}
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list extension requests")
	}
	return requests, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *ExtensionService) recordAudit(ctx context.Context, teacherID string, detail *models.ExtensionRequestDetail, req RespondExtensionRequest) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"status":        detail.Status,
		"approved_days": detail.ApprovedDays,
		"new_due_date":  detail.NewDueDate,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &teacherID,
		Action:     models.AuditActionExtension,
		Resource:   "extension_request",
		ResourceID: &detail.ID,
		OldValues:  []byte(`{"status":"pending"}`),
		NewValues:  payload,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record extension audit log", zap.String("request_id", detail.ID), zap.Error(err))
	}
}

func (s *ExtensionService) invalidate(ctx context.Context, teacherID, studentID string) {
	if s.dashboards != nil {
		s.dashboards.InvalidateDashboards(ctx, teacherID, studentID)
	}
}
