package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type parentRepository interface {
	Create(ctx context.Context, user *models.User, parent *models.Parent) error
	List(ctx context.Context, filter models.ParentFilter) ([]models.ParentDetail, int, error)
}

// CreateParentRequest holds payload for creating parents.
type CreateParentRequest struct {
	AccountRequest
	StudentID *string `json:"student_id" validate:"omitempty,uuid"`
	Phone     string  `json:"phone" validate:"omitempty,max=50"`
}

// ParentService handles parent accounts.
type ParentService struct {
	repo      parentRepository
	emails    emailChecker
	access    *AccessPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParentService constructs a ParentService.
func NewParentService(repo parentRepository, emails emailChecker, access *AccessPolicy, validate *validator.Validate, logger *zap.Logger) *ParentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParentService{repo: repo, emails: emails, access: access, validator: validate, logger: logger}
}

// List returns parents; teachers see only the parents they registered.
func (s *ParentService) List(ctx context.Context, claims *models.JWTClaims, filter models.ParentFilter) ([]models.ParentDetail, *models.Pagination, error) {
	if claims != nil && claims.Role == models.RoleTeacher {
		filter.TeacherID = claims.UserID
	}
	parents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list parents")
	}
	return parents, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Create registers a parent. A linked student must belong to the acting teacher.
func (s *ParentService) Create(ctx context.Context, teacherID string, req CreateParentRequest) (*models.ParentDetail, error) {
	req.AccountRequest.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid parent payload")
	}
	if req.StudentID != nil {
		if err := s.access.RequireOwnedStudent(ctx, teacherID, *req.StudentID); err != nil {
			return nil, err
		}
	}
	user, err := newAccount(ctx, s.emails, req.AccountRequest, models.RoleParent)
	if err != nil {
		return nil, err
	}
	parent := &models.Parent{ID: user.ID, TeacherID: teacherID, StudentID: req.StudentID, Phone: req.Phone}
	if err := s.repo.Create(ctx, user, parent); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create parent")
	}
	s.logger.Info("parent created", zap.String("parent_id", parent.ID), zap.String("teacher_id", teacherID))
	return &models.ParentDetail{Parent: *parent, Email: user.Email, FullName: user.FullName, Active: user.Active}, nil
}
