package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type teacherRepository interface {
	Create(ctx context.Context, user *models.User, teacher *models.Teacher) error
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	Update(ctx context.Context, id string, upd models.TeacherUpdate) error
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	AccountRequest
	Phone  string `json:"phone" validate:"omitempty,max=50"`
	Branch string `json:"branch" validate:"omitempty,max=255"`
}

// UpdateTeacherRequest changes a teacher profile. Setting active to false locks the account out.
type UpdateTeacherRequest struct {
	Phone  *string `json:"phone" validate:"omitempty,max=50"`
	Branch *string `json:"branch" validate:"omitempty,max=255"`
	Active *bool   `json:"active"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	emails    emailChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, emails emailChecker, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, emails: emails, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a teacher account and profile.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.TeacherDetail, error) {
	req.AccountRequest.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	user, err := newAccount(ctx, s.emails, req.AccountRequest, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	teacher := &models.Teacher{ID: user.ID, Phone: req.Phone, Branch: req.Branch}
	if err := s.repo.Create(ctx, user, teacher); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create teacher")
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID))
	return &models.TeacherDetail{Teacher: *teacher, Email: user.Email, FullName: user.FullName, Active: user.Active}, nil
}

// Update edits a teacher profile and returns the fresh detail.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if req.Phone == nil && req.Branch == nil && req.Active == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	err := s.repo.Update(ctx, id, models.TeacherUpdate{Phone: req.Phone, Branch: req.Branch, Active: req.Active})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	if req.Active != nil && !*req.Active {
		s.logger.Info("teacher deactivated", zap.String("teacher_id", id))
	}
	return s.Get(ctx, id)
}
