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

type studentRepository interface {
	Create(ctx context.Context, user *models.User, student *models.Student) error
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Update(ctx context.Context, id string, upd models.StudentUpdate) error
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	AccountRequest
	ClassID    *string `json:"class_id" validate:"omitempty,uuid"`
	GradeLevel string  `json:"grade_level" validate:"omitempty,max=50"`
	Phone      string  `json:"phone" validate:"omitempty,max=50"`
}

// UpdateStudentRequest edits a student's class, grade or phone.
type UpdateStudentRequest struct {
	ClassID    *string `json:"class_id" validate:"omitempty,uuid"`
	GradeLevel *string `json:"grade_level" validate:"omitempty,max=50"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	classes   classFinder
	emails    emailChecker
	access    *AccessPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, classes classFinder, emails emailChecker, access *AccessPolicy, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, classes: classes, emails: emails, access: access, validator: validate, logger: logger}
}

// List returns students and pagination metadata. Teachers only ever see their own students.
func (s *StudentService) List(ctx context.Context, claims *models.JWTClaims, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if claims != nil && claims.Role == models.RoleTeacher {
		filter.TeacherID = claims.UserID
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information to anyone allowed to view the student.
func (s *StudentService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.StudentDetail, error) {
	if err := s.access.CanViewStudent(ctx, claims, id); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student owned by the acting teacher.
func (s *StudentService) Create(ctx context.Context, teacherID string, req CreateStudentRequest) (*models.StudentDetail, error) {
	req.AccountRequest.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.requireClass(ctx, req.ClassID); err != nil {
		return nil, err
	}
	user, err := newAccount(ctx, s.emails, req.AccountRequest, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	student := &models.Student{
		ID:         user.ID,
		TeacherID:  teacherID,
		ClassID:    req.ClassID,
		GradeLevel: req.GradeLevel,
		Phone:      req.Phone,
	}
	if err := s.repo.Create(ctx, user, student); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("teacher_id", teacherID))
	return &models.StudentDetail{Student: *student, Email: user.Email, FullName: user.FullName, Active: user.Active}, nil
}

// Update edits a student. Teachers may only edit their own students; admins may edit any.
func (s *StudentService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	switch claims.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if err := s.access.RequireOwnedStudent(ctx, claims.UserID, id); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	if err := s.requireClass(ctx, req.ClassID); err != nil {
		return nil, err
	}
	err := s.repo.Update(ctx, id, models.StudentUpdate{ClassID: req.ClassID, GradeLevel: req.GradeLevel, Phone: req.Phone})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, claims, id)
}

func (s *StudentService) requireClass(ctx context.Context, classID *string) error {
	if classID == nil {
		return nil
	}
	_, err := s.classes.FindByID(ctx, *classID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	case err != nil:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}
