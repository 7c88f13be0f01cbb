package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type questionRepository interface {
	Create(ctx context.Context, q *models.Question) error
	FindByID(ctx context.Context, id string) (*models.Question, error)
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error)
	ListResponses(ctx context.Context, questionID string) ([]models.QuestionResponse, error)
	AddResponse(ctx context.Context, resp *models.QuestionResponse, status models.QuestionStatus) error
}

// AskQuestionRequest is a student's new question.
type AskQuestionRequest struct {
	Title     string  `json:"title" validate:"required,max=255"`
	Content   string  `json:"content" validate:"required,max=5000"`
	SubjectID *string `json:"subject_id" validate:"omitempty,uuid"`
}

// RespondQuestionRequest is a reply in a thread.
type RespondQuestionRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// QuestionService manages question threads between students and their teacher.
type QuestionService struct {
	repo       questionRepository
	access     *AccessPolicy
	dashboards dashboardInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(repo questionRepository, access *AccessPolicy, dashboards dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *QuestionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{repo: repo, access: access, dashboards: dashboards, validator: validate, logger: logger}
}

// Ask posts a question addressed to the student's own teacher.
func (s *QuestionService) Ask(ctx context.Context, studentID string, req AskQuestionRequest) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	teacherID, err := s.access.TeacherOf(ctx, studentID)
	if err != nil {
		return nil, err
	}
	question := &models.Question{
		StudentID: studentID,
		TeacherID: teacherID,
		SubjectID: req.SubjectID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
	}
	if err := s.repo.Create(ctx, question); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create question")
	}
	s.invalidate(ctx, teacherID, studentID)
	return question, nil
}

// List returns the questions the caller takes part in.
func (s *QuestionService) List(ctx context.Context, claims *models.JWTClaims, filter models.QuestionFilter) ([]models.Question, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleTeacher:
		filter.TeacherID = claims.UserID
	case models.RoleStudent:
		filter.StudentID = claims.UserID
	case models.RoleParent:
		studentID, err := s.access.LinkedStudent(ctx, claims.UserID)
		if err != nil {
			return nil, nil, err
		}
		filter.StudentID = studentID
	}
	questions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	return questions, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a question with its responses in posting order.
func (s *QuestionService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.QuestionThread, error) {
	question, err := s.findVisible(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	responses, err := s.repo.ListResponses(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responses")
	}
	if responses == nil {
		responses = []models.QuestionResponse{}
	}
	return &models.QuestionThread{Question: *question, Responses: responses}, nil
}

// Respond adds a reply. A teacher reply marks the question answered; a student follow-up
// reopens it.
func (s *QuestionService) Respond(ctx context.Context, claims *models.JWTClaims, id string, req RespondQuestionRequest) (*models.QuestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}
	question, err := s.findVisible(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	var status models.QuestionStatus
	switch {
	case claims.Role == models.RoleTeacher && question.TeacherID == claims.UserID:
		status = models.QuestionAnswered
	case claims.Role == models.RoleStudent && question.StudentID == claims.UserID:
		status = models.QuestionOpen
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the student and their teacher can reply")
	}
	response := &models.QuestionResponse{
		QuestionID: question.ID,
		AuthorID:   claims.UserID,
		AuthorRole: claims.Role,
		AuthorName: claims.FullName,
		Content:    req.Content,
	}
	if err := s.repo.AddResponse(ctx, response, status); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to add response")
	}
	s.invalidate(ctx, question.TeacherID, question.StudentID)
	return response, nil
}

func (s *QuestionService) findVisible(ctx context.Context, claims *models.JWTClaims, id string) (*models.Question, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	question, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	switch claims.Role {
	case models.RoleAdmin:
		return question, nil
	case models.RoleTeacher:
		if question.TeacherID == claims.UserID {
			return question, nil
		}
	case models.RoleStudent:
		if question.StudentID == claims.UserID {
			return question, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
}

func (s *QuestionService) invalidate(ctx context.Context, teacherID, studentID string) {
	if s.dashboards != nil {
		s.dashboards.InvalidateDashboards(ctx, teacherID, studentID)
	}
}
