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

type classRepository interface {
	List(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

type subjectRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error)
	CreateTopic(ctx context.Context, topic *models.Topic) error
}

// CreateClassRequest is the payload for a new class.
type CreateClassRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// CreateSubjectRequest is the payload for a new subject in a class.
type CreateSubjectRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateTopicRequest is the payload for a new topic in a subject.
type CreateTopicRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Position int    `json:"position" validate:"omitempty,min=1"`
}

// CurriculumService manages the class, subject and topic tree.
type CurriculumService struct {
	classes   classRepository
	subjects  subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCurriculumService constructs a CurriculumService.
func NewCurriculumService(classes classRepository, subjects subjectRepository, validate *validator.Validate, logger *zap.Logger) *CurriculumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{classes: classes, subjects: subjects, validator: validate, logger: logger}
}

// ListClasses returns every class.
func (s *CurriculumService) ListClasses(ctx context.Context) ([]models.Class, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// CreateClass adds a class. Names are unique.
func (s *CurriculumService) CreateClass(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create class")
	}
	return class, nil
}

// ListSubjects returns the subjects of a class.
func (s *CurriculumService) ListSubjects(ctx context.Context, classID string) ([]models.Subject, error) {
	if err := s.ensureClass(ctx, classID); err != nil {
		return nil, err
	}
	subjects, err := s.subjects.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// CreateSubject adds a subject to a class.
func (s *CurriculumService) CreateSubject(ctx context.Context, classID string, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	if err := s.ensureClass(ctx, classID); err != nil {
		return nil, err
	}
	subject := &models.Subject{ClassID: classID, Name: strings.TrimSpace(req.Name)}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create subject")
	}
	return subject, nil
}

// ListTopics returns the ordered topics of a subject.
func (s *CurriculumService) ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error) {
	if err := s.ensureSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	topics, err := s.subjects.ListTopics(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list topics")
	}
	return topics, nil
}

// CreateTopic appends a topic to a subject.
func (s *CurriculumService) CreateTopic(ctx context.Context, subjectID string, req CreateTopicRequest) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid topic payload")
	}
	if err := s.ensureSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	topic := &models.Topic{SubjectID: subjectID, Name: strings.TrimSpace(req.Name), Position: req.Position}
	if err := s.subjects.CreateTopic(ctx, topic); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create topic")
	}
	return topic, nil
}

func (s *CurriculumService) ensureClass(ctx context.Context, id string) error {
	if _, err := s.classes.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}

func (s *CurriculumService) ensureSubject(ctx context.Context, id string) error {
	if _, err := s.subjects.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return nil
}
