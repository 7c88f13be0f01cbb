package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type progressRepository interface {
	AssignSubject(ctx context.Context, studentID, subjectID string) error
	UnassignSubject(ctx context.Context, studentID, subjectID string) error
	ListSubjects(ctx context.Context, studentID string) ([]models.StudentSubject, error)
	IsAssigned(ctx context.Context, studentID, subjectID string) (bool, error)
	UpsertProgress(ctx context.Context, progress *models.StudentProgress) error
	SubjectCounts(ctx context.Context, studentID string) ([]models.SubjectProgressCount, error)
}

type subjectTopicFinder interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindTopic(ctx context.Context, id string) (*models.Topic, error)
}

// AssignSubjectRequest links a subject to a student.
type AssignSubjectRequest struct {
	SubjectID string `json:"subject_id" validate:"required,uuid"`
}

// SetProgressRequest records a topic state for a student.
type SetProgressRequest struct {
	TopicID string                `json:"topic_id" validate:"required,uuid"`
	Status  models.ProgressStatus `json:"status" validate:"required,oneof=pending completed"`
}

// ProgressService tracks subject assignment and topic completion per student.
type ProgressService struct {
	repo      progressRepository
	subjects  subjectTopicFinder
	access    *AccessPolicy
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProgressService constructs a ProgressService.
func NewProgressService(repo progressRepository, subjects subjectTopicFinder, access *AccessPolicy, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{repo: repo, subjects: subjects, access: access, validator: validate, logger: logger, now: time.Now}
}

// AssignSubject assigns a subject to an owned student. Assigning twice is accepted.
func (s *ProgressService) AssignSubject(ctx context.Context, teacherID, studentID string, req AssignSubjectRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if err := s.access.RequireOwnedStudent(ctx, teacherID, studentID); err != nil {
		return err
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if err := s.repo.AssignSubject(ctx, studentID, req.SubjectID); err != nil {
		return appErrors.FromDatabase(err, "failed to assign subject")
	}
	return nil
}

// UnassignSubject removes a subject from an owned student.
func (s *ProgressService) UnassignSubject(ctx context.Context, teacherID, studentID, subjectID string) error {
	if err := s.access.RequireOwnedStudent(ctx, teacherID, studentID); err != nil {
		return err
	}
	if err := s.repo.UnassignSubject(ctx, studentID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not assigned to student")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign subject")
	}
	return nil
}

// ListSubjects returns the subjects assigned to a student the caller may view.
func (s *ProgressService) ListSubjects(ctx context.Context, claims *models.JWTClaims, studentID string) ([]models.StudentSubject, error) {
	if err := s.access.CanViewStudent(ctx, claims, studentID); err != nil {
		return nil, err
	}
	subjects, err := s.repo.ListSubjects(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student subjects")
	}
	return subjects, nil
}

// SetProgress records a topic state. The topic must belong to a subject assigned to the student.
func (s *ProgressService) SetProgress(ctx context.Context, teacherID, studentID string, req SetProgressRequest) (*models.StudentProgress, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	if err := s.access.RequireOwnedStudent(ctx, teacherID, studentID); err != nil {
		return nil, err
	}
	topic, err := s.subjects.FindTopic(ctx, req.TopicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}
	assigned, err := s.repo.IsAssigned(ctx, studentID, topic.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject assignment")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrValidation, "topic subject is not assigned to student")
	}
	progress := &models.StudentProgress{StudentID: studentID, TopicID: topic.ID, Status: req.Status}
	if req.Status == models.ProgressCompleted {
		completedAt := s.now().UTC()
		progress.CompletedAt = &completedAt
	}
	if err := s.repo.UpsertProgress(ctx, progress); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to save progress")
	}
	return progress, nil
}

// Report builds the per-subject and overall completion percentages for a student.
func (s *ProgressService) Report(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.ProgressReport, error) {
	if err := s.access.CanViewStudent(ctx, claims, studentID); err != nil {
		return nil, err
	}
	counts, err := s.repo.SubjectCounts(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute progress")
	}
	return BuildProgressReport(studentID, counts), nil
}

// BuildProgressReport turns raw topic counts into rounded percentages. A subject without topics
// reports 0%.
func BuildProgressReport(studentID string, counts []models.SubjectProgressCount) *models.ProgressReport {
	report := &models.ProgressReport{StudentID: studentID, Subjects: make([]models.SubjectProgress, 0, len(counts))}
	for _, c := range counts {
		report.Subjects = append(report.Subjects, models.SubjectProgress{
			SubjectProgressCount: c,
			Percentage:           percentage(c.Completed, c.TotalTopics),
		})
		report.TotalTopics += c.TotalTopics
		report.CompletedTopics += c.Completed
	}
	report.OverallPercentage = percentage(report.CompletedTopics, report.TotalTopics)
	return report
}

func percentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)*100/float64(total)*100) / 100
}
