package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type routineRepository interface {
	Create(ctx context.Context, routine *models.RoutineTask) error
	Update(ctx context.Context, routine *models.RoutineTask) error
	Delete(ctx context.Context, teacherID, id string) error
	FindByID(ctx context.Context, id string) (*models.RoutineTask, error)
	List(ctx context.Context, teacherID string) ([]models.RoutineTask, error)
	ListDue(ctx context.Context, match models.RoutineMatch) ([]models.RoutineTask, error)
	Materialize(ctx context.Context, routine models.RoutineTask, dayStart, dayEnd time.Time, tasks []models.Task) (int, bool, error)
}

// RoutineRequest is the payload for creating or replacing a routine.
type RoutineRequest struct {
	Name       string                  `json:"name" validate:"required,max=255"`
	SubjectID  *string                 `json:"subject_id" validate:"omitempty,uuid"`
	Type       string                  `json:"type" validate:"required,max=50"`
	TestCount  *int                    `json:"test_count" validate:"omitempty,min=1"`
	Frequency  models.RoutineFrequency `json:"frequency" validate:"required,oneof=weekly monthly"`
	DayOfWeek  *int                    `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	DayOfMonth *int                    `json:"day_of_month" validate:"omitempty,min=1,max=31"`
	Time       string                  `json:"time" validate:"required,len=5"`
	IsActive   *bool                   `json:"is_active"`
	StudentIDs []string                `json:"student_ids" validate:"required,min=1,dive,uuid"`
}

// RoutineConfig tunes materialisation.
type RoutineConfig struct {
	DefaultDuration time.Duration
	MatchMonthly    bool
	Location        *time.Location
}

// RoutineService manages routine templates and materialises them into daily tasks.
type RoutineService struct {
	repo       routineRepository
	access     *AccessPolicy
	audit      auditRecorder
	dashboards dashboardInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        RoutineConfig
	now        func() time.Time
}

// NewRoutineService constructs a RoutineService.
func NewRoutineService(repo routineRepository, access *AccessPolicy, audit auditRecorder, dashboards dashboardInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg RoutineConfig) *RoutineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &RoutineService{
		repo:       repo,
		access:     access,
		audit:      audit,
		dashboards: dashboards,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Create stores a routine for the teacher's own students.
func (s *RoutineService) Create(ctx context.Context, teacherID string, req RoutineRequest) (*models.RoutineTask, error) {
	routine, err := s.buildRoutine(ctx, teacherID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, routine); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to create routine")
	}
	return routine, nil
}

// Update replaces a routine owned by the teacher. Setting is_active toggles it.
func (s *RoutineService) Update(ctx context.Context, teacherID, id string, req RoutineRequest) (*models.RoutineTask, error) {
	existing, err := s.findOwned(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	routine, err := s.buildRoutine(ctx, teacherID, req)
	if err != nil {
		return nil, err
	}
	routine.ID = existing.ID
	routine.CreatedAt = existing.CreatedAt
	if req.IsActive == nil {
		routine.IsActive = existing.IsActive
	}
	if err := s.repo.Update(ctx, routine); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "routine not found")
		}
		return nil, appErrors.FromDatabase(err, "failed to update routine")
	}
	return routine, nil
}

// Delete removes a routine owned by the teacher. Tasks it already created are kept.
func (s *RoutineService) Delete(ctx context.Context, teacherID, id string) error {
	if err := s.repo.Delete(ctx, teacherID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "routine not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete routine")
	}
	return nil
}

// List returns the caller's routines; admins see all of them.
func (s *RoutineService) List(ctx context.Context, claims *models.JWTClaims) ([]models.RoutineTask, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	teacherID := claims.UserID
	if claims.Role == models.RoleAdmin {
		teacherID = ""
	}
	routines, err := s.repo.List(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routines")
	}
	return routines, nil
}

// Sweep materialises today's tasks for every active routine that matches the day. Each routine
// runs in its own transaction and a failing routine does not stop the others. Running it twice
// on the same day creates nothing the second time. An empty teacherID sweeps every teacher.
func (s *RoutineService) Sweep(ctx context.Context, actorID, teacherID string) (*models.SweepResult, error) {
	started := time.Now()
	today := s.now().In(s.cfg.Location)
	dayStart, dayEnd := dayBounds(today, s.cfg.Location)

	routines, err := s.repo.ListDue(ctx, models.RoutineMatch{
		Weekday:      int(today.Weekday()),
		DayOfMonth:   today.Day(),
		MatchMonthly: s.cfg.MatchMonthly,
		TeacherID:    teacherID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load due routines")
	}

	result := &models.SweepResult{
		Date:     dayStart.Format("2006-01-02"),
		Matched:  len(routines),
		Outcomes: make([]models.RoutineOutcome, 0, len(routines)),
	}
	for _, routine := range routines {
		outcome := models.RoutineOutcome{RoutineID: routine.ID, Name: routine.Name}
		tasks, err := s.tasksFor(routine, dayStart)
		if err == nil {
			outcome.Created, outcome.Skipped, err = s.repo.Materialize(ctx, routine, dayStart, dayEnd, tasks)
		}
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
			s.logger.Error("routine materialisation failed",
				zap.String("routine_id", routine.ID),
				zap.String("teacher_id", routine.TeacherID),
				zap.Error(err))
		} else if outcome.Created > 0 {
			result.Created += outcome.Created
			for _, studentID := range routine.StudentIDs {
				s.invalidate(ctx, routine.TeacherID, studentID)
			}
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	s.metrics.RecordRoutineSweep(result.Created, result.Failed, time.Since(started))
	s.logger.Info("routine sweep finished",
		zap.String("date", result.Date),
		zap.Int("matched", result.Matched),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed))
	s.recordAudit(ctx, actorID, result)
	return result, nil
}

// tasksFor builds one pending task per attached student, starting at the routine's time.
func (s *RoutineService) tasksFor(routine models.RoutineTask, dayStart time.Time) ([]models.Task, error) {
	clock, err := time.Parse("15:04", routine.Time)
	if err != nil {
		return nil, fmt.Errorf("routine %s has invalid time %q", routine.ID, routine.Time)
	}
	start := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), clock.Hour(), clock.Minute(), 0, 0, s.cfg.Location)
	end := start.Add(s.cfg.DefaultDuration)
	tasks := make([]models.Task, 0, len(routine.StudentIDs))
	for _, studentID := range routine.StudentIDs {
		tasks = append(tasks, models.Task{
			TeacherID:   routine.TeacherID,
			StudentID:   studentID,
			SubjectID:   routine.SubjectID,
			Title:       routine.Name,
			Description: routine.Name,
			Type:        routine.Type,
			TestCount:   routine.TestCount,
			StartDate:   start,
			EndDate:     end,
			Status:      models.TaskStatusPending,
		})
	}
	return tasks, nil
}

func (s *RoutineService) buildRoutine(ctx context.Context, teacherID string, req RoutineRequest) (*models.RoutineTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid routine payload")
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time must be HH:MM")
	}
	routine := &models.RoutineTask{
		TeacherID:  teacherID,
		SubjectID:  req.SubjectID,
		Name:       strings.TrimSpace(req.Name),
		Type:       strings.TrimSpace(req.Type),
		TestCount:  req.TestCount,
		Frequency:  req.Frequency,
		Time:       req.Time,
		IsActive:   true,
		StudentIDs: dedupe(req.StudentIDs),
	}
	switch req.Frequency {
	case models.FrequencyWeekly:
		if req.DayOfWeek == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week is required for weekly routines")
		}
		routine.DayOfWeek = req.DayOfWeek
	case models.FrequencyMonthly:
		if req.DayOfMonth == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_month is required for monthly routines")
		}
		routine.DayOfMonth = req.DayOfMonth
	}
	if routine.Type == models.TaskTypeTestSolving && routine.TestCount == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "test_count is required for test-solving routines")
	}
	if req.IsActive != nil {
		routine.IsActive = *req.IsActive
	}
	if err := s.access.RequireOwnedStudents(ctx, teacherID, routine.StudentIDs); err != nil {
		return nil, err
	}
	return routine, nil
}

func (s *RoutineService) findOwned(ctx context.Context, teacherID, id string) (*models.RoutineTask, error) {
	routine, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "routine not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load routine")
	}
	if routine.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "routine not found")
	}
	return routine, nil
}

func (s *RoutineService) recordAudit(ctx context.Context, actorID string, result *models.SweepResult) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"date":    result.Date,
		"matched": result.Matched,
		"created": result.Created,
		"failed":  result.Failed,
	})
	entry := &models.AuditLog{Action: models.AuditActionRoutineSweep, Resource: "routine_task", NewValues: payload}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record sweep audit log", zap.Error(err))
	}
}

func (s *RoutineService) invalidate(ctx context.Context, teacherID, studentID string) {
	if s.dashboards != nil {
		s.dashboards.InvalidateDashboards(ctx, teacherID, studentID)
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
