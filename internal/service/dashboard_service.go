package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/dto"
	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

const latestTestsOnDashboard = 5

type taskStatusCounter interface {
	StatusCounts(ctx context.Context, teacherID, studentID string, dayStart time.Time) (*models.TaskStatusCounts, error)
}

type studentCounter interface {
	CountByTeacher(ctx context.Context, teacherID string) (int, error)
}

type pendingExtensionCounter interface {
	CountPending(ctx context.Context, teacherID string) (int, error)
}

type openQuestionCounter interface {
	CountOpen(ctx context.Context, teacherID string) (int, error)
}

type testScoreReader interface {
	AverageNetScore(ctx context.Context, teacherID string) (*float64, error)
	Latest(ctx context.Context, studentID string, limit int) ([]models.TestResultDetail, error)
}

type progressCounter interface {
	SubjectCounts(ctx context.Context, studentID string) ([]models.SubjectProgressCount, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	Location *time.Location
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Tasks      taskStatusCounter
	Students   studentCounter
	Extensions pendingExtensionCounter
	Questions  openQuestionCounter
	Results    testScoreReader
	Progress   progressCounter
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// DashboardService composes the teacher and student dashboards and caches them in Redis.
type DashboardService struct {
	tasks      taskStatusCounter
	students   studentCounter
	extensions pendingExtensionCounter
	questions  openQuestionCounter
	results    testScoreReader
	progress   progressCounter
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		tasks:      params.Tasks,
		students:   params.Students,
		extensions: params.Extensions,
		questions:  params.Questions,
		results:    params.Results,
		progress:   params.Progress,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

func teacherDashboardKey(teacherID string) string { return "dashboard:teacher:" + teacherID }
func studentDashboardKey(studentID string) string { return "dashboard:student:" + studentID }

// Teacher returns the teacher dashboard and whether it was served from cache.
func (s *DashboardService) Teacher(ctx context.Context, teacherID string) (*dto.TeacherDashboardResponse, bool, error) {
	if teacherID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	key := teacherDashboardKey(teacherID)
	var cached dto.TeacherDashboardResponse
	if s.readCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	now := s.now()
	dayStart, _ := dayBounds(now, s.cfg.Location)
	summary := &dto.TeacherDashboardResponse{TeacherID: teacherID, GeneratedAt: now.UTC()}

	counts, err := s.tasks.StatusCounts(ctx, teacherID, "", dayStart)
	if err != nil {
		return nil, false, s.internal(err)
	}
	summary.Tasks = *counts
	if summary.StudentCount, err = s.students.CountByTeacher(ctx, teacherID); err != nil {
		return nil, false, s.internal(err)
	}
	if summary.PendingExtensions, err = s.extensions.CountPending(ctx, teacherID); err != nil {
		return nil, false, s.internal(err)
	}
	if summary.OpenQuestions, err = s.questions.CountOpen(ctx, teacherID); err != nil {
		return nil, false, s.internal(err)
	}
	if summary.AverageNetScore, err = s.results.AverageNetScore(ctx, teacherID); err != nil {
		return nil, false, s.internal(err)
	}

	s.persistCache(ctx, key, summary)
	return summary, false, nil
}

// Student returns the student dashboard and whether it was served from cache.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*dto.StudentDashboardResponse, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	key := studentDashboardKey(studentID)
	var cached dto.StudentDashboardResponse
	if s.readCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	now := s.now()
	dayStart, _ := dayBounds(now, s.cfg.Location)
	summary := &dto.StudentDashboardResponse{StudentID: studentID, GeneratedAt: now.UTC()}

	counts, err := s.tasks.StatusCounts(ctx, "", studentID, dayStart)
	if err != nil {
		return nil, false, s.internal(err)
	}
	summary.Tasks = *counts
	progress, err := s.progress.SubjectCounts(ctx, studentID)
	if err != nil {
		return nil, false, s.internal(err)
	}
	summary.Progress = *BuildProgressReport(studentID, progress)
	latest, err := s.results.Latest(ctx, studentID, latestTestsOnDashboard)
	if err != nil {
		return nil, false, s.internal(err)
	}
	if latest == nil {
		latest = []models.TestResultDetail{}
	}
	summary.LatestTests = latest

	s.persistCache(ctx, key, summary)
	return summary, false, nil
}

// InvalidateDashboards drops the cached dashboards touched by a write. Failures only log: a stale
// entry expires with its TTL.
func (s *DashboardService) InvalidateDashboards(ctx context.Context, teacherID, studentID string) {
	if !s.cache.Enabled() {
		return
	}
	keys := make([]string, 0, 2)
	if teacherID != "" {
		keys = append(keys, teacherDashboardKey(teacherID))
	}
	if studentID != "" {
		keys = append(keys, studentDashboardKey(studentID))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *DashboardService) readCache(ctx context.Context, key string, dest interface{}) bool {
	if !s.cache.Enabled() {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		// a broken cache degrades to a fresh computation
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) internal(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard")
}
