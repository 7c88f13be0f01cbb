package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/export"
)

type testResultRepository interface {
	Create(ctx context.Context, result *models.TestResult) error
	List(ctx context.Context, filter models.TestResultFilter) ([]models.TestResultDetail, int, error)
	ListAll(ctx context.Context, filter models.TestResultFilter) ([]models.TestResultDetail, error)
}

type tableRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
	ExportFormatPDF  = "pdf"
)

// ExportRenderers bundles the renderer for each export format.
type ExportRenderers struct {
	CSV  tableRenderer
	XLSX tableRenderer
	PDF  pdfRenderer
}

// RecordTestResultRequest is a teacher-entered result for a test taken outside a task.
type RecordTestResultRequest struct {
	StudentID       string  `json:"student_id" validate:"required,uuid"`
	SubjectID       *string `json:"subject_id" validate:"omitempty,uuid"`
	Title           string  `json:"title" validate:"required,max=255"`
	TestCount       int     `json:"test_count" validate:"required,min=1"`
	CorrectAnswers  *int    `json:"correct_answers"`
	WrongAnswers    *int    `json:"wrong_answers"`
	BlankAnswers    *int    `json:"blank_answers"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=1"`
	CompletedAt     string  `json:"completed_at"`
}

// ExportFile is a rendered export ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// TestResultService lists, records and exports test results.
type TestResultService struct {
	repo       testResultRepository
	access     *AccessPolicy
	renderers  ExportRenderers
	dashboards dashboardInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

// NewTestResultService constructs a TestResultService.
func NewTestResultService(repo testResultRepository, access *AccessPolicy, renderers ExportRenderers, dashboards dashboardInvalidator, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *TestResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &TestResultService{repo: repo, access: access, renderers: renderers, dashboards: dashboards, validator: validate, logger: logger, loc: loc, now: time.Now}
}

// List returns results scoped to the caller.
func (s *TestResultService) List(ctx context.Context, claims *models.JWTClaims, filter models.TestResultFilter) ([]models.TestResultDetail, *models.Pagination, error) {
	if err := s.scope(ctx, claims, &filter); err != nil {
		return nil, nil, err
	}
	results, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list test results")
	}
	return results, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Record stores a manual result for an owned student, scored like a completed test-solving task.
func (s *TestResultService) Record(ctx context.Context, teacherID string, req RecordTestResultRequest) (*models.TestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test result payload")
	}
	if err := ValidateAnswerCounts(req.TestCount, req.CorrectAnswers, req.WrongAnswers, req.BlankAnswers); err != nil {
		return nil, err
	}
	completedAt := s.now().UTC()
	if req.CompletedAt != "" {
		parsed, err := parseDate(req.CompletedAt, s.loc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completed_at")
		}
		completedAt = parsed.UTC()
	}
	if err := s.access.RequireOwnedStudent(ctx, teacherID, req.StudentID); err != nil {
		return nil, err
	}
	result := &models.TestResult{
		StudentID:       req.StudentID,
		TeacherID:       teacherID,
		SubjectID:       req.SubjectID,
		Title:           strings.TrimSpace(req.Title),
		TestCount:       req.TestCount,
		CorrectAnswers:  *req.CorrectAnswers,
		WrongAnswers:    *req.WrongAnswers,
		BlankAnswers:    *req.BlankAnswers,
		NetScore:        NetScore(*req.CorrectAnswers, *req.WrongAnswers),
		DurationMinutes: req.DurationMinutes,
		Status:          models.TestResultStatusCompleted,
		CompletedAt:     completedAt,
	}
	if err := s.repo.Create(ctx, result); err != nil {
		return nil, appErrors.FromDatabase(err, "failed to record test result")
	}
	if s.dashboards != nil {
		s.dashboards.InvalidateDashboards(ctx, teacherID, req.StudentID)
	}
	return result, nil
}

// Export renders every result visible to the caller as CSV, XLSX or PDF.
func (s *TestResultService) Export(ctx context.Context, claims *models.JWTClaims, filter models.TestResultFilter, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatXLSX && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, xlsx or pdf")
	}
	if err := s.scope(ctx, claims, &filter); err != nil {
		return nil, err
	}
	results, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test results")
	}
	dataset := testResultDataset(results, s.loc)
	stamp := s.now().In(s.loc).Format("20060102")

	var payload []byte
	file := &ExportFile{Filename: fmt.Sprintf("test-results-%s.%s", stamp, format)}
	switch format {
	case ExportFormatCSV:
		payload, err = s.renderers.CSV.Render(dataset)
		file.ContentType = "text/csv"
	case ExportFormatXLSX:
		payload, err = s.renderers.XLSX.Render(dataset)
		file.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatPDF:
		payload, err = s.renderers.PDF.Render(dataset, "Test results")
		file.ContentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	file.Payload = payload
	return file, nil
}

func (s *TestResultService) scope(ctx context.Context, claims *models.JWTClaims, filter *models.TestResultFilter) error {
	studentID, teacherID, err := s.access.ScopeStudent(ctx, claims, filter.StudentID)
	if err != nil {
		return err
	}
	filter.StudentID = studentID
	if teacherID != "" {
		filter.TeacherID = teacherID
	}
	return nil
}

func testResultDataset(results []models.TestResultDetail, loc *time.Location) export.Dataset {
	headers := []string{"Date", "Student", "Subject", "Title", "Questions", "Correct", "Wrong", "Blank", "Net"}
	rows := make([]map[string]string, 0, len(results))
	for _, r := range results {
		subject := ""
		if r.SubjectName != nil {
			subject = *r.SubjectName
		}
		rows = append(rows, map[string]string{
			"Date":      r.CompletedAt.In(loc).Format("2006-01-02"),
			"Student":   r.StudentName,
			"Subject":   subject,
			"Title":     r.Title,
			"Questions": strconv.Itoa(r.TestCount),
			"Correct":   strconv.Itoa(r.CorrectAnswers),
			"Wrong":     strconv.Itoa(r.WrongAnswers),
			"Blank":     strconv.Itoa(r.BlankAnswers),
			"Net":       strconv.Itoa(r.NetScore),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
